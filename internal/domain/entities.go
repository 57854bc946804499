package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrSchemaInvalid       = errors.New("schema invalid")
	ErrOracle              = errors.New("scoring oracle failure")
	ErrCircuitOpen         = errors.New("circuit open")
	ErrSettingsUnavailable = errors.New("interview settings unavailable")
	ErrSessionClosed       = errors.New("session closed")
	ErrSubmissionInFlight  = errors.New("submission in flight")
	ErrInternal            = errors.New("internal error")
)

// Difficulty of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty maps a stored label onto a Difficulty, case-insensitively.
// Unknown or empty labels fall back to Medium.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy
	case "hard":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// Well-known question sections.
const (
	SectionTechnical  = "Technical Competencies"
	SectionScenario   = "Scenario-based Problem Solving"
	SectionBehavioral = "Behavioral & Soft Skills"
	SectionGeneral    = "General"
)

// Question is one interview question. ID is session-local and reassigned on selection.
type Question struct {
	ID         int        `json:"id" yaml:"-"`
	Section    string     `json:"section" yaml:"section"`
	Text       string     `json:"question" yaml:"question"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
}

// Normalized trims the text, defaults an empty section to General and maps
// the difficulty label onto a known Difficulty.
func (q Question) Normalized() Question {
	q.Text = strings.TrimSpace(q.Text)
	q.Section = strings.TrimSpace(q.Section)
	if q.Section == "" {
		q.Section = SectionGeneral
	}
	q.Difficulty = ParseDifficulty(string(q.Difficulty))
	return q
}

// PasteSignal is the heuristic result of one paste event. It is consumed by the next answer.
type PasteSignal struct {
	WasPasted         bool      `json:"was_pasted"`
	PastedLength      int       `json:"pasted_length"`
	OriginalLength    int       `json:"original_length"`
	IsLikelyGenerated bool      `json:"is_likely_generated"`
	ConfidencePercent int       `json:"confidence_percent"`
	Timestamp         time.Time `json:"timestamp"`
}

// Integrity flags recorded on a scored answer.
type Integrity struct {
	AIDetected        bool `json:"aiDetected"`
	CopyPasteDetected bool `json:"copyPasteDetected"`
}

// AnswerScore is the immutable evaluation of one answered question.
type AnswerScore struct {
	QuestionID        int    `json:"questionId"`
	QuestionText      string `json:"question"`
	AnswerText        string `json:"answer"`
	TechnicalAccuracy int    `json:"technicalAccuracy"`
	ProblemSolving    int    `json:"problemSolving"`
	Communication     int    `json:"communication"`
	Documentation     int    `json:"documentation"`
	OverallScore      int    `json:"score"`
	Level             Level  `json:"level"`
	Feedback          string `json:"feedback"`
	Integrity
}

// CategoryAverages holds per-category means across a session, one decimal each.
type CategoryAverages struct {
	Technical      float64 `json:"technical_accuracy"`
	ProblemSolving float64 `json:"problem_solving"`
	Communication  float64 `json:"communication"`
	Documentation  float64 `json:"documentation"`
}

// AssessmentStatus is the candidate-facing assessment outcome stored on the candidate record.
type AssessmentStatus string

const (
	StatusInProgress AssessmentStatus = "in_progress"
	StatusPassed     AssessmentStatus = "passed"
	StatusFailed     AssessmentStatus = "failed"
)

// SessionResult is created exactly once when the last question is answered.
type SessionResult struct {
	ID                    string           `json:"id"`
	CandidateKey          string           `json:"candidate_key"`
	AverageScore          float64          `json:"overall_score"`
	OverallLevel          Level            `json:"overall_level"`
	Categories            CategoryAverages `json:"categories"`
	AnyIntegrityViolation bool             `json:"ai_detected"`
	Status                AssessmentStatus `json:"status"`
	Feedback              string           `json:"feedback"`
	CompletedAt           time.Time        `json:"completed_at"`
	DetailedAnswers       []AnswerScore    `json:"detailed_result"`
}

// Settings are the operator-tunable interview parameters.
type Settings struct {
	DurationMinutes            int      `json:"duration"`
	QuestionCount              int      `json:"question_count"`
	EasyPct                    int      `json:"easy_questions_percentage"`
	MediumPct                  int      `json:"medium_questions_percentage"`
	HardPct                    int      `json:"hard_questions_percentage"`
	PassingScore               float64  `json:"assessment_passing_score"`
	PassingLevel               Level    `json:"assessment_passing_level"`
	AIDetectionEnabled         bool     `json:"ai_detection_enabled"`
	AIDetectionSensitivity     string   `json:"ai_detection_sensitivity"`
	PatternSimilarityThreshold int      `json:"pattern_similarity_threshold"`
	SelectedCategories         []string `json:"selected_categories"`
}

// DefaultSettings are used when the settings store holds no row.
func DefaultSettings() Settings {
	return Settings{
		DurationMinutes:            30,
		QuestionCount:              10,
		EasyPct:                    60,
		MediumPct:                  28,
		HardPct:                    12,
		PassingScore:               70,
		PassingLevel:               Level3,
		AIDetectionEnabled:         true,
		AIDetectionSensitivity:     "medium",
		PatternSimilarityThreshold: 70,
		SelectedCategories:         []string{"JavaScript", "React", "Behavioral"},
	}
}

// Duration returns the session countdown length.
func (s Settings) Duration() time.Duration { return time.Duration(s.DurationMinutes) * time.Minute }

// Candidate is the subset of the CRM candidate record the interview needs.
type Candidate struct {
	Key              string           `json:"zoho_id"`
	FirstName        string           `json:"first_name,omitempty"`
	LastName         string           `json:"last_name,omitempty"`
	FullName         string           `json:"full_name,omitempty"`
	Email            string           `json:"email,omitempty"`
	CurrentJobTitle  string           `json:"current_job_title,omitempty"`
	ExperienceYears  float64          `json:"experience_in_years,omitempty"`
	AssessmentStatus AssessmentStatus `json:"ai_interview_status,omitempty"`
}

// DisplayName picks the friendliest available name.
func (c Candidate) DisplayName() string {
	switch {
	case c.FullName != "":
		return c.FullName
	case c.FirstName != "":
		return c.FirstName
	default:
		return "Candidate"
	}
}

// Repositories (ports)

type QuestionRepository interface {
	ListQuestions(ctx Context) ([]Question, error)
}

type SettingsRepository interface {
	// GetSettings returns the newest settings row, DefaultSettings when none exists,
	// or an error when the store cannot be read.
	GetSettings(ctx Context) (Settings, error)
}

type ResultRepository interface {
	// FindByCandidate returns the most recent result or ErrNotFound.
	FindByCandidate(ctx Context, candidateKey string) (SessionResult, error)
	Save(ctx Context, r SessionResult) error
}

type CandidateRepository interface {
	Get(ctx Context, candidateKey string) (Candidate, error)
	UpdateAssessmentStatus(ctx Context, candidateKey string, status AssessmentStatus) error
}

// StatusNotifier pushes assessment status changes to the results store and any external system.
type StatusNotifier interface {
	NotifyStatus(ctx Context, candidateKey string, status AssessmentStatus) error
}

// ResultPublisher delivers a finished result to an outside consumer. Best effort.
type ResultPublisher interface {
	Publish(ctx Context, r SessionResult) error
}

// SessionLock guards against two live sessions for one candidate.
type SessionLock interface {
	Acquire(ctx Context, candidateKey string, ttl time.Duration) (bool, error)
	Release(ctx Context, candidateKey string) error
}

// AIClient (port)

type AIClient interface {
	// ChatJSON returns the raw assistant message for a system/user prompt pair.
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// OracleRequest is what the scoring oracle sees for one answer.
type OracleRequest struct {
	QuestionText string
	AnswerText   string
	Paste        *PasteSignal
}

// OracleScore is the oracle's raw, untrusted verdict.
type OracleScore struct {
	TechnicalAccuracy float64 `json:"technicalAccuracy"`
	ProblemSolving    float64 `json:"problemSolving"`
	Communication     float64 `json:"communication"`
	Documentation     float64 `json:"documentation"`
	AIDetected        bool    `json:"aiDetected"`
	Feedback          string  `json:"feedback"`
}

// ScoringOracle scores one answer.
type ScoringOracle interface {
	Score(ctx Context, req OracleRequest) (OracleScore, error)
}

// Context is an alias so ports read naturally without importing context everywhere.
type Context = context.Context
