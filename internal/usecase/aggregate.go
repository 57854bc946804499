package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// Aggregate is the session-level score summary.
type Aggregate struct {
	AverageScore float64
	OverallLevel domain.Level
}

// ResultAggregator folds answer scores into a session result.
type ResultAggregator struct {
	Thresholds domain.LevelThresholds
}

// NewResultAggregator uses t for the session level; zero thresholds fall back to the defaults.
func NewResultAggregator(t domain.LevelThresholds) ResultAggregator {
	if t == (domain.LevelThresholds{}) {
		t = domain.DefaultLevelThresholds
	}
	return ResultAggregator{Thresholds: t}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// Aggregate averages the overall scores to one decimal. An empty slice yields {0, Level 2}.
func (a ResultAggregator) Aggregate(answers []domain.AnswerScore) Aggregate {
	if len(answers) == 0 {
		return Aggregate{AverageScore: 0, OverallLevel: domain.Level2}
	}
	var sum int
	for _, ans := range answers {
		sum += ans.OverallScore
	}
	avg := round1(float64(sum) / float64(len(answers)))
	// level follows the reported (rounded) average so 79.96 reads as 80.0 and Level 3
	return Aggregate{AverageScore: avg, OverallLevel: a.Thresholds.LevelFor(avg)}
}

// CategoryAverages averages each category to one decimal.
func (ResultAggregator) CategoryAverages(answers []domain.AnswerScore) domain.CategoryAverages {
	if len(answers) == 0 {
		return domain.CategoryAverages{}
	}
	var t, p, c, d int
	for _, ans := range answers {
		t += ans.TechnicalAccuracy
		p += ans.ProblemSolving
		c += ans.Communication
		d += ans.Documentation
	}
	n := float64(len(answers))
	return domain.CategoryAverages{
		Technical:      round1(float64(t) / n),
		ProblemSolving: round1(float64(p) / n),
		Communication:  round1(float64(c) / n),
		Documentation:  round1(float64(d) / n),
	}
}

// AnyIntegrityViolation reports whether any answer was zeroed for integrity.
func AnyIntegrityViolation(answers []domain.AnswerScore) bool {
	for _, ans := range answers {
		if ans.AIDetected {
			return true
		}
	}
	return false
}

// Decide applies the passing criteria. Any integrity violation fails the session.
func (ResultAggregator) Decide(agg Aggregate, answers []domain.AnswerScore, s domain.Settings) domain.AssessmentStatus {
	if AnyIntegrityViolation(answers) {
		return domain.StatusFailed
	}
	if agg.AverageScore >= s.PassingScore && agg.OverallLevel.Rank() >= s.PassingLevel.Rank() {
		return domain.StatusPassed
	}
	return domain.StatusFailed
}

var levelStatements = map[domain.Level]string{
	domain.Level3: "Demonstrates advanced expertise with proactive, well-structured approaches.",
	domain.Level2: "Shows solid foundational knowledge; some guidance would help in more complex scenarios.",
	domain.Level1: "Shows a basic understanding with significant gaps; substantial training would be needed.",
}

type namedAverage struct {
	name  string
	value float64
}

// SummarizeFeedback writes the narrative stored with the result.
func (a ResultAggregator) SummarizeFeedback(answers []domain.AnswerScore, agg Aggregate) string {
	if len(answers) == 0 {
		return "No answers were recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Overall performance: %.1f/100 (%s). %s", agg.AverageScore, agg.OverallLevel, levelStatements[agg.OverallLevel])

	cat := a.CategoryAverages(answers)
	cats := []namedAverage{
		{"technical accuracy", cat.Technical},
		{"problem solving", cat.ProblemSolving},
		{"communication", cat.Communication},
		{"documentation", cat.Documentation},
	}
	best, worst := cats[0], cats[0]
	for _, c := range cats[1:] {
		if c.value > best.value {
			best = c
		}
		if c.value < worst.value {
			worst = c
		}
	}
	if best.value == worst.value {
		fmt.Fprintf(&b, " Scores were even across all categories (%.1f).", best.value)
	} else {
		fmt.Fprintf(&b, " Strongest area: %s (%.1f). Area to develop: %s (%.1f).", best.name, best.value, worst.name, worst.value)
	}

	var flagged, pasted, fallback int
	for _, ans := range answers {
		if ans.AIDetected {
			flagged++
		}
		if ans.CopyPasteDetected {
			pasted++
		}
		if ans.Feedback == FallbackFeedback {
			fallback++
		}
	}
	if fallback > 0 {
		fmt.Fprintf(&b, " %d of %d answers could not be scored automatically and received a neutral score.", fallback, len(answers))
	}
	if flagged > 0 {
		fmt.Fprintf(&b, " Integrity: %d of %d answers were flagged as AI-generated, which fails the assessment.", flagged, len(answers))
	} else if pasted > 0 {
		fmt.Fprintf(&b, " %d of %d answers included pasted content.", pasted, len(answers))
	}
	return b.String()
}

// Build assembles the final result. The answers slice is copied.
func (a ResultAggregator) Build(candidateKey string, answers []domain.AnswerScore, s domain.Settings, now time.Time) domain.SessionResult {
	agg := a.Aggregate(answers)
	detailed := make([]domain.AnswerScore, len(answers))
	copy(detailed, answers)
	return domain.SessionResult{
		ID:                    uuid.NewString(),
		CandidateKey:          candidateKey,
		AverageScore:          agg.AverageScore,
		OverallLevel:          agg.OverallLevel,
		Categories:            a.CategoryAverages(answers),
		AnyIntegrityViolation: AnyIntegrityViolation(answers),
		Status:                a.Decide(agg, answers, s),
		Feedback:              a.SummarizeFeedback(answers, agg),
		CompletedAt:           now.UTC(),
		DetailedAnswers:       detailed,
	}
}
