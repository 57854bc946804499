package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	obsctx "github.com/fairyhunter13/ai-screening-interview/internal/observability"
)

// Fixed feedback texts.
const (
	FallbackFeedback        = "Answer received but evaluation service encountered an error."
	OracleViolationFeedback = "AI-generated response detected. This violates assessment integrity guidelines."
	PasteViolationFeedback  = "Pasted content appears to be AI-generated. This violates assessment integrity guidelines."
)

const (
	fallbackScore    = 50
	minCategoryScore = 1
	maxCategoryScore = 100
)

// ScoringPolicy holds the thresholds Normalize applies to raw oracle output.
type ScoringPolicy struct {
	Thresholds domain.LevelThresholds
	// PasteConfidenceThreshold: a likely-generated paste above this percent zeroes the answer.
	PasteConfidenceThreshold int
	// PasteDetection disables the paste trigger when false. The oracle flag always applies.
	PasteDetection bool
}

// DefaultScoringPolicy is the 80/40 band split with a 30% paste trigger.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Thresholds:               domain.DefaultLevelThresholds,
		PasteConfidenceThreshold: 30,
		PasteDetection:           true,
	}
}

// Normalize turns an untrusted oracle verdict into a canonical score.
// It is the only place category clamping, integrity zeroing, the overall
// mean and the level are derived; question and answer fields are left empty.
func Normalize(raw domain.OracleScore, paste *domain.PasteSignal, p ScoringPolicy) domain.AnswerScore {
	s := domain.AnswerScore{
		TechnicalAccuracy: clampCategory(raw.TechnicalAccuracy),
		ProblemSolving:    clampCategory(raw.ProblemSolving),
		Communication:     clampCategory(raw.Communication),
		Documentation:     clampCategory(raw.Documentation),
		Feedback:          raw.Feedback,
	}
	if paste != nil {
		s.CopyPasteDetected = paste.WasPasted
	}

	pasteTrigger := p.PasteDetection && paste != nil &&
		paste.IsLikelyGenerated && paste.ConfidencePercent > p.PasteConfidenceThreshold
	if raw.AIDetected || pasteTrigger {
		s.TechnicalAccuracy, s.ProblemSolving, s.Communication, s.Documentation = 0, 0, 0, 0
		s.AIDetected = true
		if raw.AIDetected {
			s.Feedback = OracleViolationFeedback
		} else {
			s.Feedback = PasteViolationFeedback
		}
	}

	sum := s.TechnicalAccuracy + s.ProblemSolving + s.Communication + s.Documentation
	s.OverallScore = int(math.Round(float64(sum) / 4))
	s.Level = p.Thresholds.LevelFor(float64(s.OverallScore))
	return s
}

func clampCategory(v float64) int {
	if math.IsNaN(v) {
		return minCategoryScore
	}
	return int(math.Round(math.Max(minCategoryScore, math.Min(maxCategoryScore, v))))
}

// Fallback is the neutral score given when the oracle cannot be used.
func Fallback(q domain.Question, answer string) domain.AnswerScore {
	return domain.AnswerScore{
		QuestionID:        q.ID,
		QuestionText:      q.Text,
		AnswerText:        answer,
		TechnicalAccuracy: fallbackScore,
		ProblemSolving:    fallbackScore,
		Communication:     fallbackScore,
		Documentation:     fallbackScore,
		OverallScore:      fallbackScore,
		Level:             domain.Level2,
		Feedback:          FallbackFeedback,
	}
}

// AnswerEvaluator scores one answer through the oracle. It never returns an error.
type AnswerEvaluator struct {
	Oracle  domain.ScoringOracle
	Policy  ScoringPolicy
	Timeout time.Duration
	Drift   *observability.ScoreDriftMonitor
}

// NewAnswerEvaluator constructs an AnswerEvaluator. A zero timeout leaves the
// caller's deadline in charge.
func NewAnswerEvaluator(o domain.ScoringOracle, p ScoringPolicy, timeout time.Duration) AnswerEvaluator {
	return AnswerEvaluator{Oracle: o, Policy: p, Timeout: timeout}
}

// WithPasteDetection returns a copy with the paste trigger switched on or off.
func (e AnswerEvaluator) WithPasteDetection(enabled bool) AnswerEvaluator {
	e.Policy.PasteDetection = enabled
	return e
}

// Evaluate scores answer for q. Oracle errors, timeouts and unparseable
// verdicts all produce the Fallback record; nothing is retried.
func (e AnswerEvaluator) Evaluate(ctx context.Context, q domain.Question, answer string, paste *domain.PasteSignal) domain.AnswerScore {
	lg := obsctx.LoggerFromContext(ctx)
	if e.Oracle == nil {
		lg.Error("no scoring oracle configured", slog.Int("question_id", q.ID))
		observability.RecordOracleFallback("unconfigured")
		return e.fallback(q, answer)
	}

	octx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := e.Oracle.Score(octx, domain.OracleRequest{QuestionText: q.Text, AnswerText: answer, Paste: paste})
	if err != nil {
		reason := fallbackReason(err)
		lg.Warn("oracle scoring failed; using fallback score",
			slog.Int("question_id", q.ID),
			slog.String("reason", reason),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		observability.RecordOracleFallback(reason)
		return e.fallback(q, answer)
	}

	s := Normalize(raw, paste, e.Policy)
	s.QuestionID = q.ID
	s.QuestionText = q.Text
	s.AnswerText = answer

	outcome := "scored"
	if s.AIDetected {
		outcome = "violation"
		trigger := "paste"
		if raw.AIDetected {
			trigger = "oracle"
		}
		observability.RecordIntegrityViolation(trigger)
		lg.Info("integrity violation on answer",
			slog.Int("question_id", q.ID),
			slog.String("trigger", trigger),
			slog.Bool("copy_paste", s.CopyPasteDetected))
	} else {
		e.Drift.Record(float64(s.OverallScore))
	}
	observability.ObserveAnswer(string(s.Level), outcome, s.OverallScore)
	lg.Debug("answer evaluated",
		slog.Int("question_id", q.ID),
		slog.Int("score", s.OverallScore),
		slog.String("level", string(s.Level)),
		slog.Duration("elapsed", time.Since(start)))
	return s
}

func (e AnswerEvaluator) fallback(q domain.Question, answer string) domain.AnswerScore {
	s := Fallback(q, answer)
	observability.ObserveAnswer(string(s.Level), "fallback", s.OverallScore)
	return s
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrSchemaInvalid):
		return "unparseable"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "error"
	}
}
