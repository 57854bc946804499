package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/pkg/textx"
)

const scoringSystemPrompt = `You are an expert technical interviewer grading one answer from a screening interview.

Score the answer in four categories, each an integer from 1 to 100:
- technicalAccuracy: correctness and depth of the technical content
- problemSolving: structure of the approach, trade-offs, handling of edge cases
- communication: clarity, concision and organisation
- documentation: whether the candidate would record, explain and hand over their work

Score bands: 80-100 advanced expertise, 40-79 solid foundation, 1-39 basic understanding.

Set aiDetected to true only when the answer is very likely machine-generated rather than written by the candidate
(generic, exhaustive, polished boilerplate that does not engage with the specific question). Pasted-content telemetry,
when present, is supporting evidence and not proof on its own.

Write feedback as two or three sentences addressed to the hiring team.

Respond with ONLY a JSON object in exactly this shape and nothing else:
{"technicalAccuracy": 0, "problemSolving": 0, "communication": 0, "documentation": 0, "aiDetected": false, "feedback": ""}`

// verdict mirrors the oracle's JSON. Category pointers distinguish a missing field from a zero.
type verdict struct {
	TechnicalAccuracy *float64 `json:"technicalAccuracy" validate:"required"`
	ProblemSolving    *float64 `json:"problemSolving" validate:"required"`
	Communication     *float64 `json:"communication" validate:"required"`
	Documentation     *float64 `json:"documentation" validate:"required"`
	AIDetected        bool     `json:"aiDetected"`
	Feedback          string   `json:"feedback" validate:"max=4000"`
}

// Scorer implements domain.ScoringOracle on top of a chat completion client.
type Scorer struct {
	client    domain.AIClient
	cleaner   *ResponseCleaner
	validate  *validator.Validate
	maxTokens int
}

// NewScorer wraps client. maxTokens bounds the verdict length.
func NewScorer(client domain.AIClient, maxTokens int) *Scorer {
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return &Scorer{client: client, cleaner: NewResponseCleaner(), validate: validator.New(), maxTokens: maxTokens}
}

// BuildUserPrompt renders the per-answer prompt.
func BuildUserPrompt(req domain.OracleRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview question:\n%s\n\n", req.QuestionText)
	fmt.Fprintf(&b, "Candidate answer:\n%s\n", req.AnswerText)
	if p := req.Paste; p != nil && p.WasPasted {
		fmt.Fprintf(&b, "\nPaste telemetry: %d characters were pasted into an answer of %d characters; "+
			"a text-pattern heuristic rated the pasted text %d%% likely to be machine-generated.\n",
			p.PastedLength, p.OriginalLength+p.PastedLength, p.ConfidencePercent)
	}
	return b.String()
}

// Score asks the model for a verdict. Transport failures are returned as-is;
// refusals and malformed or incomplete JSON are domain.ErrSchemaInvalid.
func (s *Scorer) Score(ctx context.Context, req domain.OracleRequest) (domain.OracleScore, error) {
	tracer := otel.Tracer("ai.scorer")
	ctx, span := tracer.Start(ctx, "Scorer.Score")
	defer span.End()
	span.SetAttributes(
		attribute.Int("answer.length", len(req.AnswerText)),
		attribute.Bool("answer.pasted", req.Paste != nil && req.Paste.WasPasted),
	)

	raw, err := s.client.ChatJSON(ctx, scoringSystemPrompt, BuildUserPrompt(req), s.maxTokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat")
		return domain.OracleScore{}, fmt.Errorf("op=scorer.Score: %w", err)
	}

	v, err := s.parse(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse")
		slog.Warn("oracle verdict rejected",
			slog.String("reason", err.Error()),
			slog.String("snippet", textx.Truncate(raw, 200)))
		return domain.OracleScore{}, fmt.Errorf("op=scorer.Score: %w", err)
	}
	span.SetAttributes(attribute.Bool("verdict.ai_detected", v.AIDetected))
	return domain.OracleScore{
		TechnicalAccuracy: *v.TechnicalAccuracy,
		ProblemSolving:    *v.ProblemSolving,
		Communication:     *v.Communication,
		Documentation:     *v.Documentation,
		AIDetected:        v.AIDetected,
		Feedback:          strings.TrimSpace(v.Feedback),
	}, nil
}

func (s *Scorer) parse(raw string) (verdict, error) {
	if IsRefusal(raw) {
		return verdict{}, fmt.Errorf("%w: model refused to grade", domain.ErrSchemaInvalid)
	}
	cleaned, err := s.cleaner.CleanJSONResponse(raw)
	if err != nil {
		return verdict{}, err
	}
	var v verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return verdict{}, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return verdict{}, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return v, nil
}
