package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// ResultRepo persists and loads interview results from PostgreSQL.
type ResultRepo struct{ Pool PgxPool }

// NewResultRepo constructs a ResultRepo with the given pool.
func NewResultRepo(p PgxPool) *ResultRepo { return &ResultRepo{Pool: p} }

// Save inserts a finished result. Results are append-only; an empty id is generated.
func (r *ResultRepo) Save(ctx domain.Context, res domain.SessionResult) error {
	tracer := otel.Tracer("repo.results")
	ctx, span := tracer.Start(ctx, "results.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "interview_results"),
	)
	if res.CandidateKey == "" {
		return fmt.Errorf("op=result.save: %w: candidate key required", domain.ErrInvalidArgument)
	}
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now().UTC()
	}
	answers := res.DetailedAnswers
	if answers == nil {
		answers = []domain.AnswerScore{}
	}
	detailed, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("op=result.save_marshal: %w", err)
	}
	q := `INSERT INTO interview_results (id, zoho_id, overall_score, overall_level, technical_accuracy, problem_solving,
	communication, documentation, ai_detected, status, feedback, detailed_result, completed_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err = r.Pool.Exec(ctx, q,
		res.ID, res.CandidateKey, res.AverageScore, string(res.OverallLevel),
		res.Categories.Technical, res.Categories.ProblemSolving, res.Categories.Communication, res.Categories.Documentation,
		res.AnyIntegrityViolation, string(res.Status), res.Feedback, detailed, res.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("op=result.save: %w", err)
	}
	return nil
}

// FindByCandidate loads the most recent result for a candidate or returns domain.ErrNotFound.
func (r *ResultRepo) FindByCandidate(ctx domain.Context, candidateKey string) (domain.SessionResult, error) {
	tracer := otel.Tracer("repo.results")
	ctx, span := tracer.Start(ctx, "results.FindByCandidate")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "interview_results"),
	)
	q := `SELECT id, zoho_id, overall_score, overall_level, technical_accuracy, problem_solving, communication, documentation,
	ai_detected, status, COALESCE(feedback, ''), detailed_result, completed_at
	FROM interview_results WHERE zoho_id=$1 ORDER BY completed_at DESC LIMIT 1`

	var (
		res           domain.SessionResult
		level, status string
		detailed      []byte
	)
	err := r.Pool.QueryRow(ctx, q, candidateKey).Scan(
		&res.ID, &res.CandidateKey, &res.AverageScore, &level,
		&res.Categories.Technical, &res.Categories.ProblemSolving, &res.Categories.Communication, &res.Categories.Documentation,
		&res.AnyIntegrityViolation, &status, &res.Feedback, &detailed, &res.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionResult{}, fmt.Errorf("op=result.find: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("op=result.find: %w", err)
	}
	res.OverallLevel = domain.Level(level)
	res.Status = domain.AssessmentStatus(status)
	res.DetailedAnswers = []domain.AnswerScore{}
	if len(detailed) > 0 {
		if err := json.Unmarshal(detailed, &res.DetailedAnswers); err != nil {
			return domain.SessionResult{}, fmt.Errorf("op=result.find_decode: %w", err)
		}
	}
	return res, nil
}
