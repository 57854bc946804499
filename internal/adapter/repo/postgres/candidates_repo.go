package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// CandidateRepo reads candidate records and writes their interview status.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

// Get loads a candidate by CRM key.
func (r *CandidateRepo) Get(ctx domain.Context, candidateKey string) (domain.Candidate, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "candidates"),
	)
	q := `SELECT zoho_id, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(full_name, ''), COALESCE(email, ''),
	COALESCE(current_job_title, ''), COALESCE(experience_in_years, 0), COALESCE(ai_interview_status, '')
	FROM candidates WHERE zoho_id=$1`
	var (
		c      domain.Candidate
		status string
	)
	err := r.Pool.QueryRow(ctx, q, candidateKey).Scan(
		&c.Key, &c.FirstName, &c.LastName, &c.FullName, &c.Email, &c.CurrentJobTitle, &c.ExperienceYears, &status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", err)
	}
	c.AssessmentStatus = domain.AssessmentStatus(status)
	return c, nil
}

// UpdateAssessmentStatus sets ai_interview_status, creating a bare candidate row if none exists.
func (r *CandidateRepo) UpdateAssessmentStatus(ctx domain.Context, candidateKey string, status domain.AssessmentStatus) error {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.UpdateAssessmentStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.sql.table", "candidates"),
		attribute.String("candidate.status", string(status)),
	)
	if candidateKey == "" {
		return fmt.Errorf("op=candidate.update_status: %w: candidate key required", domain.ErrInvalidArgument)
	}
	q := `INSERT INTO candidates (zoho_id, ai_interview_status, updated_at) VALUES ($1,$2,now())
	ON CONFLICT (zoho_id) DO UPDATE SET ai_interview_status=EXCLUDED.ai_interview_status, updated_at=now()`
	if _, err := r.Pool.Exec(ctx, q, candidateKey, string(status)); err != nil {
		return fmt.Errorf("op=candidate.update_status: %w", err)
	}
	return nil
}
