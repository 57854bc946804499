package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// QuestionRepo reads and imports the interview question bank.
type QuestionRepo struct{ Pool PgxPool }

// NewQuestionRepo constructs a QuestionRepo with the given pool.
func NewQuestionRepo(p PgxPool) *QuestionRepo { return &QuestionRepo{Pool: p} }

// ListQuestions returns the whole bank in insertion order.
func (r *QuestionRepo) ListQuestions(ctx domain.Context) ([]domain.Question, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.List")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "interview_questions"),
	)
	q := `SELECT question, COALESCE(section, ''), COALESCE(difficulty, '') FROM interview_questions ORDER BY created_at ASC, question ASC`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=question.list: %w", err)
	}
	defer rows.Close()

	out := []domain.Question{}
	for rows.Next() {
		var text, section, difficulty string
		if err := rows.Scan(&text, &section, &difficulty); err != nil {
			return nil, fmt.Errorf("op=question.list_scan: %w", err)
		}
		out = append(out, domain.Question{Text: text, Section: section, Difficulty: domain.Difficulty(difficulty)}.Normalized())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=question.list_rows: %w", err)
	}
	span.SetAttributes(attribute.Int("questions.count", len(out)))
	return out, nil
}

// Import upserts questions by text in one transaction and returns how many rows were written.
func (r *QuestionRepo) Import(ctx domain.Context, qs []domain.Question) (int, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.Import")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "interview_questions"),
	)

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("op=question.import_begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO interview_questions (question, section, difficulty) VALUES ($1,$2,$3)
	ON CONFLICT (question) DO UPDATE SET section=EXCLUDED.section, difficulty=EXCLUDED.difficulty`
	n := 0
	for _, question := range qs {
		question = question.Normalized()
		if question.Text == "" {
			continue
		}
		if _, err := tx.Exec(ctx, q, question.Text, question.Section, string(question.Difficulty)); err != nil {
			return 0, fmt.Errorf("op=question.import: %w", err)
		}
		n++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("op=question.import_commit: %w", err)
	}
	span.SetAttributes(attribute.Int("questions.imported", n))
	return n, nil
}
