package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// SettingsRepo loads operator-tunable interview settings.
type SettingsRepo struct{ Pool PgxPool }

// NewSettingsRepo constructs a SettingsRepo with the given pool.
func NewSettingsRepo(p PgxPool) *SettingsRepo { return &SettingsRepo{Pool: p} }

// GetSettings returns the most recently updated row, or DefaultSettings when the table is empty.
func (r *SettingsRepo) GetSettings(ctx domain.Context) (domain.Settings, error) {
	tracer := otel.Tracer("repo.settings")
	ctx, span := tracer.Start(ctx, "settings.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "interview_settings"),
	)
	q := `SELECT duration, question_count, easy_questions_percentage, medium_questions_percentage, hard_questions_percentage,
	assessment_passing_score, assessment_passing_level, ai_detection_enabled, ai_detection_sensitivity,
	pattern_similarity_threshold, selected_categories
	FROM interview_settings ORDER BY updated_at DESC LIMIT 1`

	var (
		s     domain.Settings
		level string
	)
	err := r.Pool.QueryRow(ctx, q).Scan(
		&s.DurationMinutes, &s.QuestionCount, &s.EasyPct, &s.MediumPct, &s.HardPct,
		&s.PassingScore, &level, &s.AIDetectionEnabled, &s.AIDetectionSensitivity,
		&s.PatternSimilarityThreshold, &s.SelectedCategories,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetAttributes(attribute.Bool("settings.default", true))
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("op=settings.get: %w", err)
	}
	// stored as-is; an unrecognised label ranks 0 and so never raises the bar
	s.PassingLevel = domain.Level(level)
	if !s.PassingLevel.Valid() {
		span.SetAttributes(attribute.String("settings.unknown_level", level))
	}
	return s, nil
}
