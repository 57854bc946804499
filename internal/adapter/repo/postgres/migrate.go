package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed schema.sql
var schemaSQL string

// RequiredTables are the tables the service reads and writes.
var RequiredTables = []string{"interview_questions", "interview_settings", "candidates", "interview_results"}

// Migrate applies the idempotent schema and then verifies every required table exists.
func Migrate(ctx context.Context, pool PgxPool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("op=postgres.Migrate: apply schema: %w", err)
	}
	return VerifySchema(ctx, pool)
}

// VerifySchema fails if any required table is missing.
func VerifySchema(ctx context.Context, pool PgxPool) error {
	const q = `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	)`
	for _, table := range RequiredTables {
		var exists bool
		if err := pool.QueryRow(ctx, q, table).Scan(&exists); err != nil {
			return fmt.Errorf("op=postgres.VerifySchema: %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("op=postgres.VerifySchema: required table %s does not exist", table)
		}
	}
	slog.Debug("schema verified", slog.Int("tables", len(RequiredTables)))
	return nil
}
