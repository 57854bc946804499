// Command bankctl manages the interview question bank and admin credentials.
package main

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-screening-interview/internal/config"
)

var dbURL string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bankctl",
		Short:         "Manage the screening interview question bank",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbURL, "db", "", "Postgres URL (defaults to DB_URL)")
	root.AddCommand(newImportCmd(), newExportCmd(), newListCmd(), newPreviewCmd(), newHashPasswordCmd())
	return root
}

func main() {
	config.LoadDotenv()
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// connect opens and migrates the database named by --db or DB_URL.
func connect(ctx context.Context) (*postgresConn, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	url := cfg.DBURL
	if dbURL != "" {
		url = dbURL
	}
	pool, err := postgres.ConnectWithBackoff(ctx, url, 2, 10*time.Second)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &postgresConn{
		Questions: postgres.NewQuestionRepo(pool),
		Settings:  postgres.NewSettingsRepo(pool),
		close:     pool.Close,
	}, nil
}

type postgresConn struct {
	Questions *postgres.QuestionRepo
	Settings  *postgres.SettingsRepo
	close     func()
}

func (c *postgresConn) Close() { c.close() }
