// Command server runs the screening interview HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/ai"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/ai/real"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/ai/stub"
	httpserver "github.com/fairyhunter13/ai-screening-interview/internal/adapter/httpserver"
	redislock "github.com/fairyhunter13/ai-screening-interview/internal/adapter/lock/redis"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/repo/yamlbank"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/webhook"
	"github.com/fairyhunter13/ai-screening-interview/internal/app"
	"github.com/fairyhunter13/ai-screening-interview/internal/config"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/internal/integrity"
	"github.com/fairyhunter13/ai-screening-interview/internal/usecase"
)

func main() {
	config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pool, err := postgres.ConnectWithBackoff(ctx, cfg.DBURL, cfg.DBMaxConns, cfg.DBConnectMaxElapsed)
	if err != nil {
		slog.Error("postgres connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("schema migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	var questions domain.QuestionRepository = postgres.NewQuestionRepo(pool)
	if cfg.QuestionBankFile != "" {
		bank, err := yamlbank.NewRepo(cfg.QuestionBankFile)
		if err != nil {
			slog.Error("question bank load failed", slog.String("file", cfg.QuestionBankFile), slog.Any("error", err))
			os.Exit(1)
		}
		questions = bank
		slog.Info("serving questions from file", slog.String("file", cfg.QuestionBankFile))
	}
	candidates := usecase.NewCandidateDirectory(postgres.NewCandidateRepo(pool))
	results := postgres.NewResultRepo(pool)

	// Optional Redis session lock
	var (
		lock      domain.SessionLock
		redisPing app.Pinger
	)
	if cfg.RedisURL != "" {
		l, err := redislock.NewFromURL(cfg.RedisURL, cfg.SessionLockPrefix)
		if err != nil {
			slog.Error("redis config invalid", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = l.Close() }()
		lock, redisPing = l, l
	}

	// Result sinks
	status := usecase.StatusFanout{candidates}
	if sc := webhook.NewStatusClient(cfg.StatusAPIURL, cfg.WebhookTimeout); sc != nil {
		status = append(status, sc)
	}
	var (
		publishers []usecase.NamedPublisher
		brokerPing app.Pinger
	)
	if p := webhook.NewPublisher(cfg.WebhookURL, cfg.WebhookTimeout); p != nil {
		publishers = append(publishers, usecase.NamedPublisher{Name: "webhook", Publisher: p})
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := redpanda.NewProducer(cfg.KafkaBrokers, cfg.ResultsTopic)
		if err != nil {
			slog.Error("redpanda producer init failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = producer.Close() }()
		publishers = append(publishers, usecase.NamedPublisher{Name: "redpanda", Publisher: producer})
		brokerPing = producer
	}

	// Scoring oracle
	var chat domain.AIClient
	if cfg.OracleAPIKey == "" {
		slog.Warn("ORACLE_API_KEY not set; using offline stub scorer")
		chat = stub.New()
	} else {
		chat = real.New(cfg)
	}
	oracle := ai.NewBreakerOracle(
		ai.NewScorer(chat, cfg.OracleMaxTokens),
		ai.NewCircuitBreaker(cfg.OracleModel, cfg.OracleBreakerThreshold, cfg.OracleBreakerCooldown),
	)
	evaluator := usecase.NewAnswerEvaluator(oracle, usecase.ScoringPolicy{
		Thresholds:               cfg.LevelThresholds(),
		PasteConfidenceThreshold: cfg.PasteConfidenceThreshold,
		PasteDetection:           true,
	}, cfg.OracleTimeout)
	evaluator.Drift = observability.NewScoreDriftMonitor(cfg.OracleModel, cfg.ScoreDriftBaseline, cfg.ScoreDriftWindow, cfg.ScoreDriftThreshold)

	interview := usecase.NewInterviewService(usecase.InterviewDeps{
		Questions:  questions,
		Settings:   postgres.NewSettingsRepo(pool),
		Results:    results,
		Candidates: candidates,
		Status:     status,
		Publishers: publishers,
		Lock:       lock,
		Selector:   usecase.NewQuestionSelector(nil),
		Detector:   integrity.New(integrity.Config{MinPasteLength: cfg.PasteMinLength, GeneratedThreshold: cfg.PasteGeneratedThreshold}),
		Evaluator:  evaluator,
		Aggregator: usecase.NewResultAggregator(cfg.LevelThresholds()),
	}, usecase.InterviewOptions{
		CompanyName:     cfg.CompanyName,
		LockTTL:         cfg.SessionLockTTL,
		DeliveryTimeout: cfg.DeliveryTimeout,
	})

	// Background loops
	go app.NewSessionSweeper(interview, cfg.SessionRetention, cfg.SweepInterval).Run(ctx)
	if cfg.ResultRetentionDays > 0 {
		go postgres.NewCleanupService(pool, cfg.ResultRetentionDays).RunPeriodic(ctx, 24*time.Hour)
	}

	dbCheck, redisCheck, brokerCheck := app.BuildReadinessChecks(pool, redisPing, brokerPing)
	srv := httpserver.NewServer(cfg, interview, usecase.NewResultService(results), dbCheck, redisCheck, brokerCheck)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", slog.Any("error", err))
	}
	if err := interview.Close(shutdownCtx); err != nil {
		slog.Warn("result deliveries still pending at exit", slog.Any("error", err))
	}
	slog.Info("server stopped")
}
