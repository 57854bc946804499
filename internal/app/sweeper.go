package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Sweepable evicts sessions idle for longer than retention.
type Sweepable interface {
	Sweep(retention time.Duration) int
}

// SessionSweeper periodically drops finished and abandoned sessions from memory.
type SessionSweeper struct {
	sessions  Sweepable
	retention time.Duration
	interval  time.Duration
}

func NewSessionSweeper(sessions Sweepable, retention, interval time.Duration) *SessionSweeper {
	if sessions == nil {
		return nil
	}
	if retention <= 0 {
		retention = time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SessionSweeper{sessions: sessions, retention: retention, interval: interval}
}

// Run sweeps until ctx is cancelled.
func (s *SessionSweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *SessionSweeper) sweepOnce(ctx context.Context) int {
	_, span := otel.Tracer("sessions.sweeper").Start(ctx, "SessionSweeper.sweepOnce")
	defer span.End()

	n := s.sessions.Sweep(s.retention)
	span.SetAttributes(
		attribute.Float64("sessions.retention_seconds", s.retention.Seconds()),
		attribute.Int("sessions.evicted", n),
	)
	if n > 0 {
		slog.Info("session sweeper evicted idle sessions", slog.Int("evicted", n))
	}
	return n
}
