// Package redis implements the per-candidate session lock on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// releaseScript deletes the key only while this owner still holds it, so an
// expired lock re-acquired elsewhere is never released from here.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker is a domain.SessionLock backed by SET NX PX.
type Locker struct {
	rdb     redis.UniversalClient
	prefix  string
	owner   string
	release *redis.Script
}

// New returns a Locker whose keys are prefix+candidateKey.
func New(rdb redis.UniversalClient, prefix string) *Locker {
	if prefix == "" {
		prefix = "interview:lock:"
	}
	return &Locker{
		rdb:     rdb,
		prefix:  prefix,
		owner:   uuid.NewString(),
		release: redis.NewScript(releaseScript),
	}
}

// NewFromURL parses a redis:// URL and builds a Locker over a fresh client.
func NewFromURL(url, prefix string) (*Locker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=lock.NewFromURL: %w: %v", domain.ErrInvalidArgument, err)
	}
	return New(redis.NewClient(opts), prefix), nil
}

// Acquire takes the lock for ttl. It reports false when another owner holds it.
func (l *Locker) Acquire(ctx context.Context, candidateKey string, ttl time.Duration) (bool, error) {
	if candidateKey == "" {
		return false, fmt.Errorf("op=lock.Acquire: %w: empty key", domain.ErrInvalidArgument)
	}
	err := l.rdb.SetArgs(ctx, l.prefix+candidateKey, l.owner, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("op=lock.Acquire: %w", err)
	}
}

// Release drops the lock if this owner still holds it.
func (l *Locker) Release(ctx context.Context, candidateKey string) error {
	if err := l.release.Run(ctx, l.rdb, []string{l.prefix + candidateKey}, l.owner).Err(); err != nil {
		return fmt.Errorf("op=lock.Release: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (l *Locker) Ping(ctx context.Context) error { return l.rdb.Ping(ctx).Err() }

// Close closes the underlying client.
func (l *Locker) Close() error { return l.rdb.Close() }
