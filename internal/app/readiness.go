// Package app assembles the HTTP surface and the background loops of the server.
package app

import (
	"context"
	"fmt"
)

// Pinger is anything that can report its own reachability.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the db, redis and broker checks. A nil
// dependency yields a nil check, which /readyz skips.
func BuildReadinessChecks(db, redis, broker Pinger) (dbCheck, redisCheck, brokerCheck func(context.Context) error) {
	return check("db", db), check("redis", redis), check("broker", broker)
}

func check(name string, p Pinger) func(context.Context) error {
	if p == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}
