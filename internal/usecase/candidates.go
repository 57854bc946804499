package usecase

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// CandidateDirectory memoizes candidate lookups. Concurrent callers for the
// same key share one repository call; only successful lookups are cached.
type CandidateDirectory struct {
	repo  domain.CandidateRepository
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]domain.Candidate
}

// NewCandidateDirectory wraps repo with a memoized fetch.
func NewCandidateDirectory(repo domain.CandidateRepository) *CandidateDirectory {
	return &CandidateDirectory{repo: repo, cache: map[string]domain.Candidate{}}
}

// Get returns the candidate for key, fetching it at most once while a fetch is in flight.
func (d *CandidateDirectory) Get(ctx context.Context, key string) (domain.Candidate, error) {
	if key == "" {
		return domain.Candidate{}, fmt.Errorf("op=candidates.Get: %w: empty key", domain.ErrInvalidArgument)
	}
	d.mu.RLock()
	c, ok := d.cache[key]
	d.mu.RUnlock()
	if ok {
		return c, nil
	}
	if d.repo == nil {
		return domain.Candidate{}, fmt.Errorf("op=candidates.Get: %w", domain.ErrNotFound)
	}

	// the shared fetch must not die with whichever caller started it
	fetchCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(key, func() (any, error) {
		c, err := d.repo.Get(fetchCtx, key)
		if err != nil {
			return domain.Candidate{}, err
		}
		d.mu.Lock()
		d.cache[key] = c
		d.mu.Unlock()
		return c, nil
	})

	select {
	case <-ctx.Done():
		return domain.Candidate{}, fmt.Errorf("op=candidates.Get: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.Candidate{}, fmt.Errorf("op=candidates.Get: %w", res.Err)
		}
		return res.Val.(domain.Candidate), nil
	}
}

// Forget drops a cached candidate so the next Get refetches it.
func (d *CandidateDirectory) Forget(key string) {
	d.mu.Lock()
	delete(d.cache, key)
	d.mu.Unlock()
}

// UpdateAssessmentStatus writes through to the repository and keeps the cache in step.
func (d *CandidateDirectory) UpdateAssessmentStatus(ctx context.Context, key string, status domain.AssessmentStatus) error {
	if d.repo == nil {
		return nil
	}
	if err := d.repo.UpdateAssessmentStatus(ctx, key, status); err != nil {
		return err
	}
	d.mu.Lock()
	if c, ok := d.cache[key]; ok {
		c.AssessmentStatus = status
		d.cache[key] = c
	}
	d.mu.Unlock()
	return nil
}

// NotifyStatus lets the directory act as a StatusNotifier over the candidate table.
func (d *CandidateDirectory) NotifyStatus(ctx context.Context, key string, status domain.AssessmentStatus) error {
	return d.UpdateAssessmentStatus(ctx, key, status)
}
