package usecase

import (
	"context"
	"errors"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// StatusFanout delivers one status change to every notifier. All notifiers
// are tried; their errors are joined.
type StatusFanout []domain.StatusNotifier

func (f StatusFanout) NotifyStatus(ctx context.Context, candidateKey string, status domain.AssessmentStatus) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.NotifyStatus(ctx, candidateKey, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
