package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// ResultService provides read access to stored interview results and
// assembles the admin response including ETag handling.
type ResultService struct {
	Results domain.ResultRepository
}

// NewResultService constructs a ResultService with the given repository.
func NewResultService(r domain.ResultRepository) ResultService {
	return ResultService{Results: r}
}

// Fetch returns the HTTP status code, result and ETag for a candidate.
// A matching If-None-Match yields 304 with no body.
func (s ResultService) Fetch(ctx domain.Context, candidateKey, ifNoneMatch string) (int, *domain.SessionResult, string, error) {
	if candidateKey == "" {
		return http.StatusBadRequest, nil, "", fmt.Errorf("op=result.Fetch: %w: candidate key required", domain.ErrInvalidArgument)
	}
	res, err := s.Results.FindByCandidate(ctx, candidateKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return http.StatusNotFound, nil, "", fmt.Errorf("op=result.Fetch: %w: no result for candidate", domain.ErrNotFound)
		}
		slog.Error("failed to load result", slog.String("candidate_key", candidateKey), slog.Any("error", err))
		return http.StatusInternalServerError, nil, "", fmt.Errorf("op=result.Fetch: %w", err)
	}
	etag := makeETag(res)
	if etag == ifNoneMatch {
		return http.StatusNotModified, nil, etag, nil
	}
	return http.StatusOK, &res, etag, nil
}

func makeETag(v any) string {
	b, _ := json.Marshal(v)
	s := sha256.Sum256(b)
	return `"` + hex.EncodeToString(s[:16]) + `"`
}
