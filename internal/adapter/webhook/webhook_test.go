package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

func TestConstructors_EmptyURLDisables(t *testing.T) {
	assert.Nil(t, NewPublisher("", time.Second))
	assert.Nil(t, NewStatusClient("", time.Second))
}

func TestPublisher_PostsResult(t *testing.T) {
	res := domain.SessionResult{
		ID:           "r-1",
		CandidateKey: "zoho-1",
		AverageScore: 81.5,
		OverallLevel: domain.Level3,
		Status:       domain.StatusPassed,
		CompletedAt:  time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
	}
	var got domain.SessionResult
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, EventCompleted, r.Header.Get("X-Event"))
		assert.Equal(t, "r-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	require.NoError(t, NewPublisher(ts.URL, time.Second).Publish(context.Background(), res))
	assert.Equal(t, res.CandidateKey, got.CandidateKey)
	assert.Equal(t, res.AverageScore, got.AverageScore)
	assert.True(t, res.CompletedAt.Equal(got.CompletedAt))
}

func TestStatusClient_SendsUpdateByKey(t *testing.T) {
	var body map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	require.NoError(t, NewStatusClient(ts.URL, time.Second).NotifyStatus(context.Background(), "zoho-9", domain.StatusFailed))
	assert.Equal(t, map[string]string{"zoho_id": "zoho-9", "ai_interview_result": "failed"}, body)
}

func TestPost_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()
			err := NewStatusClient(ts.URL, time.Second).NotifyStatus(context.Background(), "k", domain.StatusPassed)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "op=status.Notify")
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestPost_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := NewPublisher(ts.URL, 5*time.Second).Publish(ctx, domain.SessionResult{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}
