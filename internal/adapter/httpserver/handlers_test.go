package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/ai-screening-interview/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-screening-interview/internal/config"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/internal/usecase"
)

type fakeInterview struct {
	mu       sync.Mutex
	startErr error
	views    []usecase.SessionView
	viewErr  error
	paste    *domain.PasteSignal
	reply    usecase.Reply
	replyErr error
	answers  []string
}

func (f *fakeInterview) Start(_ context.Context, key string) (usecase.Reply, error) {
	if f.startErr != nil {
		return usecase.Reply{}, f.startErr
	}
	return usecase.Reply{Phase: usecase.PhaseAwaitingFirstAnswer, Message: "Hi " + key, QuestionCount: 3}, nil
}

// View replays the configured views, sticking on the last one.
func (f *fakeInterview) View(key string) (usecase.SessionView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.viewErr != nil {
		return usecase.SessionView{}, f.viewErr
	}
	if len(f.views) == 0 {
		return usecase.SessionView{CandidateKey: key, Phase: usecase.PhaseInProgress}, nil
	}
	v := f.views[0]
	if len(f.views) > 1 {
		f.views = f.views[1:]
	}
	return v, nil
}

func (f *fakeInterview) RecordPaste(_ context.Context, _, _, _, _ string) (*domain.PasteSignal, error) {
	return f.paste, nil
}

func (f *fakeInterview) SubmitAnswer(_ context.Context, _, answer string) (usecase.Reply, error) {
	f.mu.Lock()
	f.answers = append(f.answers, answer)
	f.mu.Unlock()
	return f.reply, f.replyErr
}

type fakeResults struct {
	res domain.SessionResult
	err error
}

func (f fakeResults) Fetch(_ domain.Context, _, inm string) (int, *domain.SessionResult, string, error) {
	if f.err != nil {
		return 0, nil, "", f.err
	}
	if inm == `"v1"` {
		return http.StatusNotModified, nil, `"v1"`, nil
	}
	r := f.res
	return http.StatusOK, &r, `"v1"`, nil
}

func newRouter(srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/sessions", srv.StartSessionHandler())
	r.Get("/v1/sessions/{key}", srv.SessionHandler())
	r.Post("/v1/sessions/{key}/paste", srv.PasteHandler())
	r.Post("/v1/sessions/{key}/answers", srv.AnswerHandler())
	r.Get("/v1/sessions/{key}/events", srv.EventsHandler())
	r.Get("/v1/results/{key}", srv.ResultHandler())
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestStartSession(t *testing.T) {
	h := newRouter(httpserver.NewServer(config.Config{}, &fakeInterview{}, nil, nil, nil, nil))

	rec := do(t, h, http.MethodPost, "/v1/sessions", `{"candidate_key":"zc-42"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/sessions/zc-42", rec.Header().Get("Location"))
	var reply usecase.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "Hi zc-42", reply.Message)
	assert.Equal(t, 3, reply.QuestionCount)
}

func TestStartSession_Validation(t *testing.T) {
	h := newRouter(httpserver.NewServer(config.Config{}, &fakeInterview{}, nil, nil, nil, nil))

	tests := []struct {
		name, body, field string
	}{
		{"missing key", `{}`, "candidate_key"},
		{"bad characters", `{"candidate_key":"a b/c"}`, "candidate_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/sessions", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, "INVALID_ARGUMENT", e["code"])
			assert.Contains(t, e["details"], tt.field)
		})
	}

	rec := do(t, h, http.MethodPost, "/v1/sessions", `{"candidate_key":"a","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/sessions", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartSession_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("op=x: %w", domain.ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("op=x: %w", domain.ErrSettingsUnavailable), http.StatusServiceUnavailable, "SETTINGS_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := newRouter(httpserver.NewServer(config.Config{}, &fakeInterview{startErr: tt.err}, nil, nil, nil, nil))
			rec := do(t, h, http.MethodPost, "/v1/sessions", `{"candidate_key":"k1"}`)
			require.Equal(t, tt.status, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, tt.code, e["code"])
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, e["message"], "boom")
			}
		})
	}
}

func TestSessionView(t *testing.T) {
	fi := &fakeInterview{views: []usecase.SessionView{{CandidateKey: "k1", Phase: usecase.PhaseInProgress, QuestionCount: 5, TimeRemainingSeconds: 90}}}
	h := newRouter(httpserver.NewServer(config.Config{}, fi, nil, nil, nil, nil))

	rec := do(t, h, http.MethodGet, "/v1/sessions/k1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "in_progress", v["phase"])
	assert.EqualValues(t, 90, v["time_remaining_seconds"])

	fi.viewErr = fmt.Errorf("op=interview.View: %w: no session", domain.ErrNotFound)
	rec = do(t, h, http.MethodGet, "/v1/sessions/k1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaste(t *testing.T) {
	fi := &fakeInterview{}
	h := newRouter(httpserver.NewServer(config.Config{}, fi, nil, nil, nil, nil))
	body := `{"prior":"","fragment":"short","combined":"short"}`

	rec := do(t, h, http.MethodPost, "/v1/sessions/k1/paste", body)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	fi.paste = &domain.PasteSignal{WasPasted: true, PastedLength: 120, IsLikelyGenerated: true, ConfidencePercent: 80}
	rec = do(t, h, http.MethodPost, "/v1/sessions/k1/paste", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var sig domain.PasteSignal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sig))
	assert.Equal(t, 80, sig.ConfidencePercent)

	rec = do(t, h, http.MethodPost, "/v1/sessions/k1/paste", `{"prior":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswer(t *testing.T) {
	q := domain.Question{ID: 2, Section: domain.SectionTechnical, Text: "Explain closures"}
	fi := &fakeInterview{reply: usecase.Reply{Phase: usecase.PhaseInProgress, Question: &q, Answered: 1, QuestionCount: 3}}
	h := newRouter(httpserver.NewServer(config.Config{}, fi, nil, nil, nil, nil))

	rec := do(t, h, http.MethodPost, "/v1/sessions/k1/answers", `{"answer":"a function with its scope"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var reply usecase.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.NotNil(t, reply.Question)
	assert.Equal(t, "Explain closures", reply.Question.Text)
	assert.Equal(t, []string{"a function with its scope"}, fi.answers)

	rec = do(t, h, http.MethodPost, "/v1/sessions/k1/answers", `{"answer":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswer_ClosedSessionCarriesMessage(t *testing.T) {
	fi := &fakeInterview{
		reply:    usecase.Reply{Phase: usecase.PhaseExpired, Message: usecase.ClosedMessage},
		replyErr: fmt.Errorf("op=interview.SubmitAnswer: %w", domain.ErrSessionClosed),
	}
	h := newRouter(httpserver.NewServer(config.Config{}, fi, nil, nil, nil, nil))

	rec := do(t, h, http.MethodPost, "/v1/sessions/k1/answers", `{"answer":"late"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "SESSION_CLOSED", e["code"])
	details, ok := e["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "expired", details["phase"])
	assert.Equal(t, usecase.ClosedMessage, details["message"])
}

func TestAnswer_InFlight(t *testing.T) {
	fi := &fakeInterview{replyErr: fmt.Errorf("op=x: %w", domain.ErrSubmissionInFlight)}
	h := newRouter(httpserver.NewServer(config.Config{}, fi, nil, nil, nil, nil))
	rec := do(t, h, http.MethodPost, "/v1/sessions/k1/answers", `{"answer":"again"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SUBMISSION_IN_FLIGHT", decodeError(t, rec)["code"])
}

func TestResult_ETag(t *testing.T) {
	res := domain.SessionResult{ID: "r1", CandidateKey: "k1", AverageScore: 72.5, OverallLevel: domain.Level2, Status: domain.StatusPassed, CompletedAt: time.Now().UTC()}
	h := newRouter(httpserver.NewServer(config.Config{}, &fakeInterview{}, fakeResults{res: res}, nil, nil, nil))

	rec := do(t, h, http.MethodGet, "/v1/results/k1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"v1"`, rec.Header().Get("ETag"))
	var got domain.SessionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 72.5, got.AverageScore)

	rec = do(t, h, http.MethodGet, "/v1/results/k1", "", "If-None-Match", `"v1"`)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	rec = do(t, h, http.MethodGet, "/v1/results/k1", "", "Accept", "text/html")
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestResult_NotFound(t *testing.T) {
	h := newRouter(httpserver.NewServer(config.Config{}, &fakeInterview{}, fakeResults{err: fmt.Errorf("op=result.Fetch: %w", domain.ErrNotFound)}, nil, nil, nil))
	rec := do(t, h, http.MethodGet, "/v1/results/k1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	srv := httpserver.NewServer(config.Config{}, nil, nil, ok, nil, ok)
	rec := httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Checks []struct {
			Name string `json:"name"`
			OK   bool   `json:"ok"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "db", body.Checks[0].Name)
	assert.Equal(t, "broker", body.Checks[1].Name)

	srv = httpserver.NewServer(config.Config{}, nil, nil, ok, down, nil)
	rec = httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "refused")
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	(&httpserver.Server{}).HealthzHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
