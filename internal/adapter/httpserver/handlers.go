package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-screening-interview/internal/config"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/internal/usecase"
)

// InterviewAPI is the slice of usecase.InterviewService the handlers drive.
type InterviewAPI interface {
	Start(ctx context.Context, candidateKey string) (usecase.Reply, error)
	View(candidateKey string) (usecase.SessionView, error)
	RecordPaste(ctx context.Context, candidateKey, prior, fragment, combined string) (*domain.PasteSignal, error)
	SubmitAnswer(ctx context.Context, candidateKey, answer string) (usecase.Reply, error)
}

// ResultFetcher loads a stored result with ETag handling.
type ResultFetcher interface {
	Fetch(ctx domain.Context, candidateKey, ifNoneMatch string) (int, *domain.SessionResult, string, error)
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg         config.Config
	Interview   InterviewAPI
	Results     ResultFetcher
	DBCheck     func(ctx context.Context) error
	RedisCheck  func(ctx context.Context) error
	BrokerCheck func(ctx context.Context) error
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, interview InterviewAPI, results ResultFetcher, dbCheck, redisCheck, brokerCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Interview: interview, Results: results, DBCheck: dbCheck, RedisCheck: redisCheck, BrokerCheck: brokerCheck}
}

type startRequest struct {
	CandidateKey string `json:"candidate_key" validate:"required,max=100,candidatekey"`
}

type pasteRequest struct {
	Prior    string `json:"prior" validate:"max=20000"`
	Fragment string `json:"fragment" validate:"required,max=20000"`
	Combined string `json:"combined" validate:"required,max=40000"`
}

type answerRequest struct {
	Answer string `json:"answer" validate:"required,max=20000"`
}

func candidateKeyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if err := ValidateCandidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// StartSessionHandler opens or resumes the interview for a candidate.
func (s *Server) StartSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		reply, err := s.Interview.Start(r.Context(), req.CandidateKey)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		status := http.StatusOK
		if reply.Phase == usecase.PhaseAwaitingFirstAnswer {
			status = http.StatusCreated
		}
		w.Header().Set("Location", "/v1/sessions/"+req.CandidateKey)
		writeJSON(w, status, reply)
	}
}

// SessionHandler returns a snapshot of the live session.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := candidateKeyParam(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		v, err := s.Interview.View(key)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// PasteHandler records a paste event. 204 means the fragment was too short to judge.
func (s *Server) PasteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := candidateKeyParam(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req pasteRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		sig, err := s.Interview.RecordPaste(r.Context(), key, req.Prior, req.Fragment, req.Combined)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if sig == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, sig)
	}
}

// AnswerHandler submits the answer to the current question and waits for its score.
func (s *Server) AnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := candidateKeyParam(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req answerRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		reply, err := s.Interview.SubmitAnswer(r.Context(), key, req.Answer)
		if err != nil {
			if errors.Is(err, domain.ErrSessionClosed) {
				writeError(w, r, err, map[string]any{"phase": reply.Phase, "message": reply.Message})
				return
			}
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

// ResultHandler returns the stored result for a candidate.
func (s *Server) ResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
			writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a},
			}})
			return
		}
		key, err := candidateKeyParam(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		status, res, etag, err := s.Results.Fetch(r.Context(), key, r.Header.Get("If-None-Match"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", etag)
		if status == http.StatusNotModified {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, res)
	}
}

// HealthzHandler reports liveness only.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// ReadyzHandler probes Postgres, Redis and the broker when they are configured.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"broker", s.BrokerCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			c := check{Name: p.name, OK: true}
			if err := p.fn(ctx); err != nil {
				c.OK, c.Details = false, err.Error()
				ok = false
			}
			checks = append(checks, c)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// NotFoundHandler keeps 404s in the JSON envelope.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, fmt.Errorf("%w: %s", domain.ErrNotFound, r.URL.Path), nil)
	}
}

// MethodNotAllowedHandler keeps 405s in the JSON envelope.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		b, _ := json.Marshal(errorEnvelope{Error: apiError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"}})
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write(b)
	}
}
