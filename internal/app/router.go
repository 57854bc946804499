package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-screening-interview/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-screening-interview/internal/config"
)

// ParseOrigins splits a comma-separated origin list, trimming spaces.
// Empty input means every origin.
func ParseOrigins(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.NotFound(httpserver.NotFoundHandler())
	r.MethodNotAllowed(httpserver.MethodNotAllowedHandler())

	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "ETag", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1/sessions", func(sr chi.Router) {
		sr.Group(func(wr chi.Router) {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			wr.Post("/", srv.StartSessionHandler())
			wr.Post("/{key}/answers", srv.AnswerHandler())
			wr.Post("/{key}/paste", srv.PasteHandler())
		})
		sr.Get("/{key}", srv.SessionHandler())
		// no timeout wrapper: the socket lives for the whole interview
		sr.Get("/{key}/events", srv.EventsHandler())
	})

	r.Group(func(ar chi.Router) {
		if cfg.AdminEnabled() {
			ar.Use(httpserver.AdminGuard(cfg.AdminUsername, cfg.AdminPasswordHash))
		}
		ar.Get("/v1/results/{key}", srv.ResultHandler())
	})

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
