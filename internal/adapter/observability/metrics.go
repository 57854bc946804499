package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_prompt_tokens_total",
			Help: "Estimated prompt tokens sent to the scoring oracle",
		},
		[]string{"model"},
	)

	AnswersEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_answers_evaluated_total",
			Help: "Answers evaluated, by level and outcome (scored, fallback, violation)",
		},
		[]string{"level", "outcome"},
	)
	OracleFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_oracle_fallbacks_total",
			Help: "Answers that received the fallback score because the oracle failed",
		},
		[]string{"reason"},
	)
	IntegrityViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_integrity_violations_total",
			Help: "Answers zeroed for integrity, by trigger (oracle, paste)",
		},
		[]string{"trigger"},
	)
	PasteSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_paste_signals_total",
			Help: "Analysed paste events, by likely_generated",
		},
		[]string{"likely_generated"},
	)
	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_total",
			Help: "Session lifecycle events (started, completed, expired, already_submitted)",
		},
		[]string{"outcome"},
	)
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_sessions_active",
			Help: "Sessions currently held in memory",
		},
	)
	ResultDeliveryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_result_delivery_failures_total",
			Help: "Best-effort result deliveries that failed, by sink",
		},
		[]string{"sink"},
	)
	ResultEventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_result_events_published_total",
			Help: "Result events written to the message broker, by topic",
		},
		[]string{"topic"},
	)
	OracleBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_oracle_breaker_state",
			Help: "Oracle circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)
	ScoreDriftGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "interview_score_drift",
			Help: "Absolute drift of the rolling mean answer score from its baseline",
		},
		[]string{"model"},
	)

	AnswerScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_answer_score",
			Help:    "Distribution of per-answer overall scores ([0,100])",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
	SessionScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_session_average_score",
			Help:    "Distribution of completed session average scores ([0,100])",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AITokensTotal)
	prometheus.MustRegister(AnswersEvaluatedTotal)
	prometheus.MustRegister(OracleFallbacksTotal)
	prometheus.MustRegister(IntegrityViolationsTotal)
	prometheus.MustRegister(PasteSignalsTotal)
	prometheus.MustRegister(SessionsTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(ResultDeliveryFailuresTotal)
	prometheus.MustRegister(ResultEventsPublishedTotal)
	prometheus.MustRegister(OracleBreakerState)
	prometheus.MustRegister(ScoreDriftGauge)
	prometheus.MustRegister(AnswerScoreHistogram)
	prometheus.MustRegister(SessionScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveAnswer records one evaluated answer. outcome is scored, fallback or violation.
func ObserveAnswer(level, outcome string, score int) {
	AnswersEvaluatedTotal.WithLabelValues(level, outcome).Inc()
	if score >= 0 && score <= 100 {
		AnswerScoreHistogram.Observe(float64(score))
	}
}

// RecordOracleFallback counts an answer that fell back because the oracle failed.
func RecordOracleFallback(reason string) {
	OracleFallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordIntegrityViolation counts an answer zeroed for integrity.
func RecordIntegrityViolation(trigger string) {
	IntegrityViolationsTotal.WithLabelValues(trigger).Inc()
}

// RecordPasteSignal counts an analysed paste event.
func RecordPasteSignal(likelyGenerated bool) {
	PasteSignalsTotal.WithLabelValues(strconv.FormatBool(likelyGenerated)).Inc()
}

// RecordSession counts a session lifecycle event.
func RecordSession(outcome string) {
	SessionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSessionScore records a completed session's average score.
func ObserveSessionScore(avg float64) {
	if avg >= 0 && avg <= 100 {
		SessionScoreHistogram.Observe(avg)
	}
}

// RecordDeliveryFailure counts a failed best-effort result delivery.
func RecordDeliveryFailure(sink string) {
	ResultDeliveryFailuresTotal.WithLabelValues(sink).Inc()
}

// RecordResultEvent counts a result event acknowledged by the broker.
func RecordResultEvent(topic string) {
	ResultEventsPublishedTotal.WithLabelValues(topic).Inc()
}
