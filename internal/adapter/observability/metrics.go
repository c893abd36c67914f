package observability

import (
	"net/http"
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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	SessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Total number of interview sessions started",
		},
	)
	SessionsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_finished_total",
			Help: "Total number of interview sessions finished by terminal status",
		},
		[]string{"status"},
	)
	QuestionsDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_questions_delivered_total",
			Help: "Total number of questions delivered to candidates by phase",
		},
		[]string{"phase"},
	)
	AgentFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_agent_fallbacks_total",
			Help: "Total number of degraded agent outcomes by component",
		},
		[]string{"component"},
	)

	ReportsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_enqueued_total",
			Help: "Total number of report tasks enqueued",
		},
	)
	ReportsProcessing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reports_processing",
			Help: "Number of report tasks currently processing",
		},
	)
	ReportsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_completed_total",
			Help: "Total number of report tasks completed",
		},
	)
	ReportsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_failed_total",
			Help: "Total number of report tasks failed",
		},
	)

	// Evaluation outcome distribution
	EvaluationScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_answer_score",
			Help:    "Distribution of answer scores (normalized fraction [0,1])",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
	ScoreDriftEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_score_drift_events_total",
			Help: "Times a domain's rolling mean score drifted past the threshold",
		},
		[]string{"domain"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(SessionsStartedTotal)
	prometheus.MustRegister(SessionsFinishedTotal)
	prometheus.MustRegister(QuestionsDeliveredTotal)
	prometheus.MustRegister(AgentFallbacksTotal)
	prometheus.MustRegister(ReportsEnqueuedTotal)
	prometheus.MustRegister(ReportsProcessing)
	prometheus.MustRegister(ReportsCompletedTotal)
	prometheus.MustRegister(ReportsFailedTotal)
	prometheus.MustRegister(EvaluationScoreHistogram)
	prometheus.MustRegister(ScoreDriftEventsTotal)
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
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// StartSession records a new interview session.
func StartSession() {
	SessionsStartedTotal.Inc()
}

// FinishSession records a session reaching a terminal status.
func FinishSession(status string) {
	SessionsFinishedTotal.WithLabelValues(status).Inc()
}

// DeliverQuestion records a question handed to the candidate.
func DeliverQuestion(phase string) {
	QuestionsDeliveredTotal.WithLabelValues(phase).Inc()
}

// AgentFallback records a component degrading to its fallback path.
func AgentFallback(component string) {
	AgentFallbacksTotal.WithLabelValues(component).Inc()
}

func EnqueueReport() {
	ReportsEnqueuedTotal.Inc()
}

func StartReport() {
	ReportsProcessing.Inc()
}

func CompleteReport() {
	ReportsProcessing.Dec()
	ReportsCompletedTotal.Inc()
}

func FailReport() {
	ReportsProcessing.Dec()
	ReportsFailedTotal.Inc()
}

// ObserveAnswerScore records one evaluation outcome.
func ObserveAnswerScore(score float64) {
	if score >= 0 && score <= 1 {
		EvaluationScoreHistogram.Observe(score)
	}
}
