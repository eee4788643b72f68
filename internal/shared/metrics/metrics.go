package metrics

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes.
const (
	OutcomeGenerated   = "generated"
	OutcomeRegenerated = "regenerated"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
)

// Registry holds every collector exported by /metrics.
var Registry = prometheus.NewRegistry()

var (
	formsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_forms_total",
		Help: "Intake form generation attempts by outcome.",
	}, []string{"outcome"})

	generationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pantry_form_generation_duration_seconds",
		Help:    "End to end form generation latency.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	renderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pantry_render_duration_seconds",
		Help:    "Renderer latency by backend.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"renderer"})

	degradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_degraded_total",
		Help: "Non-fatal steps skipped during generation.",
	}, []string{"step"})

	queueMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_queue_messages_total",
		Help: "Queue messages handled by result.",
	}, []string{"result"})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	panicsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_http_panics_total",
		Help: "Recovered handler panics by route.",
	}, []string{"route"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		formsTotal, generationDuration, renderDuration, degradedTotal, queueMessagesTotal, httpRequestsTotal, panicsTotal,
	)
}

// IncForms counts one generation attempt.
func IncForms(outcome string) {
	formsTotal.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records a generation duration.
func ObserveGeneration(d time.Duration) {
	generationDuration.Observe(d.Seconds())
}

// ObserveRender records a renderer call duration.
func ObserveRender(renderer string, d time.Duration) {
	renderDuration.WithLabelValues(renderer).Observe(d.Seconds())
}

// IncDegraded counts a skipped non-fatal step such as "recommendations" or "counts".
func IncDegraded(step string) {
	degradedTotal.WithLabelValues(step).Inc()
}

// IncQueueMessage counts a processed queue message by result.
func IncQueueMessage(result string) {
	queueMessagesTotal.WithLabelValues(result).Inc()
}

// ObserveHTTP counts a finished request.
func ObserveHTTP(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// IncPanic counts a recovered panic.
func IncPanic(route string) {
	if route == "" {
		route = "unmatched"
	}
	panicsTotal.WithLabelValues(route).Inc()
}

// RegisterDB exports pool stats for the forms database. Registering the same pool twice is a no-op.
func RegisterDB(db *sql.DB) error {
	if db == nil {
		return nil
	}
	err := Registry.Register(collectors.NewDBStatsCollector(db, "pantry"))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// HTTPHandler is Handler for plain net/http servers such as the worker.
func HTTPHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
