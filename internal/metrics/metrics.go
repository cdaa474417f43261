// Package metrics exposes Prometheus collectors for the editor, the
// repositories and the HTTP server.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/flowboard/pkg/domain"
	"github.com/aretw0/flowboard/pkg/flow"
	"github.com/aretw0/flowboard/pkg/persistence/middleware"
	"github.com/aretw0/flowboard/pkg/validation"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
)

// Metrics holds every collector. Each instance owns its registry so tests and
// embedded servers do not collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	Mutations          *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	RepositoryDuration *prometheus.HistogramVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowboard_mutations_total",
				Help: "Graph store mutations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowboard_validation_failures_total",
				Help: "Field validation failures by reason",
			},
			[]string{"reason"},
		),
		RepositoryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowboard_repository_duration_seconds",
				Help:    "Duration of flow repository calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "outcome"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowboard_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowboard_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	m.registry.MustRegister(
		m.Mutations,
		m.ValidationFailures,
		m.RepositoryDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrFlowNotFound), errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrValidationFailed):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// StoreHooks counts graph store mutations.
func (m *Metrics) StoreHooks() flow.Hooks {
	return flow.Hooks{
		OnMutation: func(op string, err error) {
			m.Mutations.WithLabelValues(op, outcome(err)).Inc()
		},
	}
}

// RepositoryObserver times repository calls; pass it to
// middleware.NewInstrumentMiddleware.
func (m *Metrics) RepositoryObserver() middleware.Observer {
	return func(op string, took time.Duration, err error) {
		m.RepositoryDuration.WithLabelValues(op, outcome(err)).Observe(took.Seconds())
	}
}

// ObserveValidation counts the failed results.
func (m *Metrics) ObserveValidation(results []validation.Result) {
	for _, r := range results {
		if !r.Valid {
			m.ValidationFailures.WithLabelValues(r.Reason).Inc()
		}
	}
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and durations per chi route pattern,
// so ids in the path do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
