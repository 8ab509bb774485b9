// Package metrics exposes Prometheus instruments for the roadmap and fluency flows.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "career_roadmap"

// Outcome label values. Failures use the apperr kind code.
const OutcomeSuccess = "success"

// Manager owns a registry and the instruments registered on it.
// A nil *Manager is valid and records nothing.
type Manager struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	fluencySessions    *prometheus.CounterVec
	fluencyStage       *prometheus.HistogramVec
	transcodedBytes    prometheus.Histogram

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec
}

// NewManager registers all instruments on a fresh registry
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	auto := promauto.With(reg)

	return &Manager{
		registry: reg,
		generations: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roadmap",
			Name:      "generations_total",
			Help:      "Roadmap generations by provider and outcome",
		}, []string{"provider", "outcome"}),
		generationDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "roadmap",
			Name:      "generation_duration_seconds",
			Help:      "Time spent waiting for the provider, including validation",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),
		fluencySessions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fluency",
			Name:      "sessions_total",
			Help:      "Fluency sessions by outcome",
		}, []string{"outcome"}),
		fluencyStage: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fluency",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each fluency session stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		transcodedBytes: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fluency",
			Name:      "normalized_wav_bytes",
			Help:      "Size of normalized WAV payloads sent for scoring",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		rateLimited: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"route"}),
	}
}

// Registry returns the underlying registry
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveGeneration records one roadmap generation
func (m *Manager) ObserveGeneration(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(provider, outcome).Inc()
	m.generationDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveFluencySession records the final outcome of one fluency session
func (m *Manager) ObserveFluencySession(outcome string) {
	if m == nil {
		return
	}
	m.fluencySessions.WithLabelValues(outcome).Inc()
}

// ObserveFluencyStage records how long one session stage took
func (m *Manager) ObserveFluencyStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.fluencyStage.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveNormalizedBytes records the size of a normalized WAV payload
func (m *Manager) ObserveNormalizedBytes(n int) {
	if m == nil {
		return
	}
	m.transcodedBytes.Observe(float64(n))
}

// ObserveHTTPRequest records one served request
func (m *Manager) ObserveHTTPRequest(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// IncRateLimited records a request rejected by the rate limiter
func (m *Manager) IncRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}
