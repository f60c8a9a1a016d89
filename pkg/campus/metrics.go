package campus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the catalog.
type Metrics struct {
	Registry *prometheus.Registry

	// RequestsTotal counts accessor calls by record kind and result source.
	RequestsTotal *prometheus.CounterVec
	// RetriesTotal counts backoff retries against the generative backend.
	RetriesTotal prometheus.Counter
	// FallbacksTotal counts wholesale fallback substitutions by kind.
	FallbacksTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_requests_total",
			Help: "Total accessor calls by record kind and result source.",
		},
		[]string{"kind", "source"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_retries_total",
			Help: "Total rate-limit retries against the generative backend.",
		},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_fallbacks_total",
			Help: "Total wholesale fallback substitutions by record kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(requests, retries, fallbacks)

	return &Metrics{
		Registry:       registry,
		RequestsTotal:  requests,
		RetriesTotal:   retries,
		FallbacksTotal: fallbacks,
	}
}

func (m *Metrics) countRequest(kind string, source Source) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(kind, string(source)).Inc()
	if source == SourceFallback {
		m.FallbacksTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) countRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}
