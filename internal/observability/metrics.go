// Package observability exposes Prometheus metrics for uploads, sessions and generations.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"adaptstudio/internal/core"
)

const namespace = "adaptstudio"

// Metrics holds the studio collectors.
type Metrics struct {
	uploads            *prometheus.CounterVec
	uploadBytes        *prometheus.CounterVec
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	activeSessions     prometheus.Gauge
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total upload attempts per slot",
			},
			[]string{"slot", "status"},
		),
		uploadBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_bytes_total",
				Help:      "Total bytes of accepted uploads",
			},
			[]string{"slot"},
		),
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Total generation attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of the model call in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 15, 20, 30, 60, 120},
			},
			[]string{"provider"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Studio sessions currently held in memory",
			},
		),
	}
}

// ObserveUpload records one upload attempt for slot.
func (m *Metrics) ObserveUpload(slot core.SlotRole, size int64, err error) {
	m.uploads.WithLabelValues(string(slot), Outcome(err)).Inc()
	if err == nil {
		m.uploadBytes.WithLabelValues(string(slot)).Add(float64(size))
	}
}

// ObserveGeneration records one model call.
func (m *Metrics) ObserveGeneration(provider string, err error, elapsed time.Duration) {
	m.generations.WithLabelValues(provider, Outcome(err)).Inc()
	m.generationDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	m.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	m.activeSessions.Dec()
}

// Outcome maps err to a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	var studioErr *core.StudioError
	if errors.As(err, &studioErr) {
		return string(studioErr.Type)
	}
	return "error"
}
