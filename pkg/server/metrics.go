package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsNamespace prefixes all metric names.
const metricsNamespace = "petal"

// Metrics holds the server's Prometheus instruments. A nil *Metrics is
// valid and records nothing, so tests can run sessions without a
// registry.
type Metrics struct {
	eventsTotal    *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	patchesSent    prometheus.Counter
	patchBytes     prometheus.Counter
	handlerPanics  prometheus.Counter
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	wsErrors       *prometheus.CounterVec
}

// NewMetrics registers the server metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Client events processed, by event type and status",
		}, []string{"type", "status"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "event_duration_seconds",
			Help:      "Event handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),

		patchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "patches_sent_total",
			Help:      "DOM patches sent to clients",
		}),

		patchBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "patch_bytes_sent_total",
			Help:      "Encoded patch frame bytes sent to clients",
		}),

		handlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handler_panics_total",
			Help:      "Panics recovered while handling client events",
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Currently connected sessions",
		}),

		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_total",
			Help:      "Sessions created since start",
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_errors_total",
			Help:      "WebSocket errors by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) observeEvent(eventType string, err error, d time.Duration, patches int) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.eventsTotal.WithLabelValues(eventType, status).Inc()
	m.eventDuration.WithLabelValues(eventType).Observe(d.Seconds())
	if patches > 0 {
		m.patchesSent.Add(float64(patches))
	}
}

func (m *Metrics) recordPatchBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.patchBytes.Add(float64(n))
}

func (m *Metrics) recordHandlerPanic() {
	if m == nil {
		return
	}
	m.handlerPanics.Inc()
}

func (m *Metrics) recordSessionOpen() {
	if m == nil {
		return
	}
	m.sessionsTotal.Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) recordSessionClose() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) recordWebSocketError(kind string) {
	if m == nil {
		return
	}
	m.wsErrors.WithLabelValues(kind).Inc()
}
