// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jukebox"

// Apply results.
const (
	ResultApplied = "applied"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	eventsAppended *prometheus.CounterVec
	eventsApplied  *prometheus.CounterVec
	applyDuration  *prometheus.HistogramVec
	connections    prometheus.Gauge
	rejected       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_appended_total",
			Help:      "Events appended to the event log.",
		}, []string{"type"}),
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Events handled by the materializer.",
		}, []string{"type", "result"}),
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_apply_duration_seconds",
			Help:      "Time spent applying one event and broadcasting its result.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"type"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_connections",
			Help:      "Open websocket connections joined to a room.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_rejected_total",
			Help:      "Client actions rejected before reaching the event log.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.eventsAppended,
		m.eventsApplied,
		m.applyDuration,
		m.connections,
		m.rejected,
	)

	return m
}

func (m *Metrics) EventAppended(eventType string) {
	m.eventsAppended.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventApplied(eventType, result string, d time.Duration) {
	m.eventsApplied.WithLabelValues(eventType, result).Inc()
	m.applyDuration.WithLabelValues(eventType).Observe(d.Seconds())
}

func (m *Metrics) ConnectionOpened() {
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.connections.Dec()
}

func (m *Metrics) ActionRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
