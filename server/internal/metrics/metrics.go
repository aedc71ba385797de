// Package metrics defines the relay's Prometheus collectors.
//
// Collectors are registered on a caller-supplied registry so each server (and
// each test) owns an isolated set. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the relay counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	eventsReceived  *prometheus.CounterVec
	eventsFailed    *prometheus.CounterVec
	framesDelivered prometheus.Counter
	framesDropped   prometheus.Counter
	clients         prometheus.Gauge
}

// New creates a registry with the relay collectors plus the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		eventsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orderrelay_events_received_total",
			Help: "Inbound events accepted for broadcast, by ingest source.",
		}, []string{"source"}),
		eventsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orderrelay_events_failed_total",
			Help: "Inbound events that could not be broadcast, by ingest source.",
		}, []string{"source"}),
		framesDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "orderrelay_frames_delivered_total",
			Help: "Frames queued to connected clients.",
		}),
		framesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "orderrelay_frames_dropped_total",
			Help: "Frames dropped because a client's send buffer was full.",
		}),
		clients: f.NewGauge(prometheus.GaugeOpts{
			Name: "orderrelay_connected_clients",
			Help: "WebSocket clients currently connected.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventReceived counts one accepted inbound event from source.
func (m *Metrics) EventReceived(source string) {
	if m != nil {
		m.eventsReceived.WithLabelValues(source).Inc()
	}
}

// EventFailed counts one inbound event from source that failed to broadcast.
func (m *Metrics) EventFailed(source string) {
	if m != nil {
		m.eventsFailed.WithLabelValues(source).Inc()
	}
}

// FramesDelivered adds n queued frames.
func (m *Metrics) FramesDelivered(n int) {
	if m != nil && n > 0 {
		m.framesDelivered.Add(float64(n))
	}
}

// FrameDropped counts one frame dropped for a slow client.
func (m *Metrics) FrameDropped() {
	if m != nil {
		m.framesDropped.Inc()
	}
}

// ClientConnected increments the connected-client gauge.
func (m *Metrics) ClientConnected() {
	if m != nil {
		m.clients.Inc()
	}
}

// ClientDisconnected decrements the connected-client gauge.
func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.clients.Dec()
	}
}
