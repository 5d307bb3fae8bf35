// Package metrics exposes relay counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "huddle"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	deliveries  *prometheus.CounterVec
	inbound     *prometheus.CounterVec
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of live signaling connections",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Number of rooms with at least one member",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound events by event name and outcome",
		}, []string{"event", "outcome"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound events by type",
		}, []string{"type"}),
	}
	reg.MustRegister(m.connections, m.rooms, m.deliveries, m.inbound)
	return m
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) SetRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

func (m *Metrics) Delivered(event string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.deliveries.WithLabelValues(event, "sent").Add(float64(n))
}

func (m *Metrics) Dropped(event string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.deliveries.WithLabelValues(event, "dropped").Add(float64(n))
}

func (m *Metrics) Inbound(kind string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(kind).Inc()
}
