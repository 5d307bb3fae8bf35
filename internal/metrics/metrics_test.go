package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Delivered("signal", 2)
	m.Dropped("signal", 1)
	m.Delivered("chat-message", 0)
	m.SetConnections(3)
	m.Inbound("join-room")

	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("signal", "sent")); got != 2 {
		t.Errorf("sent = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("signal", "dropped")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connections); got != 3 {
		t.Errorf("connections = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.inbound.WithLabelValues("join-room")); got != 1 {
		t.Errorf("inbound = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Delivered("signal", 1)
	m.Dropped("signal", 1)
	m.SetRooms(1)
	m.SetConnections(1)
	m.Inbound("ping")
}
