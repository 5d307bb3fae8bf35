package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

var errFull = errors.New("full")

// recordingSink is an in-memory SignalConnection that keeps every frame.
type recordingSink struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (s *recordingSink) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full || s.closed {
		return errFull
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *recordingSink) events(t *testing.T) []core.Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Envelope, 0, len(s.frames))
	for _, f := range s.frames {
		var env core.Envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("bad frame %s: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

func (s *recordingSink) ofType(t *testing.T, event string) []core.Envelope {
	t.Helper()
	var out []core.Envelope
	for _, env := range s.events(t) {
		if env.Type == event {
			out = append(out, env)
		}
	}
	return out
}

type harness struct {
	reg      *Registry
	rooms    *core.RoomTable
	relay    *Relay
	presence *Presence
	sinks    map[domain.ConnID]*recordingSink
}

func newHarness(exclusive bool, policy Policy) *harness {
	reg := NewRegistry()
	rooms := core.NewRoomTable()
	relay := NewRelay(reg, rooms, policy, nil)
	return &harness{
		reg:      reg,
		rooms:    rooms,
		relay:    relay,
		presence: NewPresence(rooms, relay, exclusive, nil),
		sinks:    make(map[domain.ConnID]*recordingSink),
	}
}

func (h *harness) connect(id domain.ConnID) *recordingSink {
	s := &recordingSink{}
	h.sinks[id] = s
	h.reg.Register(id, s, nil, nil)
	return s
}
