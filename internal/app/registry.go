package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Sink        core.SignalConnection
	Identity    *domain.User
	Cancel      context.CancelFunc
	ConnectedAt time.Time
}

// Registry tracks live connections. It has no room knowledge.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.ConnID]*connEntry),
	}
}

// Register binds a live channel to id. identity may be nil when admission
// does not require authentication.
func (r *Registry) Register(
	id domain.ConnID,
	sink core.SignalConnection,
	identity *domain.User,
	cancel context.CancelFunc,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{
		Sink:        sink,
		Identity:    identity,
		Cancel:      cancel,
		ConnectedAt: time.Now(),
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
}

// Unregister reports whether id was live.
func (r *Registry) Unregister(id domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered connection")
	return true
}

func (r *Registry) Lookup(id domain.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Sink, true
	}
	return nil, false
}

func (r *Registry) Identity(id domain.ConnID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.Identity == nil {
		return nil, false
	}
	return e.Identity, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Cancel asks the gateway to terminate the connection. Termination cleanup
// still runs through the normal disconnect path.
func (r *Registry) Cancel(id domain.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}
