package orch

import (
	"context"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the single entry point the gateway calls for every
// connection event. Events of one connection must be handed in arrival order
// from one goroutine.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *core.RoomTable
	Presence *app.Presence
	Relay    *app.Relay
	Metrics  *metrics.Metrics
}

func New(policy app.Policy, exclusive bool, m *metrics.Metrics) *Orchestrator {
	reg := app.NewRegistry()
	rooms := core.NewRoomTable()
	relay := app.NewRelay(reg, rooms, policy, m)
	return &Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Presence: app.NewPresence(rooms, relay, exclusive, m),
		Relay:    relay,
		Metrics:  m,
	}
}

// Connect registers a freshly established channel and greets it with its id.
func (o *Orchestrator) Connect(sink core.SignalConnection, identity *domain.User, cancel context.CancelFunc) domain.ConnID {
	id := domain.ConnID(uuid.NewString())
	o.Registry.Register(id, sink, identity, cancel)
	o.Metrics.SetConnections(o.Registry.Count())
	o.Relay.Unicast(id, core.EventConnected, core.ConnectedPayload{ConnID: id})
	return id
}

func (o *Orchestrator) Handle(conn domain.ConnID, ev Inbound) {
	o.Metrics.Inbound(ev.Kind())
	switch e := ev.(type) {
	case JoinRoom:
		o.join(conn, e)
	case LeaveRoom:
		if e.RoomID == "" {
			log.Warn().Str("module", "orch").Str("conn", string(conn)).Msg("leave without room")
			return
		}
		o.Presence.Leave(e.RoomID, conn)
	case Signal:
		if e.To == "" {
			log.Warn().Str("module", "orch").Str("conn", string(conn)).Msg("signal without target")
			return
		}
		o.Relay.Unicast(e.To, core.EventSignal, core.SignalPayload{From: conn, Data: e.Data})
	case Chat:
		o.chat(conn, e)
	case Disconnect:
		o.Disconnect(conn)
	}
}

func (o *Orchestrator) join(conn domain.ConnID, e JoinRoom) {
	if e.RoomID == "" {
		log.Warn().Str("module", "orch").Str("conn", string(conn)).Msg("join without room")
		return
	}
	if user, ok := o.Registry.Identity(conn); ok {
		if e.UserID == "" {
			e.UserID = user.ID
		}
		if e.UserName == "" {
			e.UserName = user.Username
		}
	}
	log.Info().Str("module", "orch").Str("conn", string(conn)).Str("room", string(e.RoomID)).Str("user", string(e.UserID)).Msg("join")
	o.Presence.Join(e.RoomID, conn, e.UserID, e.UserName)
}

// chat is limited to members of the target room.
func (o *Orchestrator) chat(conn domain.ConnID, e Chat) {
	if e.RoomID == "" {
		log.Warn().Str("module", "orch").Str("conn", string(conn)).Msg("chat without room")
		return
	}
	if _, ok := o.Rooms.Lookup(e.RoomID, conn); !ok {
		log.Warn().Str("module", "orch").Str("conn", string(conn)).Str("room", string(e.RoomID)).Msg("chat from non-member dropped")
		return
	}
	o.Relay.Broadcast(e.RoomID, core.EventChatMessage, e.Payload, "")
}

// Disconnect must run once per channel termination. Afterwards conn is in no
// room and no longer resolvable as a delivery target.
func (o *Orchestrator) Disconnect(conn domain.ConnID) {
	left := o.Presence.DisconnectAll(conn)
	o.Registry.Unregister(conn)
	o.Metrics.SetConnections(o.Registry.Count())
	log.Info().Str("module", "orch").Str("conn", string(conn)).Int("rooms_left", len(left)).Msg("disconnected")
}
