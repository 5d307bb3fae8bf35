package app

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Relay delivers opaque payloads to one connection or to a whole room.
// Delivery is fire-and-forget: a target that is gone or cannot take the frame
// right now is skipped, never awaited.
type Relay struct {
	Registry *Registry
	Rooms    *core.RoomTable
	Policy   Policy
	Metrics  *metrics.Metrics
}

func NewRelay(reg *Registry, rooms *core.RoomTable, policy Policy, m *metrics.Metrics) *Relay {
	return &Relay{Registry: reg, Rooms: rooms, Policy: policy, Metrics: m}
}

// Unicast reports whether the frame was queued on the target's channel.
func (r *Relay) Unicast(to domain.ConnID, event string, payload any) bool {
	sink, ok := r.Registry.Lookup(to)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("to", string(to)).Str("event", event).Msg("unicast target gone")
		r.Metrics.Dropped(event, 1)
		return false
	}
	frame, err := core.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("event", event).Msg("encode")
		return false
	}
	if err := sink.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("to", string(to)).Str("event", event).Msg("unicast dropped")
		r.Metrics.Dropped(event, 1)
		r.applyPolicy("", []domain.ConnID{to})
		return false
	}
	r.Metrics.Delivered(event, 1)
	return true
}

// Broadcast fans one frame out to a snapshot of the room. A failed target
// does not stop delivery to the others.
func (r *Relay) Broadcast(room domain.RoomID, event string, payload any, excluding domain.ConnID) core.PublishResult {
	res := core.PublishResult{}
	members := r.Rooms.MembersOf(room, excluding)
	if len(members) == 0 {
		return res
	}
	frame, err := core.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("event", event).Msg("encode")
		return res
	}

	for _, m := range members {
		sink, ok := r.Registry.Lookup(m.ConnID)
		if !ok {
			continue
		}
		if err := sink.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, m.ConnID)
			continue
		}
		res.SendTo++
	}

	r.Metrics.Delivered(event, res.SendTo)
	r.Metrics.Dropped(event, len(res.Dropped))
	log.Debug().Str("module", "app.relay").Str("room", string(room)).Str("event", event).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")

	r.applyPolicy(room, res.Dropped)
	return res
}

func (r *Relay) applyPolicy(room domain.RoomID, dropped []domain.ConnID) {
	if r.Policy == nil {
		return
	}
	for _, conn := range dropped {
		switch r.Policy.OnBackPressure(room, conn) {
		case KickMember:
			log.Warn().Str("module", "app.relay").Str("room", string(room)).Str("conn", string(conn)).Msg("kicking slow connection")
			r.Registry.Cancel(conn)
		case DropFrame, NoAction:
		}
	}
}
