package app

import (
	"hash/fnv"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Presence applies join/leave to the room table and tells the room about it.
// Every operation tolerates duplicates and events against a membership that
// no longer exists.
type Presence struct {
	Rooms *core.RoomTable
	Relay *Relay
	// Exclusive keeps each connection in at most one room: joining a room
	// first leaves any other room the connection is in.
	Exclusive bool
	Metrics   *metrics.Metrics

	// A room's membership change and the frames announcing it are ordered
	// under that room's stripe, so every member sees them in table order.
	locks [roomStripes]sync.Mutex
}

const roomStripes = 64

func NewPresence(rooms *core.RoomTable, relay *Relay, exclusive bool, m *metrics.Metrics) *Presence {
	rooms.OnCountChange(m.SetRooms)
	return &Presence{Rooms: rooms, Relay: relay, Exclusive: exclusive, Metrics: m}
}

func (p *Presence) lockFor(room domain.RoomID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(room))
	return &p.locks[h.Sum32()%roomStripes]
}

// Join adds the member, sends the current participants to the joiner and
// announces the joiner to everyone else. It returns the participants.
func (p *Presence) Join(room domain.RoomID, conn domain.ConnID, userID domain.UserID, userName string) []domain.Member {
	if p.Exclusive {
		for _, other := range p.Rooms.RoomsContaining(conn) {
			if other != room {
				log.Info().Str("module", "app.presence").Str("conn", string(conn)).Str("from_room", string(other)).Msg("leaving previous room")
				p.Leave(other, conn)
			}
		}
	}

	mu := p.lockFor(room)
	mu.Lock()
	defer mu.Unlock()

	m := domain.NewMember(conn, userID, userName)
	peers, _ := p.Rooms.Join(room, m)
	p.Relay.Unicast(conn, core.EventAllParticipants, peers)
	p.Relay.Broadcast(room, core.EventNewParticipant, m, conn)
	return peers
}

// Leave reports whether conn was a member. Nothing is emitted otherwise.
func (p *Presence) Leave(room domain.RoomID, conn domain.ConnID) bool {
	mu := p.lockFor(room)
	mu.Lock()
	defer mu.Unlock()

	m, ok := p.Rooms.Leave(room, conn)
	if !ok {
		return false
	}
	p.Relay.Broadcast(room, core.EventParticipantLeft, core.LeftPayload{ConnID: m.ConnID, UserID: m.UserID}, conn)
	return true
}

// DisconnectAll leaves every room conn is in and returns those rooms.
func (p *Presence) DisconnectAll(conn domain.ConnID) []domain.RoomID {
	var left []domain.RoomID
	for _, room := range p.Rooms.RoomsContaining(conn) {
		if p.Leave(room, conn) {
			left = append(left, room)
		}
	}
	return left
}
