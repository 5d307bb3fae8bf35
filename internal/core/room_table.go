package core

import (
	"sync"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type memberSet map[domain.ConnID]domain.Member

// RoomTable is the threadsafe in-memory map of rooms to members.
// A room exists only while it has at least one member.
// It never touches transport resources.
type RoomTable struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]memberSet
	byConn map[domain.ConnID]map[domain.RoomID]struct{}
	// onCount sees the room count after every mutation, in mutation order.
	onCount func(rooms int)
}

func NewRoomTable() *RoomTable {
	return &RoomTable{
		rooms:  make(map[domain.RoomID]memberSet),
		byConn: make(map[domain.ConnID]map[domain.RoomID]struct{}),
	}
}

// OnCountChange registers fn to be called with the number of rooms after each
// join or leave. fn runs under the table lock and must not call back into it.
func (t *RoomTable) OnCountChange(fn func(rooms int)) {
	t.mu.Lock()
	t.onCount = fn
	t.mu.Unlock()
}

func (t *RoomTable) countChanged() {
	if t.onCount != nil {
		t.onCount(len(t.rooms))
	}
}

// Join inserts m into the room, creating the room if needed. A second join with
// the same ConnID overwrites the entry. peers is the membership excluding m,
// taken under the same lock as the insert.
func (t *RoomTable) Join(id domain.RoomID, m domain.Member) (peers []domain.Member, replaced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[id]
	if !ok {
		set = make(memberSet)
		t.rooms[id] = set
		log.Debug().Str("module", "core.rooms").Str("room", string(id)).Msg("room created")
	}
	_, replaced = set[m.ConnID]
	set[m.ConnID] = m

	rooms, ok := t.byConn[m.ConnID]
	if !ok {
		rooms = make(map[domain.RoomID]struct{})
		t.byConn[m.ConnID] = rooms
	}
	rooms[id] = struct{}{}

	peers = snapshot(set, m.ConnID)
	t.countChanged()
	log.Info().Str("module", "core.rooms").Str("room", string(id)).Str("conn", string(m.ConnID)).Bool("replaced", replaced).Msg("member added")
	return peers, replaced
}

// Leave removes the member and deletes the room once it is empty.
// It reports the removed member, or false if there was nothing to remove.
func (t *RoomTable) Leave(id domain.RoomID, conn domain.ConnID) (domain.Member, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[id]
	if !ok {
		return domain.Member{}, false
	}
	m, ok := set[conn]
	if !ok {
		return domain.Member{}, false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(t.rooms, id)
		log.Debug().Str("module", "core.rooms").Str("room", string(id)).Msg("room deleted")
	}
	if rooms, ok := t.byConn[conn]; ok {
		delete(rooms, id)
		if len(rooms) == 0 {
			delete(t.byConn, conn)
		}
	}
	t.countChanged()
	log.Info().Str("module", "core.rooms").Str("room", string(id)).Str("conn", string(conn)).Msg("member removed")
	return m, true
}

// MembersOf returns a copy of the room's members without excluding.
// An empty excluding keeps everyone.
func (t *RoomTable) MembersOf(id domain.RoomID, excluding domain.ConnID) []domain.Member {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.rooms[id]
	if !ok {
		return nil
	}
	return snapshot(set, excluding)
}

func (t *RoomTable) RoomsContaining(conn domain.ConnID) []domain.RoomID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rooms := t.byConn[conn]
	out := make([]domain.RoomID, 0, len(rooms))
	for id := range rooms {
		out = append(out, id)
	}
	return out
}

func (t *RoomTable) Lookup(id domain.RoomID, conn domain.ConnID) (domain.Member, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.rooms[id][conn]
	return m, ok
}

func (t *RoomTable) Exists(id domain.RoomID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[id]
	return ok
}

// Len is the number of live rooms.
func (t *RoomTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

func (t *RoomTable) List() []RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RoomInfo, 0, len(t.rooms))
	for id, set := range t.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(set)})
	}
	return out
}

func snapshot(set memberSet, excluding domain.ConnID) []domain.Member {
	out := make([]domain.Member, 0, len(set))
	for conn, m := range set {
		if excluding != "" && conn == excluding {
			continue
		}
		out = append(out, m)
	}
	return out
}
