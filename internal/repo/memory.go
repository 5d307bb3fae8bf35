package repo

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

// NewMemoryStore backs every repository with process memory. Nothing survives
// a restart; it serves tests and the "memory" store driver.
func NewMemoryStore(maxLen int) Store {
	return Store{
		Messages: NewMemoryMessageRepo(maxLen),
		Users:    NewMemoryUserRepo(),
		Tokens:   NewMemoryTokenRepo(),
	}
}

type MemoryMessageRepo struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID][]domain.Message
	maxLen int
	now    func() time.Time
}

func NewMemoryMessageRepo(maxLen int) *MemoryMessageRepo {
	return &MemoryMessageRepo{
		rooms:  make(map[domain.RoomID][]domain.Message),
		maxLen: maxLen,
		now:    time.Now,
	}
}

func (r *MemoryMessageRepo) Append(_ context.Context, roomID domain.RoomID, msg domain.Message) (domain.Message, error) {
	msg = stamp(roomID, msg, r.now())
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.rooms[roomID], msg)
	if r.maxLen > 0 && len(list) > r.maxLen {
		list = list[len(list)-r.maxLen:]
	}
	r.rooms[roomID] = list
	return msg, nil
}

func (r *MemoryMessageRepo) Recent(_ context.Context, roomID domain.RoomID, limit int) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.rooms[roomID]
	if limit < 0 {
		limit = 0
	}
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]domain.Message, len(list))
	copy(out, list)
	return out, nil
}

type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[domain.UserID]domain.User
	byEmail map[string]domain.UserID
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[domain.UserID]domain.User),
		byEmail: make(map[string]domain.UserID),
	}
}

func (r *MemoryUserRepo) CreateUser(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return ErrConflict
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepo) UserByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepo) UserByID(_ context.Context, id domain.UserID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

type tokenEntry struct {
	uid     domain.UserID
	expires time.Time
}

type MemoryTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
	now    func() time.Time
}

func NewMemoryTokenRepo() *MemoryTokenRepo {
	return &MemoryTokenRepo{tokens: make(map[string]tokenEntry), now: time.Now}
}

func (r *MemoryTokenRepo) SaveToken(_ context.Context, token string, uid domain.UserID, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := tokenEntry{uid: uid}
	if ttl > 0 {
		e.expires = r.now().Add(ttl)
	}
	r.tokens[token] = e
	return nil
}

func (r *MemoryTokenRepo) TokenUser(_ context.Context, token string) (domain.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tokens[token]
	if !ok {
		return "", ErrNotFound
	}
	if !e.expires.IsZero() && r.now().After(e.expires) {
		delete(r.tokens, token)
		return "", ErrNotFound
	}
	return e.uid, nil
}

func (r *MemoryTokenRepo) DeleteToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}
