// Package repo holds the persistence collaborators: room message history,
// registered users and issued tokens.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

//go:generate mockgen -destination=mocks/repo_mock.go -package=mocks github.com/dkeye/Huddle/internal/repo MessageRepo,UserRepo,TokenRepo

// MessageRepo stores room chat history.
type MessageRepo interface {
	// Append stores msg and returns it with ID and CreatedAt filled in.
	Append(ctx context.Context, roomID domain.RoomID, msg domain.Message) (domain.Message, error)
	// Recent returns up to limit newest messages, oldest first.
	Recent(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.Message, error)
}

type UserRepo interface {
	// CreateUser fails with ErrConflict when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, id domain.UserID) (domain.User, error)
}

type TokenRepo interface {
	SaveToken(ctx context.Context, token string, uid domain.UserID, ttl time.Duration) error
	TokenUser(ctx context.Context, token string) (domain.UserID, error)
	DeleteToken(ctx context.Context, token string) error
}

// Store bundles the three repositories of one backend.
type Store struct {
	Messages MessageRepo
	Users    UserRepo
	Tokens   TokenRepo
}

// userRecord is the stored form of a user; domain.User hides the hash from JSON.
type userRecord struct {
	ID           domain.UserID `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"passwordHash"`
}

func toRecord(u domain.User) userRecord {
	return userRecord{ID: u.ID, Username: u.Username, Email: u.Email, PasswordHash: u.PasswordHash}
}

func (r userRecord) user() domain.User {
	return domain.User{ID: r.ID, Username: r.Username, Email: r.Email, PasswordHash: r.PasswordHash}
}

func stamp(roomID domain.RoomID, msg domain.Message, now time.Time) domain.Message {
	msg.RoomID = roomID
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now.UTC()
	}
	return msg
}
