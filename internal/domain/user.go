// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
	MinPasswordLen = 6
	// bcrypt only accepts up to 72 bytes.
	MaxPasswordLen = 72
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrEmailInvalid    = errors.New("email invalid")
	ErrPasswordShort   = errors.New("password too short")
	ErrPasswordTooLong = errors.New("password too long")
)

type UserID string

type User struct {
	ID           UserID `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username, email string) (*User, error) {
	u := &User{ID: UserID(uuid.NewString())}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	if err := u.SetEmail(email); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}

func (u *User) SetEmail(email string) error {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrEmailInvalid
	}
	u.Email = email
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
