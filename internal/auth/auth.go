// Package auth issues and resolves bearer tokens for registered users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/repo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
)

type Provider struct {
	Users  repo.UserRepo
	Tokens repo.TokenRepo
	TTL    time.Duration
	// Cost is the bcrypt work factor.
	Cost int
}

func NewProvider(users repo.UserRepo, tokens repo.TokenRepo, ttl time.Duration) *Provider {
	return &Provider{
		Users:  users,
		Tokens: tokens,
		TTL:    ttl,
		Cost:   bcrypt.DefaultCost,
	}
}

func (p *Provider) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	u, err := domain.NewUser(name, email)
	if err != nil {
		return domain.User{}, err
	}
	if len(password) < domain.MinPasswordLen {
		return domain.User{}, domain.ErrPasswordShort
	}
	if len(password) > domain.MaxPasswordLen {
		return domain.User{}, domain.ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.Cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	if err := p.Users.CreateUser(ctx, *u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	log.Info().Str("module", "auth").Str("user", string(u.ID)).Msg("registered")
	return *u, nil
}

// ValidateCredentials does not tell an unknown email from a wrong password.
func (p *Provider) ValidateCredentials(ctx context.Context, email, password string) (domain.User, error) {
	u, err := p.Users.UserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (p *Provider) IssueToken(ctx context.Context, u domain.User) (string, error) {
	token := uuid.NewString()
	if err := p.Tokens.SaveToken(ctx, token, u.ID, p.TTL); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return token, nil
}

func (p *Provider) Resolve(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrInvalidToken
	}
	uid, err := p.Tokens.TokenUser(ctx, token)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, ErrInvalidToken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("resolve token: %w", err)
	}
	u, err := p.Users.UserByID(ctx, uid)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, ErrInvalidToken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (p *Provider) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := p.Tokens.DeleteToken(ctx, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
