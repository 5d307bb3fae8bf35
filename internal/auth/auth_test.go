package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/repo"
	"github.com/dkeye/Huddle/internal/repo/mocks"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	store := repo.NewMemoryStore(0)
	p := NewProvider(store.Users, store.Tokens, time.Hour)
	p.Cost = bcrypt.MinCost
	return p
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	u, err := p.Register(ctx, "Alice", " Alice@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == "" || u.Email != "alice@example.com" {
		t.Fatalf("user = %+v", u)
	}

	got, err := p.ValidateCredentials(ctx, "ALICE@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("login returned %s, want %s", got.ID, u.ID)
	}
}

func TestRegisterRejects(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	if _, err := p.Register(ctx, "Alice", "a@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		user     string
		email    string
		password string
		want     error
	}{
		{"duplicate email", "Other", "A@example.com", "secret1", ErrEmailTaken},
		{"empty name", "  ", "b@example.com", "secret1", domain.ErrUsernameEmpty},
		{"bad email", "Bob", "not-an-email", "secret1", domain.ErrEmailInvalid},
		{"short password", "Bob", "b@example.com", "123", domain.ErrPasswordShort},
		{"long password", "Bob", "b@example.com", strings.Repeat("p", domain.MaxPasswordLen+1), domain.ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Register(ctx, tt.user, tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateCredentialsFailures(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	if _, err := p.Register(ctx, "Alice", "a@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	if _, err := p.ValidateCredentials(ctx, "a@example.com", "wrong!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := p.ValidateCredentials(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	u, err := p.Register(ctx, "Alice", "a@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	token, err := p.IssueToken(ctx, u)
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Resolve(ctx, token)
	if err != nil || got.ID != u.ID {
		t.Fatalf("Resolve = %+v, %v", got, err)
	}

	if err := p.Revoke(ctx, token); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Resolve(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked token resolved: %v", err)
	}
	if _, err := p.Resolve(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: %v", err)
	}
}

func TestResolveTokenForDeletedUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepo(ctrl)
	tokens := mocks.NewMockTokenRepo(ctrl)
	p := NewProvider(users, tokens, time.Hour)

	tokens.EXPECT().TokenUser(gomock.Any(), "t1").Return(domain.UserID("u1"), nil)
	users.EXPECT().UserByID(gomock.Any(), domain.UserID("u1")).Return(domain.User{}, repo.ErrNotFound)

	if _, err := p.Resolve(context.Background(), "t1"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepo(ctrl)
	tokens := mocks.NewMockTokenRepo(ctrl)
	p := NewProvider(users, tokens, time.Hour)
	p.Cost = bcrypt.MinCost
	boom := errors.New("store down")

	users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(boom)
	if _, err := p.Register(context.Background(), "Alice", "a@example.com", "secret1"); !errors.Is(err, boom) {
		t.Fatalf("register err = %v", err)
	}

	tokens.EXPECT().SaveToken(gomock.Any(), gomock.Any(), domain.UserID("u1"), time.Hour).Return(boom)
	if _, err := p.IssueToken(context.Background(), domain.User{ID: "u1"}); !errors.Is(err, boom) {
		t.Fatalf("issue err = %v", err)
	}

	tokens.EXPECT().TokenUser(gomock.Any(), "t1").Return(domain.UserID(""), boom)
	if _, err := p.Resolve(context.Background(), "t1"); !errors.Is(err, boom) || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("resolve err = %v", err)
	}
}
