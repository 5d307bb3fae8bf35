package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type backend struct {
	name  string
	store func(t *testing.T, maxLen int) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T, maxLen int) Store { return NewMemoryStore(maxLen) }},
		{"redis", func(t *testing.T, maxLen int) Store {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return NewRedisStore(rdb, maxLen)
		}},
	}
}

func TestMessageHistory(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.store(t, 5)

			for i := 0; i < 7; i++ {
				msg, err := s.Messages.Append(ctx, "r1", domain.Message{SenderID: "u1", SenderName: "alice", Text: fmt.Sprintf("m%d", i)})
				if err != nil {
					t.Fatalf("Append: %v", err)
				}
				if msg.ID == "" || msg.CreatedAt.IsZero() || msg.RoomID != "r1" {
					t.Fatalf("Append did not stamp message: %+v", msg)
				}
			}
			if _, err := s.Messages.Append(ctx, "r2", domain.Message{Text: "other"}); err != nil {
				t.Fatal(err)
			}

			got, err := s.Messages.Recent(ctx, "r1", 3)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if texts(got) != "[m4 m5 m6]" {
				t.Fatalf("Recent(3) = %s", texts(got))
			}

			all, _ := s.Messages.Recent(ctx, "r1", 100)
			if texts(all) != "[m2 m3 m4 m5 m6]" {
				t.Fatalf("history not capped: %s", texts(all))
			}

			for i := 1; i < len(all); i++ {
				if all[i-1].ID >= all[i].ID {
					t.Fatalf("ids out of order: %s then %s", all[i-1].ID, all[i].ID)
				}
			}

			empty, err := s.Messages.Recent(ctx, "nope", 10)
			if err != nil || len(empty) != 0 {
				t.Fatalf("Recent(empty room) = %v, %v", empty, err)
			}
			if none, _ := s.Messages.Recent(ctx, "r1", 0); len(none) != 0 {
				t.Fatalf("Recent(0) = %v", none)
			}
		})
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.store(t, 0)
			u := domain.User{ID: "u1", Username: "alice", Email: "a@example.com", PasswordHash: "hash"}

			if err := s.Users.CreateUser(ctx, u); err != nil {
				t.Fatalf("CreateUser: %v", err)
			}
			dup := u
			dup.ID = "u2"
			if err := s.Users.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
				t.Fatalf("duplicate email err = %v, want ErrConflict", err)
			}

			got, err := s.Users.UserByEmail(ctx, "a@example.com")
			if err != nil {
				t.Fatalf("UserByEmail: %v", err)
			}
			if got != u {
				t.Fatalf("UserByEmail = %+v, want %+v", got, u)
			}
			if _, err := s.Users.UserByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("UserByID(missing) err = %v", err)
			}
			if _, err := s.Users.UserByEmail(ctx, "b@example.com"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("UserByEmail(missing) err = %v", err)
			}
		})
	}
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.store(t, 0)

			if err := s.Tokens.SaveToken(ctx, "tok", "u1", time.Hour); err != nil {
				t.Fatal(err)
			}
			uid, err := s.Tokens.TokenUser(ctx, "tok")
			if err != nil || uid != "u1" {
				t.Fatalf("TokenUser = %q, %v", uid, err)
			}
			if err := s.Tokens.DeleteToken(ctx, "tok"); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Tokens.TokenUser(ctx, "tok"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("deleted token err = %v", err)
			}
		})
	}
}

func TestMemoryTokenExpiry(t *testing.T) {
	r := NewMemoryTokenRepo()
	now := time.Now()
	r.now = func() time.Time { return now }
	_ = r.SaveToken(context.Background(), "tok", "u1", time.Minute)

	now = now.Add(2 * time.Minute)
	if _, err := r.TokenUser(context.Background(), "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token err = %v", err)
	}
}

func TestRedisTokenExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	r := NewRedisTokenRepo(rdb)
	_ = r.SaveToken(context.Background(), "tok", "u1", time.Minute)

	mr.FastForward(2 * time.Minute)
	if _, err := r.TokenUser(context.Background(), "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token err = %v", err)
	}
}

func TestRedisRecentSkipsUndecodableEntries(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	r := NewRedisMessageRepo(rdb, 10)
	ctx := context.Background()

	if _, err := r.Append(ctx, "r1", domain.Message{Text: "m0"}); err != nil {
		t.Fatal(err)
	}
	if _, err := mr.Push(messagesKey("r1"), "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Append(ctx, "r1", domain.Message{Text: "m1"}); err != nil {
		t.Fatal(err)
	}

	got, err := r.Recent(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if texts(got) != "[m0 m1]" {
		t.Fatalf("Recent = %s", texts(got))
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"room":"r1"`) {
		t.Fatalf("no warning logged for the bad entry: %s", out)
	}
}

func TestOpenRedisFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := OpenRedis(ctx, addr, "", 0); err == nil {
		t.Fatal("OpenRedis against a closed server should fail")
	}
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := OpenRedis(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	_ = rdb.Close()
}

func texts(ms []domain.Message) string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Text)
	}
	return fmt.Sprint(out)
}
