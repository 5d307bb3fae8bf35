package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// OpenRedis connects and pings. A failed ping is returned so startup can abort.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func NewRedisStore(rdb *redis.Client, maxLen int) Store {
	return Store{
		Messages: NewRedisMessageRepo(rdb, maxLen),
		Users:    NewRedisUserRepo(rdb),
		Tokens:   NewRedisTokenRepo(rdb),
	}
}

func messagesKey(room domain.RoomID) string { return fmt.Sprintf("messages:%s", room) }
func userKey(id domain.UserID) string       { return fmt.Sprintf("users:%s", id) }
func emailKey(email string) string          { return fmt.Sprintf("users:email:%s", email) }
func tokenKey(token string) string          { return fmt.Sprintf("tokens:%s", token) }

// RedisMessageRepo keeps each room's history in a capped list.
type RedisMessageRepo struct {
	rdb    *redis.Client
	maxLen int64
	now    func() time.Time
}

func NewRedisMessageRepo(rdb *redis.Client, maxLen int) *RedisMessageRepo {
	return &RedisMessageRepo{rdb: rdb, maxLen: int64(maxLen), now: time.Now}
}

func (r *RedisMessageRepo) Append(ctx context.Context, roomID domain.RoomID, msg domain.Message) (domain.Message, error) {
	msg = stamp(roomID, msg, r.now())
	b, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, err
	}
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, messagesKey(roomID), b)
	if r.maxLen > 0 {
		pipe.LTrim(ctx, messagesKey(roomID), -r.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

func (r *RedisMessageRepo) Recent(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	vals, err := r.rdb.LRange(ctx, messagesKey(roomID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	out := make([]domain.Message, 0, len(vals))
	for _, v := range vals {
		var m domain.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			log.Warn().Err(err).Str("module", "repo.redis").Str("room", string(roomID)).Msg("skipping undecodable message")
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type RedisUserRepo struct{ rdb *redis.Client }

func NewRedisUserRepo(rdb *redis.Client) *RedisUserRepo {
	return &RedisUserRepo{rdb: rdb}
}

func (r *RedisUserRepo) CreateUser(ctx context.Context, u domain.User) error {
	b, err := json.Marshal(toRecord(u))
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetNX(ctx, emailKey(u.Email), string(u.ID), 0).Result()
	if err != nil {
		return fmt.Errorf("reserve email: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	if err := r.rdb.Set(ctx, userKey(u.ID), b, 0).Err(); err != nil {
		_ = r.rdb.Del(ctx, emailKey(u.Email)).Err()
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *RedisUserRepo) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	id, err := r.rdb.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("user by email: %w", err)
	}
	return r.UserByID(ctx, domain.UserID(id))
}

func (r *RedisUserRepo) UserByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	val, err := r.rdb.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("user by id: %w", err)
	}
	var rec userRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return domain.User{}, err
	}
	return rec.user(), nil
}

type RedisTokenRepo struct{ rdb *redis.Client }

func NewRedisTokenRepo(rdb *redis.Client) *RedisTokenRepo {
	return &RedisTokenRepo{rdb: rdb}
}

func (r *RedisTokenRepo) SaveToken(ctx context.Context, token string, uid domain.UserID, ttl time.Duration) error {
	return r.rdb.Set(ctx, tokenKey(token), string(uid), ttl).Err()
}

func (r *RedisTokenRepo) TokenUser(ctx context.Context, token string) (domain.UserID, error) {
	id, err := r.rdb.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("token lookup: %w", err)
	}
	return domain.UserID(id), nil
}

func (r *RedisTokenRepo) DeleteToken(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, tokenKey(token)).Err()
}
