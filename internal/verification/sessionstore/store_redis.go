package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pollbooth/internal/verification"
	"pollbooth/pkg/platform/sentinel"
)

const sessionKeyPrefix = "pollbooth:session:"

// RedisStore keeps sessions as JSON values with a sliding TTL so several
// server instances can serve the same booth.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

func (s *RedisStore) Create(ctx context.Context, session *verification.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), payload, s.ttl).Result()
	if err != nil {
		return unavailable("create session", err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, id uuid.UUID) (*verification.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find session", err)
	}
	var session verification.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Update overwrites an existing session and resets its TTL. Expired sessions
// are not resurrected.
func (s *RedisStore) Update(ctx context.Context, session *verification.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetXX(ctx, sessionKey(session.ID), payload, s.ttl).Result()
	if err != nil {
		return unavailable("update session", err)
	}
	if !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return unavailable("delete session", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// unavailable marks a Redis command failure so callers can answer 503
// instead of 500.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
