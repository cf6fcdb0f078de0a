package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps sessions as JSON documents that expire with their TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	cookie string
}

func NewRedisStore(client *redis.Client, ttl time.Duration, cookie string) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, cookie: cookie}
}

func (s *RedisStore) CookieName() string { return s.cookie }

func (s *RedisStore) TTL() time.Duration { return s.ttl }

func key(id string) string {
	return keyPrefix + id
}

// Create starts a session for the user.
func (s *RedisStore) Create(ctx context.Context, user UserSummary) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		User:      &user,
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, key(sess.ID), payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get returns the session with the given id, or nil when it does not exist
// or has expired.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	data, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, nil
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Session reads the session cookie of the request.
func (s *RedisStore) Session(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.cookie)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return nil, nil
	}
	return s.Get(ctx, strings.TrimSpace(cookie.Value))
}
