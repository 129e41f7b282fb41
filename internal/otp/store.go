package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	redisclient "github.com/meltedmeethas/storefront-backend/pkg/redis"
)

// ErrNotFound is returned when no code is stored for the purpose and email.
var ErrNotFound = errors.New("otp not found")

// Record is the stored one-time code.
type Record struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the validity window has passed at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store persists at most one record per (purpose, email).
type Store interface {
	Save(ctx context.Context, purpose enums.OTPPurpose, rec Record) error
	Load(ctx context.Context, purpose enums.OTPPurpose, email string) (*Record, error)
	Delete(ctx context.Context, purpose enums.OTPPurpose, email string) error
}

type redisStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	OTPKey(purpose, email string) string
}

// RedisStore keeps records as JSON with a key TTL equal to the retention
// window, so an expired code is still found and reported as expired until
// Redis drops it.
type RedisStore struct {
	client    redisStore
	retention time.Duration
}

// NewRedisStore builds a store over the shared Redis client.
func NewRedisStore(client *redisclient.Client, retention time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newRedisStore(client, retention), nil
}

func newRedisStore(client redisStore, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func (s *RedisStore) Save(ctx context.Context, purpose enums.OTPPurpose, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode otp: %w", err)
	}
	ttl := s.retention
	if remaining := time.Until(rec.ExpiresAt); ttl < remaining {
		ttl = remaining
	}
	return s.client.Set(ctx, s.client.OTPKey(string(purpose), rec.Email), string(payload), ttl)
}

func (s *RedisStore) Load(ctx context.Context, purpose enums.OTPPurpose, email string) (*Record, error) {
	raw, err := s.client.Get(ctx, s.client.OTPKey(string(purpose), email))
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode otp: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, purpose enums.OTPPurpose, email string) error {
	return s.client.Del(ctx, s.client.OTPKey(string(purpose), email))
}
