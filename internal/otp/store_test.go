package otp

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltedmeethas/storefront-backend/pkg/enums"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeRedis) OTPKey(purpose, email string) string {
	return "sf:otp:" + purpose + ":" + email
}

func TestRedisStoreRoundTripWithRetentionTTL(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
	store := newRedisStore(fake, 24*time.Hour)
	ctx := context.Background()

	rec := Record{Email: "a@example.com", Code: "123456", ExpiresAt: time.Now().Add(5 * time.Minute).UTC()}
	require.NoError(t, store.Save(ctx, enums.OTPPurposeSignup, rec))
	assert.Equal(t, 24*time.Hour, fake.ttls["sf:otp:signup:a@example.com"])

	loaded, err := store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", loaded.Code)
	assert.True(t, rec.ExpiresAt.Equal(loaded.ExpiresAt))

	require.NoError(t, store.Delete(ctx, enums.OTPPurposeSignup, "a@example.com"))
	_, err = store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
