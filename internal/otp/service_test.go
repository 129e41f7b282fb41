package otp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/mailer"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]Record{}}
}

func (m *memoryStore) key(purpose enums.OTPPurpose, email string) string {
	return string(purpose) + ":" + strings.ToLower(email)
}

func (m *memoryStore) Save(ctx context.Context, purpose enums.OTPPurpose, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[m.key(purpose, rec.Email)] = rec
	return nil
}

func (m *memoryStore) Load(ctx context.Context, purpose enums.OTPPurpose, email string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[m.key(purpose, email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *memoryStore) Delete(ctx context.Context, purpose enums.OTPPurpose, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, m.key(purpose, email))
	return nil
}

type captureSender struct {
	sent []mailer.Message
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg mailer.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (Service, *memoryStore, *captureSender, *clock) {
	t.Helper()
	store := newMemoryStore()
	sender := &captureSender{}
	clk := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Store:  store,
		Mailer: sender,
		Config: config.OTPConfig{TTL: 5 * time.Minute, Length: 6},
		Now:    clk.Now,
	})
	require.NoError(t, err)
	return svc, store, sender, clk
}

func TestRequestStoresAndMailsCode(t *testing.T) {
	svc, store, sender, clk := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, enums.OTPPurposeSignup, "a@example.com"))

	rec, err := store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, rec.Code, 6)
	assert.Equal(t, clk.now.Add(5*time.Minute), rec.ExpiresAt)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Your Melted Meethas Signup OTP", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Text, rec.Code)
}

func TestRequestOverwritesPreviousCode(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, enums.OTPPurposeSignup, "a@example.com"))
	first, _ := store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")
	require.NoError(t, svc.Request(ctx, enums.OTPPurposeSignup, "a@example.com"))

	assert.Len(t, store.records, 1)
	second, _ := store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")
	if first.Code != second.Code {
		assert.ErrorIs(t, svc.Verify(ctx, enums.OTPPurposeSignup, "a@example.com", first.Code), ErrInvalidCode)
	}
}

func TestRequestRequiresEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.Request(context.Background(), enums.OTPPurposeSignup, "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRequestMailFailureIsDependencyError(t *testing.T) {
	svc, _, sender, _ := newTestService(t)
	sender.err = errors.New("smtp down")
	err := svc.Request(context.Background(), enums.OTPPurposeSignup, "a@example.com")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestVerifyWithinWindowConsumesRecord(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, enums.OTPPurposeSignup, "a@example.com"))
	rec, _ := store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")

	clk.now = clk.now.Add(4 * time.Minute)
	require.NoError(t, svc.Verify(ctx, enums.OTPPurposeSignup, "a@example.com", rec.Code))

	_, err := store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Verify(ctx, enums.OTPPurposeSignup, "a@example.com", rec.Code), ErrInvalidCode)
}

func TestVerifyAfterWindowIsExpiredAndKeepsRecord(t *testing.T) {
	svc, store, _, clk := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, enums.OTPPurposeSignup, "a@example.com"))
	rec, _ := store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")

	clk.now = clk.now.Add(5*time.Minute + time.Second)
	err := svc.Verify(ctx, enums.OTPPurposeSignup, "a@example.com", rec.Code)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, "OTP expired", pkgerrors.As(err).Message())

	_, err = store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")
	assert.NoError(t, err)
}

func TestVerifyWrongCodeAndMissingFields(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, enums.OTPPurposeSignup, "a@example.com"))
	rec, _ := store.Load(ctx, enums.OTPPurposeSignup, "a@example.com")

	wrong := "000000"
	if rec.Code == wrong {
		wrong = "111111"
	}
	err := svc.Verify(ctx, enums.OTPPurposeSignup, "a@example.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, "Invalid OTP", pkgerrors.As(err).Message())

	err = svc.Verify(ctx, enums.OTPPurposeSignup, "", "123456")
	assert.Equal(t, "email & OTP required", pkgerrors.As(err).Message())

	// a signup code does not satisfy a reset check
	assert.ErrorIs(t, svc.Verify(ctx, enums.OTPPurposePasswordReset, "a@example.com", rec.Code), ErrInvalidCode)
}

func TestResetPurposeUsesResetTemplate(t *testing.T) {
	svc, _, sender, _ := newTestService(t)
	require.NoError(t, svc.Request(context.Background(), enums.OTPPurposePasswordReset, "a@example.com"))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "password reset")
}
