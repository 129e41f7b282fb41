package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/internal/otp"
	"github.com/meltedmeethas/storefront-backend/internal/users"
	"github.com/meltedmeethas/storefront-backend/pkg/auth/session"
	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

var testJWTConfig = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "storefront",
	ExpirationMinutes:      7 * 24 * 60,
	RefreshTokenTTLMinutes: 14 * 24 * 60,
}

type stubUserRepository struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepository) add(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[user.Email] = user
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.add(user)
	return user, nil
}

func (s *stubUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.LastLoginAt = &at
	return nil
}

func (s *stubUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}

type stubSessionManager struct {
	generated  []string
	revoked    []string
	revokedAll []uuid.UUID
	kept       []string
	refresh    map[string]string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{refresh: map[string]string{}}
}

func (s *stubSessionManager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	token := "refresh-" + accessID
	s.refresh[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	if s.refresh[oldAccessID] != provided || provided == "" {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.refresh, oldAccessID)
	next := session.NewAccessID()
	token, _ := s.Generate(ctx, userID, next)
	return next, token, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, userID uuid.UUID, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	delete(s.refresh, accessID)
	return nil
}

func (s *stubSessionManager) RevokeAll(ctx context.Context, userID uuid.UUID, keep ...string) error {
	s.revokedAll = append(s.revokedAll, userID)
	s.kept = append(s.kept, keep...)
	return nil
}

type stubOTP struct {
	requested []string
	verifyErr error
}

func (s *stubOTP) Request(ctx context.Context, purpose enums.OTPPurpose, email string) error {
	s.requested = append(s.requested, string(purpose)+":"+email)
	return nil
}

func (s *stubOTP) Verify(ctx context.Context, purpose enums.OTPPurpose, email, code string) error {
	if s.verifyErr != nil {
		return s.verifyErr
	}
	if code != "123456" {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, otp.ErrInvalidCode, "Invalid OTP")
	}
	return nil
}
