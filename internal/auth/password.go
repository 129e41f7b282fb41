package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meltedmeethas/storefront-backend/internal/otp"
	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/security"
)

// ForgotPasswordMessage is returned whether or not the account exists.
const ForgotPasswordMessage = "if the email is registered, an OTP has been sent"

// PasswordService covers password changes and OTP-based resets.
type PasswordService interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, accessID string, req ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type passwordUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// PasswordServiceParams bundles the password flow dependencies.
type PasswordServiceParams struct {
	UserRepo       passwordUserRepository
	SessionManager sessionManager
	OTP            otp.Service
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type passwordService struct {
	users       passwordUserRepository
	session     sessionManager
	otp         otp.Service
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewPasswordService builds the password flows.
func NewPasswordService(params PasswordServiceParams) (PasswordService, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.OTP == nil {
		return nil, fmt.Errorf("otp service is required")
	}
	return &passwordService{
		users:       params.UserRepo,
		session:     params.SessionManager,
		otp:         params.OTP,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *passwordService) ChangePassword(ctx context.Context, userID uuid.UUID, accessID string, req ChangePasswordRequest) error {
	if len(req.NewPassword) < 6 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	ok, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "incorrect current password")
	}
	if err := s.setPassword(ctx, user.ID, req.NewPassword); err != nil {
		return err
	}
	// the caller's own session stays live
	s.revokeSessions(ctx, user.ID, accessID)
	return nil
}

func (s *passwordService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return s.otp.Request(ctx, enums.OTPPurposePasswordReset, email)
}

func (s *passwordService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if len(req.NewPassword) < 6 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}
	email := strings.TrimSpace(req.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, otp.ErrInvalidCode, "Invalid OTP")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if err := s.otp.Verify(ctx, enums.OTPPurposePasswordReset, email, req.OTP); err != nil {
		return err
	}
	if err := s.setPassword(ctx, user.ID, req.NewPassword); err != nil {
		return err
	}
	s.revokeSessions(ctx, user.ID)
	return nil
}

func (s *passwordService) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := security.HashPassword(password, s.passwordCfg.BcryptCost)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

// revokeSessions is best effort: the password is already changed.
func (s *passwordService) revokeSessions(ctx context.Context, userID uuid.UUID, keep ...string) {
	if err := s.session.RevokeAll(ctx, userID, keep...); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "revoke sessions after password change", err)
	}
}
