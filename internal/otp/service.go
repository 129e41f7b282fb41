package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/mailer"
	"github.com/meltedmeethas/storefront-backend/pkg/security"
)

var (
	// ErrInvalidCode covers both a missing record and a mismatched code.
	ErrInvalidCode = errors.New("invalid otp")
	// ErrExpired is returned when the code matched after its window closed.
	ErrExpired = errors.New("otp expired")
)

const defaultCodeLength = 6

// Service issues and verifies one-time codes.
type Service interface {
	Request(ctx context.Context, purpose enums.OTPPurpose, email string) error
	Verify(ctx context.Context, purpose enums.OTPPurpose, email, code string) error
}

type service struct {
	store  Store
	mailer mailer.Sender
	logg   *logger.Logger
	ttl    time.Duration
	length int
	now    func() time.Time
}

// ServiceParams bundles the dependencies of the OTP service.
type ServiceParams struct {
	Store  Store
	Mailer mailer.Sender
	Logger *logger.Logger
	Config config.OTPConfig
	Now    func() time.Time
}

// NewService validates params and builds the OTP service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("otp store is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	ttl := params.Config.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	length := params.Config.Length
	if length <= 0 {
		length = defaultCodeLength
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:  params.Store,
		mailer: params.Mailer,
		logg:   params.Logger,
		ttl:    ttl,
		length: length,
		now:    now,
	}, nil
}

func (s *service) Request(ctx context.Context, purpose enums.OTPPurpose, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if !purpose.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown otp purpose")
	}

	code, err := security.GenerateNumericCode(s.length)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	rec := Record{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	if err := s.store.Save(ctx, purpose, rec); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store otp")
	}

	msg := mailer.SignupOTP(email, code, s.ttl)
	if purpose == enums.OTPPurposePasswordReset {
		msg = mailer.ResetOTP(email, code, s.ttl)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send otp email")
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(s.logg.WithEmail(ctx, email), "otp_purpose", string(purpose))
		s.logg.Info(logCtx, "otp issued")
	}
	return nil
}

func (s *service) Verify(ctx context.Context, purpose enums.OTPPurpose, email, code string) error {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email & OTP required")
	}

	rec, err := s.store.Load(ctx, purpose, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidCode()
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load otp")
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return invalidCode()
	}
	if rec.Expired(s.now().UTC()) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrExpired, "OTP expired")
	}
	if err := s.store.Delete(ctx, purpose, email); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume otp")
	}
	return nil
}

func invalidCode() error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidCode, "Invalid OTP")
}
