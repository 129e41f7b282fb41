package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	pkgAuth "github.com/meltedmeethas/storefront-backend/pkg/auth"
	"github.com/meltedmeethas/storefront-backend/pkg/config"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/security"
)

type registerTestSetup struct {
	service  RegisterService
	userRepo *stubUserRepository
	sessions *stubSessionManager
}

func newRegisterTestSetup(t *testing.T) *registerTestSetup {
	t.Helper()
	userRepo := newStubUserRepository()
	sessions := newStubSessionManager()
	svc, err := NewRegisterService(RegisterServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: config.PasswordConfig{BcryptCost: 4},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return &registerTestSetup{service: svc, userRepo: userRepo, sessions: sessions}
}

func TestRegisterCreatesUserAndIssuesToken(t *testing.T) {
	setup := newRegisterTestSetup(t)

	resp, err := setup.service.Register(context.Background(), RegisterRequest{
		Name:     "Ravi",
		Email:    "ravi@example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	created, err := setup.userRepo.FindByEmail(context.Background(), "ravi@example.com")
	if err != nil {
		t.Fatalf("expected user to be created: %v", err)
	}
	if !strings.HasPrefix(created.PasswordHash, "$2a$") {
		t.Fatalf("expected bcrypt hash, got %q", created.PasswordHash)
	}
	if ok, _ := security.VerifyPassword("secret1", created.PasswordHash); !ok {
		t.Fatalf("stored hash does not match password")
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != created.ID {
		t.Fatalf("token not bound to created user")
	}
	if lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time); lifetime.Hours() != 7*24 {
		t.Fatalf("expected 7 day token, got %v", lifetime)
	}
	if resp.User.Email != "ravi@example.com" || resp.RefreshToken == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setup := newRegisterTestSetup(t)
	req := RegisterRequest{Name: "Ravi", Email: "ravi@example.com", Password: "secret1"}

	if _, err := setup.service.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := setup.service.Register(context.Background(), req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterMapsUniqueViolationToConflict(t *testing.T) {
	setup := newRegisterTestSetup(t)
	setup.userRepo.createErr = errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key"`)

	_, err := setup.service.Register(context.Background(), RegisterRequest{
		Name: "Ravi", Email: "race@example.com", Password: "secret1",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	setup := newRegisterTestSetup(t)
	cases := []RegisterRequest{
		{Name: "", Email: "a@example.com", Password: "secret1"},
		{Name: "A", Email: "a@example.com", Password: "short"},
	}
	for _, req := range cases {
		if _, err := setup.service.Register(context.Background(), req); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
	if len(setup.sessions.generated) != 0 {
		t.Fatalf("expected no sessions for rejected signups")
	}
}
