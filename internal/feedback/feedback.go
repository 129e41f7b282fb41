package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

const SubmittedMessage = "Feedback submitted successfully"

// SubmitRequest is the payload of POST /feedback.
type SubmitRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SubmitResult acknowledges stored feedback.
type SubmitResult struct {
	Message string `json:"message"`
}

// Repository stores feedback messages.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, entry *models.Feedback) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

type feedbackWriter interface {
	Create(ctx context.Context, entry *models.Feedback) error
}

// Service accepts anonymous feedback.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

type service struct {
	repo     feedbackWriter
	validate *validator.Validate
}

func NewService(repo feedbackWriter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("feedback repository required")
	}
	return &service{repo: repo, validate: validator.New()}, nil
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	entry := &models.Feedback{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Message: strings.TrimSpace(req.Message),
	}
	if entry.Name == "" || entry.Email == "" || entry.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "all fields required")
	}
	if err := s.validate.Var(entry.Email, "email"); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email must be a valid email address")
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store feedback")
	}
	return &SubmitResult{Message: SubmittedMessage}, nil
}
