package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meltedmeethas/storefront-backend/internal/feedback"
	"github.com/meltedmeethas/storefront-backend/pkg/config"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	cfg := &config.Config{}
	deps := map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}
	handler := HealthReady(cfg, nil, deps)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestHealthReadyAllUp(t *testing.T) {
	deps := map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
	}
	handler := HealthReady(&config.Config{}, nil, deps)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

type stubFeedbackService struct{}

func (stubFeedbackService) Submit(ctx context.Context, req feedback.SubmitRequest) (*feedback.SubmitResult, error) {
	return &feedback.SubmitResult{Message: feedback.SubmittedMessage}, nil
}

func TestFeedbackSubmitReturnsCreated(t *testing.T) {
	handler := FeedbackSubmit(stubFeedbackService{}, nil)
	body := `{"name":"A","email":"a@x.com","message":"Loved the ladoos"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}
