package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meltedmeethas/storefront-backend/internal/orders"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

type stubOrdersService struct {
	cancelID     string
	cancelReason string
	deliverErr   error
}

func (s *stubOrdersService) List(ctx context.Context, userID uuid.UUID) ([]orders.Summary, error) {
	return []orders.Summary{}, nil
}

func (s *stubOrdersService) Get(ctx context.Context, userID uuid.UUID, orderID string) (*orders.Detail, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrdersService) Cancel(ctx context.Context, userID uuid.UUID, orderID, reason string) (*orders.CancelResult, error) {
	s.cancelID, s.cancelReason = orderID, reason
	return &orders.CancelResult{Message: orders.CancelledMessage}, nil
}

func (s *stubOrdersService) Deliver(ctx context.Context, actorID uuid.UUID, orderID string) (*orders.DeliverResult, error) {
	if s.deliverErr != nil {
		return nil, s.deliverErr
	}
	return &orders.DeliverResult{Status: "delivered", DeliveredAt: time.Now()}, nil
}

func TestOrderCancelPassesReasonAndID(t *testing.T) {
	svc := &stubOrdersService{}
	handler := OrderCancel(svc, nil)
	orderID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/cancel/"+orderID, strings.NewReader(`{"cancelReason":"changed my mind"}`))
	req = withUser(withURLParam(req, "orderId", orderID), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.cancelID != orderID || svc.cancelReason != "changed my mind" {
		t.Fatalf("unexpected cancel call: %s %q", svc.cancelID, svc.cancelReason)
	}
}

func TestOrderDetailNotFound(t *testing.T) {
	handler := OrderDetail(&stubOrdersService{}, nil)
	req := withUser(withURLParam(httptest.NewRequest(http.MethodGet, "/orders/x", nil), "id", "x"), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestAdminOrderDeliverAlreadyDelivered(t *testing.T) {
	svc := &stubOrdersService{deliverErr: pkgerrors.New(pkgerrors.CodeStateConflict, "order already delivered")}
	handler := AdminOrderDeliver(svc, nil)
	req := withUser(withURLParam(httptest.NewRequest(http.MethodPost, "/admin/orders/x/deliver", nil), "orderId", "x"), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
