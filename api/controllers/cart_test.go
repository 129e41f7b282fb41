package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/meltedmeethas/storefront-backend/api/middleware"
	cartsvc "github.com/meltedmeethas/storefront-backend/internal/cart"
	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

type stubCartService struct {
	lines       []cartsvc.Line
	err         error
	addedID     string
	addedQty    int
	setProduct  string
	setQuantity int
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, productID string, quantity int) ([]cartsvc.Line, error) {
	s.addedID, s.addedQty = productID, quantity
	return s.lines, s.err
}

func (s *stubCartService) SetQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) ([]cartsvc.Line, error) {
	s.setProduct, s.setQuantity = productID, quantity
	return s.lines, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) error {
	return s.err
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.err
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) ([]cartsvc.Line, error) {
	return s.lines, s.err
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func sampleLines() []cartsvc.Line {
	doc := bson.M{"_id": "p1", "title": "Kaju Katli", "price": 500}
	return []cartsvc.Line{{
		Item:    models.CartItem{ID: uuid.New(), ProductID: "p1", Quantity: 2},
		Product: catalog.FromDocument(doc),
	}}
}

func TestCartAddCoercesQuantity(t *testing.T) {
	svc := &stubCartService{lines: sampleLines()}
	handler := CartAdd(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/cart/add", strings.NewReader(`{"productId":"p1","quantity":"3 boxes"}`))
	req = withUser(req, uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.addedID != "p1" || svc.addedQty != 3 {
		t.Fatalf("unexpected add call: %s x%d", svc.addedID, svc.addedQty)
	}

	var envelope struct {
		Data struct {
			Success bool            `json:"success"`
			Cart    []cartsvc.Entry `json:"cart"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Success || len(envelope.Data.Cart) != 1 || envelope.Data.Cart[0].Quantity != 2 {
		t.Fatalf("unexpected cart payload: %+v", envelope.Data)
	}
}

func TestCartAddRequiresUserContext(t *testing.T) {
	handler := CartAdd(&stubCartService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/cart/add", strings.NewReader(`{"productId":"p1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartSetQuantityUsesPathParam(t *testing.T) {
	svc := &stubCartService{lines: sampleLines()}
	handler := CartSetQuantity(svc, nil)

	req := httptest.NewRequest(http.MethodPut, "/cart/p1", strings.NewReader(`{"quantity":4}`))
	req = withUser(withURLParam(req, "productId", "p1"), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.setProduct != "p1" || svc.setQuantity != 4 {
		t.Fatalf("unexpected set call: %s x%d", svc.setProduct, svc.setQuantity)
	}
}

func TestCartSetQuantityNotInCart(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found in cart")}
	handler := CartSetQuantity(svc, nil)

	req := httptest.NewRequest(http.MethodPut, "/cart/p9", strings.NewReader(`{"quantity":1}`))
	req = withUser(withURLParam(req, "productId", "p9"), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartClearMessage(t *testing.T) {
	handler := CartClear(&stubCartService{}, nil)
	req := withUser(httptest.NewRequest(http.MethodDelete, "/clear-cart", nil), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), cartClearedMessage) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}
