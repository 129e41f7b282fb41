package coupons

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
)

const invalidCouponMessage = "invalid or used coupon"

// ApplyRequest is the payload of POST /apply-coupon.
type ApplyRequest struct {
	Code string `json:"code"`
}

// Preview is the read-only answer to "would this coupon apply".
type Preview struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
}

type couponReader interface {
	FindUnused(ctx context.Context, code string) (*models.Coupon, error)
}

// Service previews coupons. Redemption happens only during payment verification.
type Service interface {
	Apply(ctx context.Context, code string) (*Preview, error)
}

type service struct {
	repo     couponReader
	fallback decimal.Decimal
}

// NewService builds the preview service. fallback is reported for coupons
// without a discount of their own.
func NewService(repo couponReader, fallback decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, fallback: fallback}, nil
}

func (s *service) Apply(ctx context.Context, code string) (*Preview, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	coupon, err := s.repo.FindUnused(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return &Preview{Success: false, Message: invalidCouponMessage}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup coupon")
	}
	discount := DiscountFor(coupon, s.fallback)
	return &Preview{Success: true, Discount: &discount}, nil
}

// DiscountFor is the coupon's own discount, or fallback when it has none.
func DiscountFor(coupon *models.Coupon, fallback decimal.Decimal) decimal.Decimal {
	if coupon != nil && coupon.Discount.Valid && coupon.Discount.Decimal.IsPositive() {
		return coupon.Discount.Decimal
	}
	return fallback
}
