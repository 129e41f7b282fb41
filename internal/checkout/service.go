package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/internal/cart"
	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/internal/coupons"
	"github.com/meltedmeethas/storefront-backend/internal/orders"
	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/metrics"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/payloads"
	"github.com/meltedmeethas/storefront-backend/pkg/razorpay"
)

const (
	OrderSavedMessage = "Order saved successfully"

	couponRejectedMessage = "coupon already used or invalid"
)

var errCouponRejected = errors.New("coupon rejected")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gatewayClient interface {
	CreateOrder(ctx context.Context, amount int64, receipt string) (razorpay.Order, error)
}

type productLoader interface {
	FindMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service turns a verified gateway payment into a pending order.
type Service interface {
	CreatePaymentIntent(ctx context.Context, userID uuid.UUID, amount int64) (*IntentResult, error)
	VerifyPayment(ctx context.Context, userID uuid.UUID, req VerifyPaymentRequest) (*VerifyResult, error)
}

// ServiceParams groups the checkout dependencies.
type ServiceParams struct {
	Gateway        gatewayClient
	GatewaySecret  string
	Tx             txRunner
	Orders         orders.Repository
	Carts          cart.CartRepository
	Coupons        *coupons.Repository
	Users          userLookup
	Products       productLoader
	Outbox         outboxPublisher
	CouponFallback decimal.Decimal
	Metrics        *metrics.CheckoutMetrics
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	gateway  gatewayClient
	secret   string
	tx       txRunner
	orders   orders.Repository
	carts    cart.CartRepository
	coupons  *coupons.Repository
	users    userLookup
	products productLoader
	outbox   outboxPublisher
	fallback decimal.Decimal
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case strings.TrimSpace(params.GatewaySecret) == "":
		return nil, fmt.Errorf("payment gateway secret required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("user lookup required")
	case params.Products == nil:
		return nil, fmt.Errorf("product loader required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		gateway:  params.Gateway,
		secret:   params.GatewaySecret,
		tx:       params.Tx,
		orders:   params.Orders,
		carts:    params.Carts,
		coupons:  params.Coupons,
		users:    params.Users,
		products: params.Products,
		outbox:   params.Outbox,
		fallback: params.CouponFallback,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// CreatePaymentIntent registers an order with the gateway. Nothing is stored
// locally until the payment is verified.
func (s *service) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, amount int64) (*IntentResult, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive number of paise")
	}
	order, err := s.gateway.CreateOrder(ctx, amount, razorpay.Receipt(s.now()))
	if err != nil {
		s.metrics.IncIntent(false)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment order")
	}
	s.metrics.IncIntent(true)
	if s.logg != nil {
		logCtx := s.logg.WithGatewayOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID)
		logCtx = s.logg.WithField(logCtx, "amount_paise", amount)
		s.logg.Info(logCtx, "payment intent created")
	}
	return &IntentResult{Success: true, OrderID: order.ID}, nil
}

func (s *service) VerifyPayment(ctx context.Context, userID uuid.UUID, req VerifyPaymentRequest) (*VerifyResult, error) {
	gatewayOrderID := strings.TrimSpace(req.RazorpayOrderID)
	paymentID := strings.TrimSpace(req.RazorpayPaymentID)
	signature := strings.TrimSpace(req.RazorpaySignature)
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		s.metrics.IncVerification(metrics.OutcomeValidationFailed)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing payment fields")
	}
	if !razorpay.VerifySignature(s.secret, gatewayOrderID, paymentID, signature) {
		s.metrics.IncVerification(metrics.OutcomeBadSignature)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid signature")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.metrics.IncVerification(metrics.OutcomeError)
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if err := validateItems(req.Items); err != nil {
		s.metrics.IncVerification(metrics.OutcomeValidationFailed)
		return nil, err
	}

	if result, err := s.existingOrder(ctx, userID, gatewayOrderID); result != nil || err != nil {
		return result, err
	}

	items, subtotal, err := s.snapshotItems(ctx, req.Items)
	if err != nil {
		s.metrics.IncVerification(metrics.OutcomeError)
		return nil, err
	}

	now := s.now().UTC()
	couponCode := strings.TrimSpace(req.CouponCode)
	order := &models.Order{
		UserID:           userID,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		PaymentStatus:    enums.PaymentStatusPaid,
		Status:           enums.OrderStatusPending,
		Subtotal:         subtotal,
		Discount:         decimal.Zero,
		Total:            subtotal,
		OrderedAt:        now,
		Items:            items,
	}
	if couponCode != "" {
		order.CouponCode = &couponCode
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if couponCode != "" {
			discount, err := s.redeemCoupon(ctx, tx, couponCode, userID, now)
			if err != nil {
				return err
			}
			order.Discount = discount
			order.Total = decimal.Max(subtotal.Sub(discount), decimal.Zero)
		}

		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if err := s.carts.WithTx(tx).Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return s.emitOrderPaid(ctx, tx, user, order)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "orders_gateway_order_id_key") {
			if result, lookupErr := s.existingOrder(ctx, userID, gatewayOrderID); result != nil || lookupErr != nil {
				return result, lookupErr
			}
		}
		if errors.Is(err, errCouponRejected) {
			s.metrics.IncVerification(metrics.OutcomeCouponRejected)
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, couponRejectedMessage)
		}
		s.metrics.IncVerification(metrics.OutcomeError)
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeInternal, "save order")
	}

	s.metrics.IncVerification(metrics.OutcomeVerified)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
		logCtx = s.logg.WithGatewayOrderID(logCtx, gatewayOrderID)
		logCtx = s.logg.WithField(logCtx, "total", order.Total.String())
		s.logg.Info(logCtx, "payment verified and order saved")
	}
	return &VerifyResult{Success: true, Message: OrderSavedMessage, OrderID: order.ID}, nil
}

// existingOrder answers a retried verification without consuming anything
// again. It returns nil, nil when no order exists for the gateway id.
func (s *service) existingOrder(ctx context.Context, userID uuid.UUID, gatewayOrderID string) (*VerifyResult, error) {
	existing, err := s.orders.FindByGatewayID(ctx, gatewayOrderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		s.metrics.IncVerification(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup gateway order")
	}
	if existing.UserID != userID {
		s.metrics.IncVerification(metrics.OutcomeError)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment already recorded for another account")
	}
	s.metrics.IncVerification(metrics.OutcomeDuplicate)
	return &VerifyResult{Success: true, Message: OrderSavedMessage, OrderID: existing.ID}, nil
}

// redeemCoupon consumes the coupon on tx and returns its discount.
func (s *service) redeemCoupon(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID, at time.Time) (decimal.Decimal, error) {
	repo := s.coupons.WithTx(tx)
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return decimal.Zero, errCouponRejected
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	consumed, err := repo.Consume(ctx, code, userID, at)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redeem coupon")
	}
	if !consumed {
		return decimal.Zero, errCouponRejected
	}
	return coupons.DiscountFor(coupon, s.fallback), nil
}

// snapshotItems freezes name and prices as they are now. Products missing
// from the catalog are recorded with an empty name and zero price.
func (s *service) snapshotItems(ctx context.Context, lines []VerifyItem) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.Product.ID)
	}
	found, err := s.products.FindMany(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve products")
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := models.OrderItem{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			UnitPrice: decimal.Zero,
			ListPrice: decimal.Zero,
		}
		if product, ok := found[line.Product.ID]; ok {
			item.ProductID = product.ID
			item.ProductName = product.DisplayName()
			item.UnitPrice = product.DisplayPrice()
			item.ListPrice = product.ListPrice()
			item.CoverImage = product.CoverImage
		}
		subtotal = subtotal.Add(item.LineTotal())
		items = append(items, item)
	}
	return items, subtotal, nil
}

func (s *service) emitOrderPaid(ctx context.Context, tx *gorm.DB, user *models.User, order *models.Order) error {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: user.ID, Role: string(user.Role)},
		OccurredAt:    order.OrderedAt,
		Version:       1,
		Data: payloads.OrderPaidEvent{
			OrderID:          order.ID,
			UserID:           user.ID,
			Email:            user.Email,
			Name:             user.Name,
			GatewayOrderID:   order.GatewayOrderID,
			GatewayPaymentID: order.GatewayPaymentID,
			CouponCode:       order.CouponCode,
			Subtotal:         order.Subtotal,
			Discount:         order.Discount,
			Total:            order.Total,
			Items:            lines,
			PaidAt:           order.OrderedAt,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order paid event")
	}
	return nil
}

func validateItems(items []VerifyItem) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "items are required")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Product.ID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "every item needs a product id").
				WithDetails(map[string]any{"index": i})
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1").
				WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}
