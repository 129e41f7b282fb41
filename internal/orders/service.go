package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/metrics"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/payloads"
)

const (
	CancelledMessage = "Order cancelled successfully"

	pendingNotFoundMessage = "order not found in pending orders"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the customer and admin order operations.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]Summary, error)
	Get(ctx context.Context, userID uuid.UUID, orderID string) (*Detail, error)
	Cancel(ctx context.Context, userID uuid.UUID, orderID, reason string) (*CancelResult, error)
	Deliver(ctx context.Context, actorID uuid.UUID, orderID string) (*DeliverResult, error)
}

// ServiceParams groups the order service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Users    userLookup
	Products productLookup
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	users    userLookup
	products productLookup
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		users:    params.Users,
		products: params.Products,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]Summary, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, SummaryFromModel(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, orderID string) (*Detail, error) {
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	detail := DetailFromModel(*order)
	return &detail, nil
}

// Cancel moves a pending order into deleted_orders. The audit copy, the
// guarded delete and the outbox event commit together.
func (s *service) Cancel(ctx context.Context, userID uuid.UUID, orderID, reason string) (*CancelResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel reason is required")
	}
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, pendingNotFoundMessage)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	order, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, pendingNotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, pendingNotFoundMessage)
	}

	now := s.now().UTC()
	deleted := &models.DeletedOrder{
		OriginalOrderID: order.ID,
		UserID:          user.ID,
		GatewayOrderID:  order.GatewayOrderID,
		UserDetails:     models.SnapshotUser(*user),
		Items:           s.snapshotItems(ctx, order.Items),
		CancelReason:    reason,
		CancelledAt:     now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.InsertDeleted(ctx, deleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store cancelled order")
		}
		removed, err := repo.DeletePending(ctx, order.ID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, pendingNotFoundMessage)
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(user.Role)},
			OccurredAt:    now,
			Version:       1,
			Data: payloads.OrderCanceledEvent{
				OrderID:        order.ID,
				DeletedOrderID: deleted.ID,
				UserID:         user.ID,
				Email:          user.Email,
				Name:           user.Name,
				GatewayOrderID: order.GatewayOrderID,
				Reason:         reason,
				CanceledAt:     now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order canceled event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCancellation()
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
		s.logg.Info(logCtx, "order cancelled")
	}
	return &CancelResult{
		Message:        CancelledMessage,
		OrderID:        order.ID,
		DeletedOrderID: deleted.ID,
	}, nil
}

// Deliver marks a pending order delivered on behalf of an admin.
func (s *service) Deliver(ctx context.Context, actorID uuid.UUID, orderID string) (*DeliverResult, error) {
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.Status == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already delivered")
	}

	now := s.now().UTC()
	data := payloads.OrderDeliveredEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		DeliveredAt: now,
	}
	if user, err := s.users.FindByID(ctx, order.UserID); err == nil {
		data.Email = user.Email
		data.Name = user.Name
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order owner")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).MarkDelivered(ctx, order.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order delivered")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already delivered")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: string(enums.UserRoleAdmin)},
			OccurredAt:    now,
			Version:       1,
			Data:          data,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order delivered event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncDelivery()
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(s.logg.WithUserID(ctx, actorID.String()), order.ID.String()), "order delivered")
	}
	return &DeliverResult{
		OrderID:     order.ID,
		Status:      enums.OrderStatusDelivered.Label(),
		DeliveredAt: now,
	}, nil
}

// snapshotItems prefers live catalog data and falls back to what was
// recorded at payment time. A catalog outage degrades to the order snapshot.
func (s *service) snapshotItems(ctx context.Context, items []models.OrderItem) []models.DeletedOrderItem {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	found, err := s.products.FindMany(ctx, ids)
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog lookup failed, using order snapshot")
	}

	out := make([]models.DeletedOrderItem, 0, len(items))
	for _, item := range items {
		snap := models.DeletedOrderItem{
			ProductID:            item.ProductID,
			Quantity:             item.Quantity,
			ProductName:          item.ProductName,
			CoverImage:           item.CoverImage,
			ProductDiscountPrice: item.UnitPrice,
		}
		if product, ok := found[item.ProductID]; ok {
			if name := firstNonEmpty(product.ProductName, product.Title); name != "" {
				snap.ProductName = name
			}
			if product.CoverImage != "" {
				snap.CoverImage = product.CoverImage
			}
			if product.DiscountPrice.Valid {
				snap.ProductDiscountPrice = product.DiscountPrice.Decimal
			}
		}
		out = append(out, snap)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
