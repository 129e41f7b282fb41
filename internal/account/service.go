package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/internal/cart"
	"github.com/meltedmeethas/storefront-backend/internal/users"
	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	pkgerrors "github.com/meltedmeethas/storefront-backend/pkg/errors"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/payloads"
)

// Service covers the signed-in customer's own account.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*Overview, error)
	UpdateAddress(ctx context.Context, userID uuid.UUID, req UpdateAddressRequest) (*UpdateResult, error)
	UpdateName(ctx context.Context, userID uuid.UUID, req UpdateNameRequest) (*UpdateResult, error)
	Delete(ctx context.Context, userID uuid.UUID) (*DeleteResult, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, profile users.ProfileDTO) (*models.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
}

type orderLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
}

type cartReader interface {
	Get(ctx context.Context, userID uuid.UUID) ([]cart.Line, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type sessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID, keep ...string) error
}

// ServiceParams groups the account service dependencies.
type ServiceParams struct {
	Users    userRepository
	Orders   orderLister
	Cart     cartReader
	Tx       txRunner
	Outbox   outboxPublisher
	Sessions sessionRevoker
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	users    userRepository
	orders   orderLister
	cart     cartReader
	tx       txRunner
	outbox   outboxPublisher
	sessions sessionRevoker
	validate *validator.Validate
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the account service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order lister required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:    params.Users,
		orders:   params.Orders,
		cart:     params.Cart,
		tx:       params.Tx,
		outbox:   params.Outbox,
		sessions: params.Sessions,
		validate: validator.New(),
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.cart.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	overview := &Overview{
		Profile:        users.FromModel(user),
		Cart:           cart.ToSummaries(lines),
		PendingOrders:  []OrderBrief{},
		PreviousOrders: []OrderBrief{},
	}
	for _, order := range orders {
		if order.Status == enums.OrderStatusDelivered {
			date := order.OrderedAt
			if order.DeliveredAt != nil {
				date = *order.DeliveredAt
			}
			overview.PreviousOrders = append(overview.PreviousOrders, briefFromOrder(order, date))
			continue
		}
		overview.PendingOrders = append(overview.PendingOrders, briefFromOrder(order, order.OrderedAt))
	}
	return overview, nil
}

func (s *service) UpdateAddress(ctx context.Context, userID uuid.UUID, req UpdateAddressRequest) (*UpdateResult, error) {
	req = UpdateAddressRequest{
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		City:    strings.TrimSpace(req.City),
		State:   strings.TrimSpace(req.State),
		Pincode: strings.TrimSpace(req.Pincode),
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address")
	}
	user, err := s.users.UpdateProfile(ctx, userID, req.toProfile())
	if err != nil {
		return nil, s.updateError(err, "update address")
	}
	return &UpdateResult{Message: AddressUpdatedMessage, User: users.FromModel(user)}, nil
}

func (s *service) UpdateName(ctx context.Context, userID uuid.UUID, req UpdateNameRequest) (*UpdateResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	user, err := s.users.UpdateName(ctx, userID, name)
	if err != nil {
		return nil, s.updateError(err, "update name")
	}
	return &UpdateResult{Message: NameUpdatedMessage, User: users.FromModel(user)}, nil
}

// Delete removes the account with its cart and orders, then revokes every
// session. Cancelled-order audit copies survive.
func (s *service) Delete(ctx context.Context, userID uuid.UUID) (*DeleteResult, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := users.NewRepository(tx).Delete(ctx, user.ID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventUserDeleted,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, Role: string(user.Role)},
			OccurredAt:    now,
			Version:       1,
			Data: payloads.UserDeletedEvent{
				UserID:    user.ID,
				Email:     user.Email,
				DeletedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit user deleted event")
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeInternal, "delete account")
	}

	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "failed to revoke sessions after account deletion")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "account deleted")
	}
	return &DeleteResult{Message: DeletedMessage}, nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) updateError(err error, msg string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
