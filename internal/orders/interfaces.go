package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for orders and their audit copies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByGatewayID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	DeletePending(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	InsertDeleted(ctx context.Context, deleted *models.DeletedOrder) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type productLookup interface {
	FindMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}
