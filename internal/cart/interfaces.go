package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Upsert(ctx context.Context, userID uuid.UUID, productID string, quantity int) error
	SetQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	RemoveProducts(ctx context.Context, userID uuid.UUID, productIDs []string) (int64, error)
}

// ProductLookup resolves catalog products for cart display and validation.
type ProductLookup interface {
	FindByID(ctx context.Context, id string) (*catalog.Product, error)
	FindMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}
