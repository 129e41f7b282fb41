package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
)

// Repository exposes persistence operations for cart rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Upsert inserts the line or adds quantity to the existing one in a single
// statement, so concurrent adds for the same product never lose an update.
func (r *Repository) Upsert(ctx context.Context, userID uuid.UUID, productID string, quantity int) error {
	now := time.Now().UTC()
	item := models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": now,
			}),
		}).
		Create(&item).Error
}

// SetQuantity overwrites the quantity of an existing line and reports whether
// a row matched.
func (r *Repository) SetQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		UpdateColumns(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Clear deletes every line of the user.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// List returns the user's lines in the order they were added.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// RemoveProducts deletes the user's lines pointing at the given products.
func (r *Repository) RemoveProducts(ctx context.Context, userID uuid.UUID, productIDs []string) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DistinctProductIDs pages through the product ids referenced by any cart,
// in ascending order after the given cursor.
func (r *Repository) DistinctProductIDs(ctx context.Context, after string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Distinct("product_id").
		Where("product_id > ?", after).
		Order("product_id ASC").
		Limit(limit).
		Pluck("product_id", &ids).Error
	return ids, err
}

// DeleteByProductIDs removes every cart line pointing at the given products.
func (r *Repository) DeleteByProductIDs(ctx context.Context, productIDs []string) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
