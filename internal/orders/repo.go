package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByGatewayID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns every order of the user, newest first.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.withItems(ctx).
		Where("user_id = ?", userID).
		Order("ordered_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// DeletePending removes the order only while it is still pending. It reports
// false when nothing matched so the caller can roll back its transaction.
func (r *repository) DeletePending(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	db := r.db.WithContext(ctx)
	pending := db.Model(&models.Order{}).
		Select("id").
		Where("id = ? AND user_id = ? AND status = ?", id, userID, enums.OrderStatusPending)
	if err := db.Where("order_id IN (?)", pending).Delete(&models.OrderItem{}).Error; err != nil {
		return false, err
	}
	res := db.Where("id = ? AND user_id = ? AND status = ?", id, userID, enums.OrderStatusPending).
		Delete(&models.Order{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkDelivered moves a pending order to delivered.
func (r *repository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		UpdateColumns(map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) InsertDeleted(ctx context.Context, deleted *models.DeletedOrder) error {
	return r.db.WithContext(ctx).Create(deleted).Error
}

func (r *repository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}
