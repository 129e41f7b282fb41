package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeletedOrder is the immutable audit copy written when a pending order is
// cancelled. user_id carries no foreign key so the row outlives the account.
type DeletedOrder struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OriginalOrderID uuid.UUID          `gorm:"column:original_order_id;type:uuid;not null;uniqueIndex"`
	UserID          uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	GatewayOrderID  string             `gorm:"column:gateway_order_id;not null"`
	UserDetails     UserSnapshot       `gorm:"column:user_details;type:jsonb;serializer:json;not null"`
	Items           []DeletedOrderItem `gorm:"column:items;type:jsonb;serializer:json;not null"`
	CancelReason    string             `gorm:"column:cancel_reason;not null"`
	CancelledAt     time.Time          `gorm:"column:cancelled_at;not null"`
}

func (d *DeletedOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// UserSnapshot is the shipping profile at cancellation time.
type UserSnapshot struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// DeletedOrderItem is a line item with product data at cancellation time.
type DeletedOrderItem struct {
	ProductID            string          `json:"product_id"`
	Quantity             int             `json:"quantity"`
	ProductName          string          `json:"product_name"`
	CoverImage           string          `json:"cover_image"`
	ProductDiscountPrice decimal.Decimal `json:"product_discount_price"`
}

// SnapshotUser copies the shipping profile of u.
func SnapshotUser(u User) UserSnapshot {
	return UserSnapshot{
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
		Address: u.Address,
		City:    u.City,
		State:   u.State,
		Pincode: u.Pincode,
	}
}
