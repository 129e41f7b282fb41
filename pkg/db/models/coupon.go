package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon is a single-use discount code. IsUsed only ever flips to true.
type Coupon struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Code      string              `gorm:"column:code;not null;uniqueIndex:coupons_code_key"`
	Discount  decimal.NullDecimal `gorm:"column:discount;type:numeric(12,2)"`
	IsUsed    bool                `gorm:"column:is_used;not null;default:false"`
	UsedBy    *uuid.UUID          `gorm:"column:used_by;type:uuid"`
	UsedAt    *time.Time          `gorm:"column:used_at"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
