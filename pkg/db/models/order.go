package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/enums"
)

// Order is a paid purchase awaiting or past delivery.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	GatewayOrderID   string              `gorm:"column:gateway_order_id;not null;uniqueIndex:orders_gateway_order_id_key"`
	GatewayPaymentID string              `gorm:"column:gateway_payment_id;not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	CouponCode       *string             `gorm:"column:coupon_code"`
	Discount         decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Subtotal         decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	Total            decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	OrderedAt        time.Time           `gorm:"column:ordered_at;not null"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots the product as it was when the payment was verified.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   string          `gorm:"column:product_id;type:text;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	ProductName string          `gorm:"column:product_name;not null;default:''"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	ListPrice   decimal.Decimal `gorm:"column:list_price;type:numeric(12,2);not null;default:0"`
	CoverImage  string          `gorm:"column:cover_image;not null;default:''"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
