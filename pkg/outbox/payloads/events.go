package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the item summary carried by order events.
type OrderLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// OrderPaidEvent is emitted when a verified payment is recorded as a pending order.
type OrderPaidEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	UserID           uuid.UUID       `json:"user_id"`
	Email            string          `json:"email"`
	Name             string          `json:"name"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id"`
	CouponCode       *string         `json:"coupon_code,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Discount         decimal.Decimal `json:"discount"`
	Total            decimal.Decimal `json:"total"`
	Items            []OrderLine     `json:"items"`
	PaidAt           time.Time       `json:"paid_at"`
}

// OrderCanceledEvent is emitted when a customer cancels a pending order.
type OrderCanceledEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	DeletedOrderID uuid.UUID `json:"deleted_order_id"`
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Reason         string    `json:"reason"`
	CanceledAt     time.Time `json:"canceled_at"`
}

// OrderDeliveredEvent is emitted when an admin marks an order delivered.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// UserDeletedEvent is emitted when a customer deletes their account.
type UserDeletedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	DeletedAt time.Time `json:"deleted_at"`
}
