package enums

import "fmt"

// OrderStatus is the fulfillment state of a recorded order. Cancelled orders
// leave the orders table entirely, so there is no cancelled value.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDelivered OrderStatus = "delivered"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusDelivered,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Label is the display form used in order listings.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusDelivered:
		return "Delivered"
	default:
		return "Pending"
	}
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
