package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meltedmeethas/storefront-backend/internal/cart"
	"github.com/meltedmeethas/storefront-backend/internal/users"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
)

const (
	AddressUpdatedMessage = "Address updated"
	NameUpdatedMessage    = "Name updated"
	DeletedMessage        = "Account deleted"

	unknownProductName = "Unknown Product"
)

// UpdateAddressRequest is the payload of PUT /update-address.
type UpdateAddressRequest struct {
	Phone   string `json:"phone" validate:"omitempty,max=20"`
	Address string `json:"address" validate:"omitempty,max=500"`
	City    string `json:"city" validate:"omitempty,max=100"`
	State   string `json:"state" validate:"omitempty,max=100"`
	Pincode string `json:"pincode" validate:"omitempty,max=12"`
}

// UpdateNameRequest is the payload of PUT /update.
type UpdateNameRequest struct {
	Name string `json:"name"`
}

// UpdateResult echoes the stored profile after an update.
type UpdateResult struct {
	Message string         `json:"message"`
	User    *users.UserDTO `json:"user"`
}

// DeleteResult acknowledges a removed account.
type DeleteResult struct {
	Message string `json:"message"`
}

// Overview is the GET /me payload.
type Overview struct {
	Profile        *users.UserDTO `json:"profile"`
	Cart           []cart.Summary `json:"cart"`
	PendingOrders  []OrderBrief   `json:"pending_orders"`
	PreviousOrders []OrderBrief   `json:"previous_orders"`
}

// OrderBrief is the compact order row embedded in /me.
type OrderBrief struct {
	OrderID  uuid.UUID      `json:"order_id"`
	Date     time.Time      `json:"date"`
	Products []ProductBrief `json:"products"`
}

// ProductBrief carries the order-time name and price of one line.
type ProductBrief struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

func briefFromOrder(order models.Order, date time.Time) OrderBrief {
	products := make([]ProductBrief, 0, len(order.Items))
	for _, item := range order.Items {
		name := item.ProductName
		if name == "" {
			name = unknownProductName
		}
		products = append(products, ProductBrief{Name: name, Price: item.UnitPrice, Qty: item.Quantity})
	}
	return OrderBrief{OrderID: order.ID, Date: date, Products: products}
}

func (r UpdateAddressRequest) toProfile() users.ProfileDTO {
	return users.ProfileDTO{
		Phone:   r.Phone,
		Address: r.Address,
		City:    r.City,
		State:   r.State,
		Pincode: r.Pincode,
	}
}
