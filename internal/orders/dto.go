package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
)

// CancelRequest is the payload of POST /cancel/{orderId}.
type CancelRequest struct {
	CancelReason string `json:"cancelReason"`
}

// CancelResult acknowledges a cancellation.
type CancelResult struct {
	Message        string    `json:"message"`
	OrderID        uuid.UUID `json:"order_id"`
	DeletedOrderID uuid.UUID `json:"deleted_order_id"`
}

// DeliverResult describes an order after an admin delivered it.
type DeliverResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	Status      string    `json:"status"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// ProductSnapshot is the product as it was when the order was paid.
type ProductSnapshot struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	CoverImage    string          `json:"cover_image"`
}

// SummaryItem is one line of an order listing.
type SummaryItem struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// Summary is the GET /orders representation of an order.
type Summary struct {
	OrderID    uuid.UUID       `json:"order_id"`
	Status     string          `json:"status"`
	Date       time.Time       `json:"date"`
	CouponCode *string         `json:"coupon_code"`
	Discount   decimal.Decimal `json:"discount"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Total      decimal.Decimal `json:"total"`
	Items      []SummaryItem   `json:"items"`
}

// DetailItem is one line of GET /orders/{id}.
type DetailItem struct {
	ProductID            string          `json:"product_id"`
	ProductName          string          `json:"product_name"`
	ProductPrice         decimal.Decimal `json:"product_price"`
	ProductDiscountPrice decimal.Decimal `json:"product_discount_price"`
	Quantity             int             `json:"quantity"`
	CoverImage           string          `json:"cover_image"`
}

// Detail is the GET /orders/{id} representation of an order.
type Detail struct {
	ID          uuid.UUID       `json:"id"`
	Items       []DetailItem    `json:"items"`
	OrderedAt   time.Time       `json:"ordered_at"`
	DeliveredAt *time.Time      `json:"delivered_at"`
	Delivered   bool            `json:"delivered"`
	Discount    decimal.Decimal `json:"discount"`
	CouponCode  *string         `json:"coupon_code"`
	Total       decimal.Decimal `json:"total"`
}

// SummaryFromModel maps an order onto its listing shape. Delivered orders are
// dated by delivery, pending ones by payment.
func SummaryFromModel(order models.Order) Summary {
	date := order.OrderedAt
	if order.Status == enums.OrderStatusDelivered && order.DeliveredAt != nil {
		date = *order.DeliveredAt
	}
	items := make([]SummaryItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, SummaryItem{
			Product: ProductSnapshot{
				ID:            item.ProductID,
				Title:         item.ProductName,
				Price:         item.ListPrice,
				DiscountPrice: item.UnitPrice,
				CoverImage:    item.CoverImage,
			},
			Quantity: item.Quantity,
		})
	}
	return Summary{
		OrderID:    order.ID,
		Status:     order.Status.Label(),
		Date:       date,
		CouponCode: order.CouponCode,
		Discount:   order.Discount,
		Subtotal:   order.Subtotal,
		Total:      order.Total,
		Items:      items,
	}
}

// DetailFromModel maps an order onto its detail shape.
func DetailFromModel(order models.Order) Detail {
	items := make([]DetailItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, DetailItem{
			ProductID:            item.ProductID,
			ProductName:          item.ProductName,
			ProductPrice:         item.ListPrice,
			ProductDiscountPrice: item.UnitPrice,
			Quantity:             item.Quantity,
			CoverImage:           item.CoverImage,
		})
	}
	return Detail{
		ID:          order.ID,
		Items:       items,
		OrderedAt:   order.OrderedAt,
		DeliveredAt: order.DeliveredAt,
		Delivered:   order.Status == enums.OrderStatusDelivered,
		Discount:    order.Discount,
		CouponCode:  order.CouponCode,
		Total:       order.Total,
	}
}
