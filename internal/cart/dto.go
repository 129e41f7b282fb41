package cart

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/meltedmeethas/storefront-backend/internal/catalog"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
)

// AddItemRequest is the payload of POST /cart/add. Quantity is kept raw
// because clients send numbers and numeric strings alike.
type AddItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  json.RawMessage `json:"quantity,omitempty"`
}

// SetQuantityRequest is the payload of PUT /cart/{productId}.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// Line joins a stored cart row with its resolved catalog product.
type Line struct {
	Item    models.CartItem
	Product catalog.Product
}

// Entry is the GET /cart shape: the quantity and the raw product document.
type Entry struct {
	Quantity int    `json:"quantity"`
	Product  bson.M `json:"product"`
}

// Summary is the compact cart row embedded in /me.
type Summary struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

func ToEntries(lines []Line) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		out = append(out, Entry{Quantity: line.Item.Quantity, Product: line.Product.Raw})
	}
	return out
}

func ToSummaries(lines []Line) []Summary {
	out := make([]Summary, 0, len(lines))
	for _, line := range lines {
		out = append(out, Summary{
			ID:    line.Item.ID,
			Name:  line.Product.DisplayName(),
			Price: line.Product.DisplayPrice(),
			Qty:   line.Item.Quantity,
		})
	}
	return out
}

// CoerceQuantity turns a raw JSON quantity into a positive integer. Numbers
// are truncated, strings contribute their leading integer, and anything
// unparsable or below one becomes one.
func CoerceQuantity(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 1
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return 1
	}
	qty := 0
	switch v := value.(type) {
	case float64:
		if v >= 1 && v <= math.MaxInt32 {
			qty = int(v)
		}
	case string:
		qty = leadingInt(v)
	}
	if qty < 1 {
		return 1
	}
	return qty
}

func leadingInt(value string) int {
	value = strings.TrimSpace(value)
	end := 0
	for end < len(value) && (value[end] >= '0' && value[end] <= '9' || end == 0 && (value[end] == '+' || value[end] == '-')) {
		end++
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil || n > math.MaxInt32 {
		return 0
	}
	return n
}
