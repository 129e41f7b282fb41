package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const unknownProductName = "Unknown"

// Product is the typed view over a schema-less catalog document. Only the
// fields the shop reads are extracted; Raw keeps the whole document.
type Product struct {
	ID            string
	Title         string
	ProductName   string
	Price         decimal.NullDecimal
	DiscountPrice decimal.NullDecimal
	CoverImage    string
	Featured      bool
	HotDeals      bool
	Raw           bson.M
}

// DisplayName is title, else productName, else "Unknown".
func (p Product) DisplayName() string {
	if name := strings.TrimSpace(p.Title); name != "" {
		return name
	}
	if name := strings.TrimSpace(p.ProductName); name != "" {
		return name
	}
	return unknownProductName
}

// DisplayPrice is discountPrice, else price, else zero. A discountPrice of
// zero or less means no discount.
func (p Product) DisplayPrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() {
		return p.DiscountPrice.Decimal
	}
	if p.Price.Valid {
		return p.Price.Decimal
	}
	return decimal.Zero
}

// ListPrice is price, else zero.
func (p Product) ListPrice() decimal.Decimal {
	if p.Price.Valid {
		return p.Price.Decimal
	}
	return decimal.Zero
}

// FromDocument extracts the typed fields of a raw catalog document.
func FromDocument(doc bson.M) Product {
	return Product{
		ID:            IDString(doc["_id"]),
		Title:         stringField(doc["title"]),
		ProductName:   stringField(doc["productName"]),
		Price:         decimalField(doc["price"]),
		DiscountPrice: decimalField(doc["discountPrice"]),
		CoverImage:    stringField(doc["coverImage"]),
		Featured:      boolField(doc["featured"]),
		HotDeals:      boolField(doc["hotDeals"]),
		Raw:           doc,
	}
}

// IDString renders a document id as the text stored in cart and order rows.
func IDString(value any) string {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// CanonicalID folds the spellings of one product id together: a valid
// ObjectID hex becomes lowercase, anything else is only trimmed.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid.Hex()
	}
	return id
}

// idCandidates returns the values an id may be stored as: an ObjectID when
// the text is a valid hex id, and always the plain string.
func idCandidates(id string) []any {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	out := make([]any, 0, 2)
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		out = append(out, oid)
	}
	return append(out, id)
}

func stringField(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func boolField(value any) bool {
	b, ok := value.(bool)
	return ok && b
}

func decimalField(value any) decimal.NullDecimal {
	switch v := value.(type) {
	case int32:
		return decimal.NewNullDecimal(decimal.NewFromInt32(v))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	case primitive.Decimal128:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return decimal.NewNullDecimal(d)
		}
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return decimal.NewNullDecimal(d)
		}
	}
	return decimal.NullDecimal{}
}
