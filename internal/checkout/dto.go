package checkout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateOrderRequest is the payload of POST /create-order. Amount is in paise.
type CreateOrderRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// IntentResult carries the gateway order the client opens checkout with.
type IntentResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
}

// VerifyPaymentRequest is the payload of POST /verify-payment.
type VerifyPaymentRequest struct {
	RazorpayOrderID   string       `json:"razorpay_order_id"`
	RazorpayPaymentID string       `json:"razorpay_payment_id"`
	RazorpaySignature string       `json:"razorpay_signature"`
	Items             []VerifyItem `json:"items"`
	CouponCode        string       `json:"couponCode"`
}

// VerifyItem is one purchased line as the client saw it in its cart.
type VerifyItem struct {
	Product  ItemProduct `json:"product"`
	Quantity int         `json:"quantity"`
}

// ItemProduct accepts either a bare product id or the product document the
// client received from GET /cart, of which only the id is kept.
type ItemProduct struct {
	ID string
}

func (p *ItemProduct) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &p.ID)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("product must be an id or an object: %w", err)
	}
	for _, key := range []string{"_id", "id"} {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			var oid struct {
				Hex string `json:"$oid"`
			}
			if err := json.Unmarshal(raw, &oid); err != nil {
				return fmt.Errorf("product %s must be a string", key)
			}
			id = oid.Hex
		}
		p.ID = strings.TrimSpace(id)
		return nil
	}
	return nil
}

func (p ItemProduct) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"_id": p.ID})
}

// VerifyResult acknowledges a recorded order.
type VerifyResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	OrderID uuid.UUID `json:"order_id"`
}
