package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/razorpay/razorpay-go"

	"github.com/meltedmeethas/storefront-backend/pkg/config"
)

const defaultTimeout = 15 * time.Second

// Order is the subset of a gateway order the storefront reads.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client creates gateway orders through the Razorpay Orders API.
type Client struct {
	orders   orderCreator
	currency string
	timeout  time.Duration
}

// NewClient builds a gateway client from the configured key pair.
func NewClient(cfg config.RazorpayConfig) (*Client, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}
	api := sdk.NewClient(cfg.KeyID, cfg.KeySecret)
	return newClient(api.Order, cfg), nil
}

func newClient(orders orderCreator, cfg config.RazorpayConfig) *Client {
	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = "INR"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{orders: orders, currency: currency, timeout: timeout}
}

// CreateOrder registers an order for amount minor units. The SDK has no
// context support so the call runs in a goroutine bounded by ctx and the
// configured timeout.
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string) (Order, error) {
	if c == nil || c.orders == nil {
		return Order{}, errors.New("razorpay client not initialized")
	}
	if amount <= 0 {
		return Order{}, fmt.Errorf("amount must be positive, got %d", amount)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := c.orders.Create(map[string]interface{}{
			"amount":   amount,
			"currency": c.currency,
			"receipt":  receipt,
		}, nil)
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return Order{}, fmt.Errorf("razorpay create order: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return Order{}, fmt.Errorf("razorpay create order: %w", res.err)
		}
		return parseOrder(res.body)
	}
}

func parseOrder(body map[string]interface{}) (Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return Order{}, errors.New("razorpay create order: response missing id")
	}
	order := Order{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)
	switch v := body["amount"].(type) {
	case float64:
		order.Amount = int64(v)
	case int64:
		order.Amount = v
	case int:
		order.Amount = int64(v)
	}
	return order, nil
}

// Receipt builds the receipt label for an order created at now.
func Receipt(now time.Time) string {
	return fmt.Sprintf("receipt_%d", now.UnixMilli())
}
