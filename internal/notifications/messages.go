package notifications

import (
	"strings"

	"github.com/meltedmeethas/storefront-backend/pkg/mailer"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/payloads"
)

// messageFor renders the email for a decoded event. It reports false for
// events that do not notify the customer or carry no recipient.
func messageFor(payload any) (mailer.Message, bool) {
	var msg mailer.Message
	switch event := payload.(type) {
	case *payloads.OrderPaidEvent:
		lines := make([]mailer.OrderLine, 0, len(event.Items))
		for _, item := range event.Items {
			lines = append(lines, mailer.OrderLine{
				Name:      item.ProductName,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
		msg = mailer.OrderConfirmed(event.Email, event.Name, event.GatewayOrderID, lines, event.Discount, event.Total)
	case *payloads.OrderCanceledEvent:
		msg = mailer.OrderCanceled(event.Email, event.Name, event.GatewayOrderID, event.Reason)
	case *payloads.OrderDeliveredEvent:
		msg = mailer.OrderDelivered(event.Email, event.Name, event.DeliveredAt)
	default:
		return mailer.Message{}, false
	}
	if strings.TrimSpace(msg.To) == "" {
		return mailer.Message{}, false
	}
	return msg, true
}
