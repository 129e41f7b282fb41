package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/payloads"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/registry"
)

// route is where and how one outbox row goes out.
type route struct {
	topic       string
	orderingKey string
	attributes  map[string]string
}

func routeFor(event models.OutboxEvent, resolved *registry.ResolvedEvent) route {
	attrs := map[string]string{
		"event_id":           resolved.Envelope.EventID,
		outbox.AttrEventType: string(event.EventType),
		"aggregate_type":     string(event.AggregateType),
		"aggregate_id":       event.AggregateID.String(),
		"version":            strconv.Itoa(resolved.Envelope.Version),
		"created_at":         event.CreatedAt.UTC().Format(time.RFC3339Nano),
		outbox.AttrNotify:    outbox.NotifyNone,
	}

	recipient := ""
	switch payload := resolved.Payload.(type) {
	case *payloads.OrderPaidEvent:
		recipient = payload.Email
		attrs["gateway_order_id"] = payload.GatewayOrderID
	case *payloads.OrderCanceledEvent:
		recipient = payload.Email
		attrs["gateway_order_id"] = payload.GatewayOrderID
	case *payloads.OrderDeliveredEvent:
		recipient = payload.Email
	}
	if strings.TrimSpace(recipient) != "" {
		attrs[outbox.AttrNotify] = outbox.NotifyCustomer
	}

	return route{
		topic:       resolved.Descriptor.Topic,
		orderingKey: orderingKey(event),
		attributes:  attrs,
	}
}

// orderingKey keeps every event of one order on the same key so the mailer
// sees paid before canceled or delivered when ordering is enabled on the topic.
func orderingKey(event models.OutboxEvent) string {
	if event.AggregateType != enums.AggregateOrder {
		return ""
	}
	return "order:" + event.AggregateID.String()
}
