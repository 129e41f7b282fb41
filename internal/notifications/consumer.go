package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/mailer"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/idempotency"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/registry"
)

const orderMailConsumer = "order-mailer"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns order events from Pub/Sub into customer emails.
type Consumer struct {
	subscription receiver
	decoders     *registry.DecoderRegistry
	idempotency  *idempotency.Manager
	mailer       mailer.Sender
	logg         *logger.Logger
}

// NewConsumer builds the order email consumer.
func NewConsumer(subscription receiver, manager *idempotency.Manager, sender mailer.Sender, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		decoders:     registry.NewOrderDecoders(),
		idempotency:  manager,
		mailer:       sender,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes[outbox.AttrEventType])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if msg.Attributes[outbox.AttrNotify] == outbox.NotifyNone {
		c.logg.Debug(logCtx, "event routed without customer email")
		return processResult{ack: true}
	}

	envelope, err := registry.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "skipping undecodable event")
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	msgOut, ok := messageFor(payload)
	if !ok {
		c.logg.Debug(logCtx, "event has no customer email")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderMailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.mailer.Send(ctx, msgOut); err != nil {
		if mailer.IsPermanent(err) {
			c.logg.Error(logCtx, "email rejected permanently", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "email delivery failed", err)
		if relErr := c.idempotency.Release(ctx, orderMailConsumer, eventID); relErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency marker", relErr)
		}
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "order email sent")
	return processResult{ack: true}
}
