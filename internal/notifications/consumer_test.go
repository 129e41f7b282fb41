package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/mailer"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/idempotency"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

type recordingSender struct {
	sent []mailer.Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg mailer.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type nopReceiver struct{}

func (nopReceiver) Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error {
	return nil
}

func newTestConsumer(t *testing.T, sender *recordingSender) (*Consumer, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	consumer, err := NewConsumer(nopReceiver{}, manager, sender, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return consumer, store
}

func eventMessage(t *testing.T, eventType enums.OutboxEventType, eventID string, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         "msg-" + eventID,
		Data:       body,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func paidEvent() payloads.OrderPaidEvent {
	return payloads.OrderPaidEvent{
		OrderID:        uuid.New(),
		UserID:         uuid.New(),
		Email:          "kiran@example.com",
		Name:           "Kiran",
		GatewayOrderID: "order_gw_9",
		Discount:       decimal.NewFromInt(100),
		Total:          decimal.NewFromInt(400),
		Items: []payloads.OrderLine{{
			ProductID:   "p1",
			ProductName: "Kaju Katli",
			Quantity:    2,
			UnitPrice:   decimal.NewFromInt(250),
		}},
	}
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	_, err := NewConsumer(nil, nil, nil, nil)
	require.Error(t, err)
}

func TestProcessSendsOrderConfirmationOnce(t *testing.T) {
	sender := &recordingSender{}
	consumer, _ := newTestConsumer(t, sender)
	msg := eventMessage(t, enums.EventOrderPaid, uuid.NewString(), paidEvent())

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "kiran@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Text, "order_gw_9")
	assert.Contains(t, sender.sent[0].Text, "Kaju Katli x2")

	again := consumer.process(context.Background(), msg)
	assert.True(t, again.ack)
	assert.Len(t, sender.sent, 1, "redelivery does not send twice")
}

func TestProcessCanceledAndDelivered(t *testing.T) {
	sender := &recordingSender{}
	consumer, _ := newTestConsumer(t, sender)

	canceled := payloads.OrderCanceledEvent{Email: "kiran@example.com", Name: "Kiran", GatewayOrderID: "order_gw_9", Reason: "ordered twice"}
	require.True(t, consumer.process(context.Background(), eventMessage(t, enums.EventOrderCanceled, uuid.NewString(), canceled)).ack)

	delivered := payloads.OrderDeliveredEvent{Email: "kiran@example.com", Name: "Kiran", DeliveredAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}
	require.True(t, consumer.process(context.Background(), eventMessage(t, enums.EventOrderDelivered, uuid.NewString(), delivered)).ack)

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].Text, "Reason: ordered twice")
	assert.Contains(t, sender.sent[1].Text, "04 Mar 2026")
}

func TestProcessAcksUndecodableAndSilentEvents(t *testing.T) {
	sender := &recordingSender{}
	consumer, _ := newTestConsumer(t, sender)

	garbage := &pubsub.Message{ID: "bad", Data: []byte("not json"), Attributes: map[string]string{"event_type": string(enums.EventOrderPaid)}}
	assert.True(t, consumer.process(context.Background(), garbage).ack)

	unknown := eventMessage(t, enums.OutboxEventType("coupon_created"), uuid.NewString(), map[string]string{"code": "X"})
	assert.True(t, consumer.process(context.Background(), unknown).ack)

	deleted := eventMessage(t, enums.EventUserDeleted, uuid.NewString(), payloads.UserDeletedEvent{UserID: uuid.New(), Email: "gone@example.com"})
	assert.True(t, consumer.process(context.Background(), deleted).ack)

	noRecipient := paidEvent()
	noRecipient.Email = ""
	assert.True(t, consumer.process(context.Background(), eventMessage(t, enums.EventOrderPaid, uuid.NewString(), noRecipient)).ack)

	assert.Empty(t, sender.sent)
}

func TestProcessSkipsEventsRoutedWithoutCustomerEmail(t *testing.T) {
	sender := &recordingSender{}
	consumer, store := newTestConsumer(t, sender)

	msg := eventMessage(t, enums.EventOrderPaid, uuid.NewString(), paidEvent())
	msg.Attributes[outbox.AttrNotify] = outbox.NotifyNone
	assert.True(t, consumer.process(context.Background(), msg).ack)
	assert.Empty(t, sender.sent)
	assert.Empty(t, store.keys)

	msg = eventMessage(t, enums.EventOrderPaid, uuid.NewString(), paidEvent())
	msg.Attributes[outbox.AttrNotify] = outbox.NotifyCustomer
	assert.True(t, consumer.process(context.Background(), msg).ack)
	assert.Len(t, sender.sent, 1)
}

func TestProcessNacksTransientFailureAndReleasesMarker(t *testing.T) {
	sender := &recordingSender{err: errors.New("sendgrid timeout")}
	consumer, store := newTestConsumer(t, sender)
	msg := eventMessage(t, enums.EventOrderPaid, uuid.NewString(), paidEvent())

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.nack)
	assert.Empty(t, store.keys, "marker is released so the retry is processed")

	sender.err = nil
	retry := consumer.process(context.Background(), msg)
	assert.True(t, retry.ack)
	assert.Len(t, sender.sent, 1)
}

func TestProcessAcksPermanentFailure(t *testing.T) {
	sender := &recordingSender{err: &mailer.PermanentError{StatusCode: 400, Body: "invalid email"}}
	consumer, _ := newTestConsumer(t, sender)

	result := consumer.process(context.Background(), eventMessage(t, enums.EventOrderPaid, uuid.NewString(), paidEvent()))
	assert.True(t, result.ack)
	assert.False(t, result.nack)
}
