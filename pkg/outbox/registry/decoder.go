package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/meltedmeethas/storefront-backend/pkg/enums"
	"github.com/meltedmeethas/storefront-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// NewOrderDecoders returns a registry with v1 decoders for every order event.
func NewOrderDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderPaid, 1, decodeInto(func() interface{} { return &payloads.OrderPaidEvent{} }))
	reg.Register(enums.EventOrderCanceled, 1, decodeInto(func() interface{} { return &payloads.OrderCanceledEvent{} }))
	reg.Register(enums.EventOrderDelivered, 1, decodeInto(func() interface{} { return &payloads.OrderDeliveredEvent{} }))
	reg.Register(enums.EventUserDeleted, 1, decodeInto(func() interface{} { return &payloads.UserDeletedEvent{} }))
	return reg
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}

func decodeInto(factory func() interface{}) decoderFunc {
	return func(payload json.RawMessage) (interface{}, error) {
		out := factory()
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
