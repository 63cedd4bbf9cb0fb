package bus

import "sync"

// MemoryBus is an in-process Bus for single-instance deployments and tests.
// Handlers are invoked synchronously in subscription order. Sharing one
// MemoryBus between several gateways reproduces the cross-instance fan-out
// of the NATS bus, self-delivery included.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

// Publish delivers data to every handler subscribed to the topic. A topic
// with no subscribers is not an error; the event is simply dropped.
func (b *MemoryBus) Publish(topic string, data []byte) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

// Subscribe registers a handler for the topic.
func (b *MemoryBus) Subscribe(topic string, handler Handler) error {
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	b.mu.Unlock()
	return nil
}
