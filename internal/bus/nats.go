package bus

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// subjectPrefix namespaces all chat topics on the NATS side, so topic
// "message" maps to subject "chat.message".
const subjectPrefix = "chat."

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "parley",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NATSBus implements Bus on top of a NATS connection. Every instance
// subscribes to the same subjects, and NATS delivers published events to all
// of them, the publisher included.
type NATSBus struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewNATSBus connects to NATS with the given config and returns a ready bus.
// It returns an error if the initial connection fails.
func NewNATSBus(config NATSConfig) (*NATSBus, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[bus] disconnected: %v", err)
			} else {
				log.Printf("[bus] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[bus] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[bus] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("bus: nats connect: %w", err)
	}

	log.Printf("[bus] connected to %s", nc.ConnectedUrl())

	return &NATSBus{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the subject for the given topic. Publishing is
// fire-and-forget; a failure is returned to the caller for logging but the
// event is not retried.
func (b *NATSBus) Publish(topic string, data []byte) error {
	if err := b.conn.Publish(subjectPrefix+topic, data); err != nil {
		return fmt.Errorf("bus: publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for the given topic and stores the
// subscription internally for cleanup on Close.
func (b *NATSBus) Subscribe(topic string, handler Handler) error {
	subject := subjectPrefix + topic
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("bus: subscribe %s: %w", topic, err)
	}

	b.mu.Lock()
	b.subs[subject] = sub
	b.mu.Unlock()
	return nil
}

// Close drains all active subscriptions and closes the NATS connection.
func (b *NATSBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subject, sub := range b.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[bus] drain %s: %v", subject, err)
		}
	}
	b.subs = make(map[string]*nats.Subscription)

	if err := b.conn.Drain(); err != nil {
		log.Printf("[bus] connection drain: %v", err)
	}

	log.Printf("[bus] closed")
}
