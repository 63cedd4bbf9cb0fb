// Package bus provides the publish/subscribe fabric that connects all server
// instances. Events published to a topic are delivered to every subscribed
// instance, including the publisher's own, so the instance that handles an
// event also renders it to its local connections. Delivery is fire-and-forget
// and at-most-once: lost events are not retried at this layer.
package bus

// Topics used by the chat core.
const (
	TopicMessage = "message"
	TopicRoster  = "roster"
	TopicSystem  = "system"
)

// Handler is invoked once per delivered event. Handlers for a single topic
// are invoked in the order the bus delivers them; ordering across different
// publishers is not guaranteed.
type Handler func(data []byte)

// Bus is the cross-instance broadcast fabric. The NATS implementation backs
// multi-instance deployments; the in-process implementation serves
// single-instance runs and tests.
type Bus interface {
	Publish(topic string, data []byte) error
	Subscribe(topic string, handler Handler) error
}
