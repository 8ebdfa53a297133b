package messaging

import "context"

// Publisher defines an interface for publishing events to a message broker.
// An event that is already encoded may be passed as json.RawMessage.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is cancelled.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}

// Topic names for order events.
const (
	TopicOrderCreated       = "orders.created"
	TopicOrderCancelled     = "orders.cancelled"
	TopicOrderStatusChanged = "orders.status_changed"
)

// TopicFor maps an event type to the topic it is published on.
func TopicFor(eventType string) (string, bool) {
	switch eventType {
	case "OrderCreated":
		return TopicOrderCreated, true
	case "OrderCancelled":
		return TopicOrderCancelled, true
	case "OrderStatusChanged":
		return TopicOrderStatusChanged, true
	}
	return "", false
}
