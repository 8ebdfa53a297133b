package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Stream types used in the event store.
const (
	StreamTypeOrder = "order"
)

// EventStoreRecord represents an event stored in the database.
type EventStoreRecord struct {
	ID          string          `json:"id"`
	StreamID    string          `json:"stream_id"`
	StreamType  string          `json:"stream_type"`
	Version     int             `json:"version"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// Event represents a domain event.
type Event interface {
	EventType() string
}

// OrderCreated is recorded when a cart is converted into an order.
type OrderCreated struct {
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []OrderLine     `json:"lines"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (e OrderCreated) EventType() string { return "OrderCreated" }

// OrderCancelled is recorded when an order is cancelled and its stock
// returned to inventory.
type OrderCancelled struct {
	OrderID     int64        `json:"order_id"`
	UserID      int64        `json:"user_id"`
	Restored    []Adjustment `json:"restored"`
	ByAdmin     bool         `json:"by_admin"`
	CancelledAt time.Time    `json:"cancelled_at"`
}

func (e OrderCancelled) EventType() string { return "OrderCancelled" }

// OrderStatusChanged is recorded for administrative forward transitions.
type OrderStatusChanged struct {
	OrderID   int64       `json:"order_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ChangedAt time.Time   `json:"changed_at"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }
