// Package queue defines message payloads exchanged over the message broker.
package queue

// OrdersQueueName is the durable queue carrying guest order events.
const OrdersQueueName = "guest_orders.events"

// Event types published for guest orders.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderAssigned      = "order.assigned"
)

// OrderEvent is published whenever a guest order is created, changes status
// or is assigned.  It carries enough for downstream consumers to log or
// notify a department without reading the order back.
type OrderEvent struct {
	Type           string  `json:"type"`
	OrderID        string  `json:"order_id"`
	LegacyID       int64   `json:"legacy_id,omitempty"`
	OrderType      string  `json:"order_type"`
	Department     string  `json:"department"`
	RoomNumber     string  `json:"room_number"`
	Status         string  `json:"status"`
	PreviousStatus string  `json:"previous_status,omitempty"`
	Priority       string  `json:"priority"`
	AssignedTo     string  `json:"assigned_to,omitempty"`
	HandledBy      string  `json:"handled_by,omitempty"`
	TotalAmount    float64 `json:"total_amount"`
	OccurredAt     string  `json:"occurred_at"`
}
