package model

import (
	"math"
	"strings"
	"time"
)

// OrderType is fixed at creation and is the routing key for department
// queues.
type OrderType string

const (
	OrderTypeKitchen      OrderType = "kitchen"
	OrderTypeRoomService  OrderType = "room-service"
	OrderTypeMaintenance  OrderType = "maintenance"
	OrderTypeHousekeeping OrderType = "housekeeping"
	OrderTypeSecurity     OrderType = "security"
	OrderTypeOther        OrderType = "other"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeKitchen, OrderTypeRoomService, OrderTypeMaintenance,
		OrderTypeHousekeeping, OrderTypeSecurity, OrderTypeOther:
		return true
	}
	return false
}

// Priority only affects how queues are presented.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"

	// StatusNext names an advance request in errors; it is never stored.
	StatusNext Status = "next"
)

// successor is the forward chain of the lifecycle.  Cancellation is handled
// separately because it is reachable from every open state.
var successor = map[Status]Status{
	StatusPending:   StatusConfirmed,
	StatusConfirmed: StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusDelivered,
	StatusDelivered: StatusCompleted,
}

func (s Status) Valid() bool {
	if s == StatusCompleted || s == StatusCancelled {
		return true
	}
	_, ok := successor[s]
	return ok
}

// Terminal reports whether no further mutation is accepted.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// Next returns the successor in the forward chain.
func (s Status) Next() (Status, bool) {
	n, ok := successor[s]
	return n, ok
}

// CanTransitionTo reports whether target is reachable in one step.
func (s Status) CanTransitionTo(target Status) bool {
	if s.Terminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	next, ok := successor[s]
	return ok && next == target
}

// OrderItem is one billable line of an order.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Notes     string  `json:"notes,omitempty"`
}

// GuestOrder is a guest initiated service request moving through the
// department lifecycle.
type GuestOrder struct {
	Identity
	CustomerID    string      `json:"customerId,omitempty"`
	OrderType     OrderType   `json:"orderType"`
	Items         []OrderItem `json:"items"`
	ServiceType   string      `json:"serviceType,omitempty"`
	Description   string      `json:"description"`
	Priority      Priority    `json:"priority"`
	RoomNumber    string      `json:"roomNumber"`
	Status        Status      `json:"status"`
	TotalAmount   float64     `json:"totalAmount"`
	AssignedTo    string      `json:"assignedTo,omitempty"`
	HandledBy     string      `json:"handledBy,omitempty"`
	RequestedTime time.Time   `json:"requestedTime"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
}

// NewGuestOrder builds a pending order, applying defaults and validation.
func NewGuestOrder(customerID string, orderType OrderType, roomNumber, description, serviceType string, priority Priority, items []OrderItem, now time.Time) (*GuestOrder, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	if items == nil {
		items = []OrderItem{}
	}
	o := &GuestOrder{
		CustomerID:    strings.TrimSpace(customerID),
		OrderType:     orderType,
		Items:         items,
		ServiceType:   strings.TrimSpace(serviceType),
		Description:   strings.TrimSpace(description),
		Priority:      priority,
		RoomNumber:    strings.TrimSpace(roomNumber),
		Status:        StatusPending,
		RequestedTime: now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	o.CalculateTotal()
	return o, nil
}

// Validate checks required fields, enum values and item lines.
func (o *GuestOrder) Validate() error {
	if o.OrderType == "" {
		return missing("orderType")
	}
	if !o.OrderType.Valid() {
		return invalid("orderType", "unknown order type "+string(o.OrderType))
	}
	if o.RoomNumber == "" {
		return missing("roomNumber")
	}
	if o.Description == "" {
		return missing("description")
	}
	if !o.Priority.Valid() {
		return invalid("priority", "unknown priority "+string(o.Priority))
	}
	if o.OrderType == OrderTypeKitchen && len(o.Items) == 0 {
		return invalid("items", "kitchen orders need at least one item")
	}
	return ValidateItems(o.Items)
}

// ValidateItems checks each line independently of the order type.
func ValidateItems(items []OrderItem) error {
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return invalid("items.name", "is required")
		}
		if it.Quantity < 1 {
			return invalid("items.quantity", "must be at least 1")
		}
		if it.UnitPrice < 0 || math.IsNaN(it.UnitPrice) || math.IsInf(it.UnitPrice, 0) {
			return invalid("items.unitPrice", "must be a non-negative amount")
		}
	}
	return nil
}

// CalculateTotal derives TotalAmount from the items, rounded to cents.
// Orders without items total zero.
func (o *GuestOrder) CalculateTotal() {
	total := 0.0
	for _, it := range o.Items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	o.TotalAmount = math.Round(total*100) / 100
}

// TransitionTo moves the order to target in one step.  Entering completed
// stamps HandledBy and CompletedAt.
func (o *GuestOrder) TransitionTo(target Status, by string, now time.Time) error {
	if !target.Valid() {
		return invalid("status", "unknown status "+string(target))
	}
	if !o.Status.CanTransitionTo(target) {
		return &TransitionError{From: o.Status, To: target}
	}
	o.Status = target
	o.UpdatedAt = now.UTC()
	if target == StatusCompleted {
		t := now.UTC()
		o.CompletedAt = &t
		o.HandledBy = by
	}
	return nil
}

// Advance steps to the next state of the forward chain.
func (o *GuestOrder) Advance(by string, now time.Time) error {
	next, ok := o.Status.Next()
	if !ok {
		return &TransitionError{From: o.Status, To: StatusNext}
	}
	return o.TransitionTo(next, by, now)
}

// Cancel ends the order from any open state.
func (o *GuestOrder) Cancel(now time.Time) error {
	return o.TransitionTo(StatusCancelled, "", now)
}

// Assign sets AssignedTo without changing status.
func (o *GuestOrder) Assign(staffID string, now time.Time) error {
	if o.Status.Terminal() {
		return &TransitionError{From: o.Status}
	}
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return missing("assignedTo")
	}
	o.AssignedTo = staffID
	o.UpdatedAt = now.UTC()
	return nil
}

// ReplaceItems swaps the item lines and recomputes the total.
func (o *GuestOrder) ReplaceItems(items []OrderItem, now time.Time) error {
	if o.Status.Terminal() {
		return &TransitionError{From: o.Status}
	}
	if items == nil {
		items = []OrderItem{}
	}
	if o.OrderType == OrderTypeKitchen && len(items) == 0 {
		return invalid("items", "kitchen orders need at least one item")
	}
	if err := ValidateItems(items); err != nil {
		return err
	}
	o.Items = items
	o.CalculateTotal()
	o.UpdatedAt = now.UTC()
	return nil
}
