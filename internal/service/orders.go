// Package service holds the guest order workflow: it resolves identifiers,
// applies lifecycle rules from the model package, persists through the
// fallback coordinator and announces changes on the broker.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-backoffice/internal/metrics"
	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/queue"
	"github.com/iliyamo/hotel-backoffice/internal/repository"
)

const publishTimeout = 3 * time.Second

// CreateOrderInput is a guest request as received from the API.
type CreateOrderInput struct {
	CustomerID  string            `json:"customerId"`
	OrderType   model.OrderType   `json:"orderType"`
	RoomNumber  string            `json:"roomNumber"`
	Description string            `json:"description"`
	ServiceType string            `json:"serviceType"`
	Priority    model.Priority    `json:"priority"`
	Items       []model.OrderItem `json:"items"`
}

// OrderService drives guest orders through their lifecycle.
type OrderService struct {
	orders    *repository.Store[*model.GuestOrder]
	customers *repository.Store[*model.Customer]
	staff     *repository.Store[*model.Staff]
	routing   model.Routing
	events    EventPublisher
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewOrderService(stores *repository.Stores, routing model.Routing, events EventPublisher, log logrus.FieldLogger) *OrderService {
	if events == nil {
		events = NopPublisher{}
	}
	return &OrderService{
		orders:    stores.Orders,
		customers: stores.Customers,
		staff:     stores.Staff,
		routing:   routing,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// Create validates and stores a new pending order.  A supplied customer
// reference must resolve and is stored in canonical form.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*model.GuestOrder, error) {
	now := s.now()
	o, err := model.NewGuestOrder(in.CustomerID, in.OrderType, in.RoomNumber, in.Description, in.ServiceType, in.Priority, in.Items, now)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != "" {
		c, err := s.customers.Resolve(ctx, o.CustomerID)
		if err != nil {
			return nil, referenceError(err, "customerId", "unknown customer")
		}
		o.CustomerID = c.CanonicalID()
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	metrics.OrdersCreated.WithLabelValues(string(o.OrderType)).Inc()
	s.log.WithFields(logrus.Fields{
		"order_id":   o.CanonicalID(),
		"order_type": o.OrderType,
		"room":       o.RoomNumber,
	}).Info("order created")
	s.publish(ctx, orderEvent(queue.EventOrderCreated, o, "", now))
	return o, nil
}

// Get resolves an order by either identifier.
func (s *OrderService) Get(ctx context.Context, id string) (*model.GuestOrder, error) {
	return s.orders.Resolve(ctx, id)
}

// List returns every order sorted by requestedTime, oldest first,
// optionally restricted to one status.
func (s *OrderService) List(ctx context.Context, status string) ([]*model.GuestOrder, error) {
	return s.filter(ctx, status, func(*model.GuestOrder) bool { return true })
}

// Queue returns the orders shown to a department, oldest first.
func (s *OrderService) Queue(ctx context.Context, department, status string) ([]*model.GuestOrder, error) {
	d, ok := model.ParseDepartment(department)
	if !ok {
		return nil, &model.ValidationError{Field: "department", Reason: "unknown department " + department}
	}
	return s.filter(ctx, status, func(o *model.GuestOrder) bool { return s.routing.Belongs(o, d) })
}

func (s *OrderService) filter(ctx context.Context, status string, keep func(*model.GuestOrder) bool) ([]*model.GuestOrder, error) {
	var want model.Status
	if status = strings.TrimSpace(strings.ToLower(status)); status != "" {
		want = model.Status(status)
		if want == model.StatusNext || !want.Valid() {
			return nil, &model.ValidationError{Field: "status", Reason: "unknown status " + status}
		}
	}
	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.GuestOrder, 0, len(all))
	for _, o := range all {
		if want != "" && o.Status != want {
			continue
		}
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RequestedTime.Before(out[j].RequestedTime) })
	return out, nil
}

// Update applies a partial change.  All parts are checked before anything
// is stored, so a rejected patch leaves the order untouched.  actor is the
// staff member making the request and becomes handledBy on completion
// unless the patch names someone else.
func (s *OrderService) Update(ctx context.Context, id string, p OrderPatch, actor string) (*model.GuestOrder, error) {
	o, err := s.orders.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return o, nil
	}
	now := s.now()
	prevStatus, prevAssigned := o.Status, o.AssignedTo

	if p.Status != nil && *p.Status == o.Status {
		p.Status = nil
		if p.Empty() {
			return o, nil
		}
	}
	if o.Status.Terminal() && !p.Empty() {
		te := &model.TransitionError{From: o.Status}
		if p.Status != nil {
			te.To = *p.Status
		}
		return nil, te
	}
	if p.HandledBy != nil && (p.Status == nil || *p.Status != model.StatusCompleted) {
		return nil, &model.ValidationError{Field: "handledBy", Reason: "can only be set when completing the order"}
	}

	if p.Items != nil {
		if err := o.ReplaceItems(*p.Items, now); err != nil {
			return nil, err
		}
	}
	if p.AssignedTo != nil {
		staffID, err := s.staffRef(ctx, *p.AssignedTo, "assignedTo")
		if err != nil {
			return nil, err
		}
		if err := o.Assign(staffID, now); err != nil {
			return nil, err
		}
	}
	if p.Status != nil {
		by := actor
		if p.HandledBy != nil {
			if by, err = s.staffRef(ctx, *p.HandledBy, "handledBy"); err != nil {
				return nil, err
			}
		}
		if err := o.TransitionTo(*p.Status, by, now); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	s.afterChange(ctx, o, prevStatus, prevAssigned, now)
	return o, nil
}

// Advance moves the order to the next state of the forward chain.
func (s *OrderService) Advance(ctx context.Context, id, actor string) (*model.GuestOrder, error) {
	return s.mutate(ctx, id, func(o *model.GuestOrder, now time.Time) error {
		return o.Advance(actor, now)
	})
}

// Cancel closes the order from any open state.
func (s *OrderService) Cancel(ctx context.Context, id string) (*model.GuestOrder, error) {
	return s.mutate(ctx, id, func(o *model.GuestOrder, now time.Time) error {
		return o.Cancel(now)
	})
}

// Assign hands the order to a staff member without changing its status.
func (s *OrderService) Assign(ctx context.Context, id, staffRef string) (*model.GuestOrder, error) {
	return s.mutate(ctx, id, func(o *model.GuestOrder, now time.Time) error {
		if o.Status.Terminal() {
			return &model.TransitionError{From: o.Status}
		}
		staffID, err := s.staffRef(ctx, staffRef, "assignedTo")
		if err != nil {
			return err
		}
		return o.Assign(staffID, now)
	})
}

func (s *OrderService) mutate(ctx context.Context, id string, fn func(*model.GuestOrder, time.Time) error) (*model.GuestOrder, error) {
	o, err := s.orders.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	prevStatus, prevAssigned := o.Status, o.AssignedTo
	if err := fn(o, now); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	s.afterChange(ctx, o, prevStatus, prevAssigned, now)
	return o, nil
}

func (s *OrderService) afterChange(ctx context.Context, o *model.GuestOrder, prevStatus model.Status, prevAssigned string, now time.Time) {
	if o.Status != prevStatus {
		metrics.OrderTransitions.WithLabelValues(string(prevStatus), string(o.Status)).Inc()
		s.log.WithFields(logrus.Fields{
			"order_id": o.CanonicalID(),
			"from":     prevStatus,
			"to":       o.Status,
		}).Info("order status changed")
		s.publish(ctx, orderEvent(queue.EventOrderStatusChanged, o, prevStatus, now))
	}
	if o.AssignedTo != prevAssigned {
		s.publish(ctx, orderEvent(queue.EventOrderAssigned, o, "", now))
	}
}

// staffRef resolves a staff reference given by either identifier to its
// canonical id.
func (s *OrderService) staffRef(ctx context.Context, raw, field string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &model.ValidationError{Field: field, Reason: "is required"}
	}
	st, err := s.staff.Resolve(ctx, raw)
	if err != nil {
		return "", referenceError(err, field, "unknown staff member")
	}
	return st.CanonicalID(), nil
}

// referenceError turns a failed lookup of a referenced entity into a
// validation error; the order itself was found, so NotFound would mislead.
func referenceError(err error, field, reason string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &model.ValidationError{Field: field, Reason: reason}
	}
	return err
}

// publish is fire and forget; the publisher logs its own failures.
func (s *OrderService) publish(ctx context.Context, ev queue.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	_ = s.events.Publish(ctx, ev)
}

func orderEvent(typ string, o *model.GuestOrder, prev model.Status, now time.Time) queue.OrderEvent {
	return queue.OrderEvent{
		Type:           typ,
		OrderID:        o.CanonicalID(),
		LegacyID:       o.LegacyID,
		OrderType:      string(o.OrderType),
		Department:     string(model.DepartmentFor(o.OrderType)),
		RoomNumber:     o.RoomNumber,
		Status:         string(o.Status),
		PreviousStatus: string(prev),
		Priority:       string(o.Priority),
		AssignedTo:     o.AssignedTo,
		HandledBy:      o.HandledBy,
		TotalAmount:    o.TotalAmount,
		OccurredAt:     now.UTC().Format(time.RFC3339),
	}
}
