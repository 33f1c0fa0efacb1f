package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusReady    OrderStatus = "READY"
	OrderStatusPickedUp OrderStatus = "PICKED_UP"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// validNext encodes the forward-only state machine. PICKED_UP is terminal.
var validNext = map[OrderStatus]OrderStatus{
	OrderStatusNew:   OrderStatusReady,
	OrderStatusReady: OrderStatusPickedUp,
}

type Order struct {
	ID          uuid.UUID
	Version     int // optimistic locking
	CustomerID  uuid.UUID
	CustomerRef string
	Status      OrderStatus
	CallbackURL string
	Lines       []*OrderLine
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrderLine struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ProductID         uuid.UUID
	OrderQuantity     int
	QuantityAllocated int
}

// Remaining is the outstanding demand on the line. Recomputed from the
// current allocated total, never cached across lots.
func (l *OrderLine) Remaining() int {
	return l.OrderQuantity - l.QuantityAllocated
}

// Totals sums ordered and allocated quantities across all lines.
func (o *Order) Totals() (ordered, allocated int) {
	for _, line := range o.Lines {
		ordered += line.OrderQuantity
		allocated += line.QuantityAllocated
	}
	return ordered, allocated
}

func (o *Order) FullyAllocated() bool {
	ordered, allocated := o.Totals()
	return ordered == allocated
}

// Advance moves the order to the next status and returns the previous one,
// so the caller can raise a status-change event explicitly.
func (o *Order) Advance(next OrderStatus) (OrderStatus, error) {
	prev := o.Status
	if validNext[prev] != next {
		return prev, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, next)
	}
	o.Status = next
	return prev, nil
}

// StatusUpdate is the payload POSTed to an order's callback URL when its
// status changes.
type StatusUpdate struct {
	OrderID        uuid.UUID   `json:"orderId"`
	Version        int         `json:"version"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastModifiedAt time.Time   `json:"lastModifiedAt"`
	Status         OrderStatus `json:"status"`
	CustomerRef    string      `json:"customerRef"`
}

// NewStatusUpdate snapshots the order at the moment of the transition so the
// payload is immune to later mutation of the order.
func NewStatusUpdate(o *Order) StatusUpdate {
	return StatusUpdate{
		OrderID:        o.ID,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		LastModifiedAt: o.UpdatedAt,
		Status:         o.Status,
		CustomerRef:    o.CustomerRef,
	}
}
