package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/port"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrEmptyOrder       = errors.New("order must have at least one line")
	ErrInvalidQuantity  = errors.New("order quantity must be positive")
)

// OrderService owns the request-scoped order operations: placement, lookup,
// listing and pickup. Allocation belongs to the scheduler.
type OrderService struct {
	db       port.DatabaseRepository
	notifier *StatusNotifier
}

func NewOrderService(db port.DatabaseRepository, notifier *StatusNotifier) *OrderService {
	return &OrderService{db: db, notifier: notifier}
}

// NewLine describes one requested line of a new order.
type NewLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrder creates a NEW order with zero allocation on every line.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID uuid.UUID, customerRef, callbackURL string, lines []NewLine) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	customer, err := s.db.FindCustomerByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	now := time.Now()
	order := &domain.Order{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		CustomerRef: customerRef,
		Status:      domain.OrderStatusNew,
		CallbackURL: callbackURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		product, err := s.db.FindProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("lookup product: %w", err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}

		order.Lines = append(order.Lines, &domain.OrderLine{
			ID:            uuid.New(),
			OrderID:       order.ID,
			ProductID:     product.ID,
			OrderQuantity: line.Quantity,
		})
	}

	if err := s.db.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	log.WithFields(log.Fields{
		"order_id":     order.ID,
		"customer_ref": order.CustomerRef,
		"lines":        len(order.Lines),
	}).Info("Order placed")

	return order, nil
}

// PagedOrders is one page of a customer's orders.
type PagedOrders struct {
	Orders []*domain.Order
	Page   int
	Size   int
	Total  int
}

// ListOrders returns a customer's orders one page at a time.
func (s *OrderService) ListOrders(ctx context.Context, customerID uuid.UUID, page, size int) (*PagedOrders, error) {
	customer, err := s.db.FindCustomerByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	orders, total, err := s.db.FindOrdersByCustomer(ctx, customerID, page, size)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return &PagedOrders{Orders: orders, Page: page, Size: size, Total: total}, nil
}

// GetOrder loads one order, scoped to the owning customer.
func (s *OrderService) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.db.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("lookup order: %w", err)
	}
	if order == nil || order.CustomerID != customerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// PickupOrder moves a READY order to its terminal PICKED_UP status and
// raises the status-change notification.
func (s *OrderService) PickupOrder(ctx context.Context, customerID, orderID uuid.UUID) error {
	order, err := s.GetOrder(ctx, customerID, orderID)
	if err != nil {
		return err
	}

	prev, err := order.Advance(domain.OrderStatusPickedUp)
	if err != nil {
		return err
	}

	order.UpdatedAt = time.Now()
	if err := s.db.UpdateOrderStatus(ctx, order); err != nil {
		order.Status = prev
		return fmt.Errorf("update order status: %w", err)
	}
	order.Version++

	log.WithFields(log.Fields{
		"order_id":     order.ID,
		"customer_ref": order.CustomerRef,
	}).Info("Order picked up")

	s.notifier.Publish(order)
	return nil
}
