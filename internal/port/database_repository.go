package port

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rl1809/taphouse/internal/core/domain"
)

// ErrOptimisticLock reports that a version-checked write lost the race with a
// concurrent writer. The caller's copy of the row is stale; re-read and retry.
var ErrOptimisticLock = errors.New("optimistic lock conflict")

type DatabaseRepository interface {
	// CreateOrder persists a new order together with its lines.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// FindOrderByID loads an order and its lines, or nil when absent.
	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)

	// FindOrdersByStatus loads every order (with lines) in the given status.
	FindOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)

	// FindOrdersByCustomer returns one page of a customer's orders and the
	// total count across all pages.
	FindOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*domain.Order, int, error)

	// UpdateOrderStatus persists a status change with a version check and
	// increments the order's version on success.
	UpdateOrderStatus(ctx context.Context, order *domain.Order) error

	// SaveAllocation commits one order's allocation pass as a single unit of
	// work: order status and version, line allocated quantities, mutated lot
	// quantities, and deletion of depleted lots.
	SaveAllocation(ctx context.Context, order *domain.Order, lots, depleted []*domain.InventoryLot) error

	// FindLotsByProduct returns the on-hand lots for a product, oldest first.
	FindLotsByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.InventoryLot, error)

	// CreateLot records a production event.
	CreateLot(ctx context.Context, lot *domain.InventoryLot) error

	FindProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	FindProducts(ctx context.Context) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	CountProducts(ctx context.Context) (int, error)

	FindCustomerByID(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
}
