package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/port"
)

// memRepo is an in-memory DatabaseRepository. Find methods return deep
// copies and Save methods write back, so callers observe the same
// read-your-writes behavior a real database gives them.
type memRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	lots      map[uuid.UUID]*domain.InventoryLot
	products  map[uuid.UUID]*domain.Product
	customers map[uuid.UUID]*domain.Customer

	failSaveFor map[uuid.UUID]error // SaveAllocation failures by order ID

	// beforeSave runs at the top of SaveAllocation, under the lock, before
	// the version check. Lets a test interleave a concurrent writer between
	// a tick's read and its save.
	beforeSave func(orderID uuid.UUID)
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:      make(map[uuid.UUID]*domain.Order),
		lots:        make(map[uuid.UUID]*domain.InventoryLot),
		products:    make(map[uuid.UUID]*domain.Product),
		customers:   make(map[uuid.UUID]*domain.Customer),
		failSaveFor: make(map[uuid.UUID]error),
	}
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Lines = make([]*domain.OrderLine, len(o.Lines))
	for i, line := range o.Lines {
		lineCopy := *line
		cp.Lines[i] = &lineCopy
	}
	return &cp
}

func copyLot(l *domain.InventoryLot) *domain.InventoryLot {
	cp := *l
	return &cp
}

func (m *memRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *memRepo) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return copyOrder(order), nil
}

func (m *memRepo) FindOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Order
	for _, order := range m.orders {
		if order.Status == status {
			out = append(out, copyOrder(order))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) FindOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []*domain.Order
	for _, order := range m.orders {
		if order.CustomerID == customerID {
			all = append(all, copyOrder(order))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	total := len(all)
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memRepo) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[order.ID]
	if !ok || stored.Version != order.Version {
		return port.ErrOptimisticLock
	}
	stored.Status = order.Status
	stored.Version++
	stored.UpdatedAt = order.UpdatedAt
	return nil
}

func (m *memRepo) SaveAllocation(ctx context.Context, order *domain.Order, lots, depleted []*domain.InventoryLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.beforeSave != nil {
		m.beforeSave(order.ID)
	}

	if err := m.failSaveFor[order.ID]; err != nil {
		return err
	}

	stored, ok := m.orders[order.ID]
	if !ok || stored.Version != order.Version {
		return port.ErrOptimisticLock
	}
	stored.Status = order.Status
	stored.Version++
	stored.UpdatedAt = order.UpdatedAt
	stored.Lines = make([]*domain.OrderLine, len(order.Lines))
	for i, line := range order.Lines {
		lineCopy := *line
		stored.Lines[i] = &lineCopy
	}

	for _, lot := range lots {
		m.lots[lot.ID] = copyLot(lot)
	}
	for _, lot := range depleted {
		delete(m.lots, lot.ID)
	}
	return nil
}

func (m *memRepo) FindLotsByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.InventoryLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.InventoryLot
	for _, lot := range m.lots {
		if lot.ProductID == productID {
			out = append(out, copyLot(lot))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memRepo) CreateLot(ctx context.Context, lot *domain.InventoryLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lots[lot.ID] = copyLot(lot)
	return nil
}

func (m *memRepo) FindProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *product
	return &cp, nil
}

func (m *memRepo) FindProducts(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Product
	for _, product := range m.products {
		cp := *product
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) CreateProduct(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *memRepo) CountProducts(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

func (m *memRepo) FindCustomerByID(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.customers[customerID]
	if !ok {
		return nil, nil
	}
	cp := *customer
	return &cp, nil
}

func (m *memRepo) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *customer
	m.customers[customer.ID] = &cp
	return nil
}

// test fixtures

func (m *memRepo) addProduct(name string) *domain.Product {
	product := &domain.Product{ID: uuid.New(), Name: name, Style: "IPA", UPC: time.Now().UnixNano()}
	m.CreateProduct(context.Background(), product)
	return product
}

func (m *memRepo) addCustomer(name string) *domain.Customer {
	customer := &domain.Customer{ID: uuid.New(), Name: name, APIKey: uuid.New()}
	m.CreateCustomer(context.Background(), customer)
	return customer
}

func (m *memRepo) addLot(productID uuid.UUID, qty int, createdAt time.Time) *domain.InventoryLot {
	lot := &domain.InventoryLot{ID: uuid.New(), ProductID: productID, QuantityOnHand: qty, CreatedAt: createdAt}
	m.CreateLot(context.Background(), lot)
	return lot
}

func (m *memRepo) addOrder(customerID uuid.UUID, callbackURL string, lines ...*domain.OrderLine) *domain.Order {
	order := &domain.Order{
		ID:          uuid.New(),
		CustomerID:  customerID,
		CustomerRef: "order-" + uuid.NewString()[:8],
		Status:      domain.OrderStatusNew,
		CallbackURL: callbackURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	for _, line := range lines {
		line.OrderID = order.ID
		order.Lines = append(order.Lines, line)
	}
	m.CreateOrder(context.Background(), order)
	return order
}

func line(productID uuid.UUID, ordered, allocated int) *domain.OrderLine {
	return &domain.OrderLine{
		ID:                uuid.New(),
		ProductID:         productID,
		OrderQuantity:     ordered,
		QuantityAllocated: allocated,
	}
}

// noopLocks always grants the tick lease.
type noopLocks struct{}

func (noopLocks) AcquireTickLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	return "token", true, nil
}

func (noopLocks) ReleaseTickLock(ctx context.Context, token string) error { return nil }

// heldLocks simulates a lease owned by another holder.
type heldLocks struct{}

func (heldLocks) AcquireTickLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	return "", false, nil
}

func (heldLocks) ReleaseTickLock(ctx context.Context, token string) error { return nil }

// recordingClient captures status-update deliveries.
type recordingClient struct {
	mu      sync.Mutex
	updates []domain.StatusUpdate
	err     error

	started chan struct{} // closed-loop signaling for blocking tests
	release chan struct{}
}

func (c *recordingClient) PostStatusUpdate(ctx context.Context, url string, update domain.StatusUpdate) error {
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.updates = append(c.updates, update)
	return nil
}

func (c *recordingClient) delivered() []domain.StatusUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.StatusUpdate, len(c.updates))
	copy(out, c.updates)
	return out
}
