package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/port"
)

type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

type orderRow struct {
	ID          uuid.UUID      `db:"id"`
	Version     int            `db:"version"`
	CustomerID  uuid.UUID      `db:"customer_id"`
	CustomerRef string         `db:"customer_ref"`
	Status      string         `db:"status"`
	CallbackURL sql.NullString `db:"callback_url"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type orderLineRow struct {
	ID                uuid.UUID `db:"id"`
	OrderID           uuid.UUID `db:"order_id"`
	ProductID         uuid.UUID `db:"product_id"`
	OrderQuantity     int       `db:"order_quantity"`
	QuantityAllocated int       `db:"quantity_allocated"`
}

type lotRow struct {
	ID             uuid.UUID `db:"id"`
	ProductID      uuid.UUID `db:"product_id"`
	QuantityOnHand int       `db:"quantity_on_hand"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type productRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Style     string    `db:"style"`
	UPC       int64     `db:"upc"`
	MinOnHand int       `db:"min_on_hand"`
	BatchSize int       `db:"batch_size"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type customerRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	APIKey    uuid.UUID `db:"api_key"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r orderRow) toDomain() *domain.Order {
	return &domain.Order{
		ID:          r.ID,
		Version:     r.Version,
		CustomerID:  r.CustomerID,
		CustomerRef: r.CustomerRef,
		Status:      domain.OrderStatus(r.Status),
		CallbackURL: r.CallbackURL.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r lotRow) toDomain() *domain.InventoryLot {
	return &domain.InventoryLot{
		ID:             r.ID,
		ProductID:      r.ProductID,
		QuantityOnHand: r.QuantityOnHand,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	callback := sql.NullString{String: order.CallbackURL, Valid: order.CallbackURL != ""}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, version, customer_id, customer_ref, status, callback_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Version, order.CustomerID, order.CustomerRef, order.Status,
		callback, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, product_id, order_quantity, quantity_allocated)
			VALUES (?, ?, ?, ?, ?)`,
			line.ID, order.ID, line.ProductID, line.OrderQuantity, line.QuantityAllocated,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var row orderRow
	err := m.db.GetContext(ctx, &row, `
		SELECT id, version, customer_id, customer_ref, status, callback_url, created_at, updated_at
		FROM orders WHERE id = ?`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	order := row.toDomain()
	if err := m.loadLines(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (m *MySQLAdapter) FindOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	var rows []orderRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT id, version, customer_id, customer_ref, status, callback_url, created_at, updated_at
		FROM orders WHERE status = ? ORDER BY created_at, id`, status)
	if err != nil {
		return nil, fmt.Errorf("query orders by status: %w", err)
	}

	orders := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toDomain())
	}
	if err := m.loadLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *MySQLAdapter) FindOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*domain.Order, int, error) {
	var total int
	err := m.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM orders WHERE customer_id = ?`, customerID)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var rows []orderRow
	err = m.db.SelectContext(ctx, &rows, `
		SELECT id, version, customer_id, customer_ref, status, callback_url, created_at, updated_at
		FROM orders WHERE customer_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, customerID, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders by customer: %w", err)
	}

	orders := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toDomain())
	}
	if err := m.loadLines(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (m *MySQLAdapter) loadLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
		byID[order.ID] = order
	}

	query, args, err := sqlx.In(`
		SELECT id, order_id, product_id, order_quantity, quantity_allocated
		FROM order_lines WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("build line query: %w", err)
	}

	var rows []orderLineRow
	if err := m.db.SelectContext(ctx, &rows, m.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}

	for _, row := range rows {
		order := byID[row.OrderID]
		order.Lines = append(order.Lines, &domain.OrderLine{
			ID:                row.ID,
			OrderID:           row.OrderID,
			ProductID:         row.ProductID,
			OrderQuantity:     row.OrderQuantity,
			QuantityAllocated: row.QuantityAllocated,
		})
	}
	return nil
}

func (m *MySQLAdapter) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		order.Status, order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrOptimisticLock
	}
	return nil
}

// SaveAllocation commits one order's allocation pass atomically: the order's
// status and version, every line's allocated total, the surviving lots'
// quantities, and the removal of depleted lots. A version mismatch on the
// order rolls the whole unit back.
func (m *MySQLAdapter) SaveAllocation(ctx context.Context, order *domain.Order, lots, depleted []*domain.InventoryLot) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		order.Status, order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrOptimisticLock
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			UPDATE order_lines SET quantity_allocated = ? WHERE id = ?`,
			line.QuantityAllocated, line.ID,
		)
		if err != nil {
			return fmt.Errorf("update order line: %w", err)
		}
	}

	for _, lot := range lots {
		_, err = tx.ExecContext(ctx, `
			UPDATE inventory_lots SET quantity_on_hand = ?, updated_at = NOW() WHERE id = ?`,
			lot.QuantityOnHand, lot.ID,
		)
		if err != nil {
			return fmt.Errorf("update inventory lot: %w", err)
		}
	}

	for _, lot := range depleted {
		_, err = tx.ExecContext(ctx, `DELETE FROM inventory_lots WHERE id = ?`, lot.ID)
		if err != nil {
			return fmt.Errorf("delete inventory lot: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) FindLotsByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.InventoryLot, error) {
	var rows []lotRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT id, product_id, quantity_on_hand, created_at, updated_at
		FROM inventory_lots WHERE product_id = ? ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("query inventory lots: %w", err)
	}

	lots := make([]*domain.InventoryLot, 0, len(rows))
	for _, row := range rows {
		lots = append(lots, row.toDomain())
	}
	return lots, nil
}

func (m *MySQLAdapter) CreateLot(ctx context.Context, lot *domain.InventoryLot) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory_lots (id, product_id, quantity_on_hand, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		lot.ID, lot.ProductID, lot.QuantityOnHand, lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory lot: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) FindProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	var row productRow
	err := m.db.GetContext(ctx, &row, `
		SELECT id, name, style, upc, min_on_hand, batch_size, created_at, updated_at
		FROM products WHERE id = ?`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return productToDomain(row), nil
}

func (m *MySQLAdapter) FindProducts(ctx context.Context) ([]*domain.Product, error) {
	var rows []productRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT id, name, style, upc, min_on_hand, batch_size, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	products := make([]*domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, productToDomain(row))
	}
	return products, nil
}

func (m *MySQLAdapter) CreateProduct(ctx context.Context, product *domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, name, style, upc, min_on_hand, batch_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.Style, product.UPC,
		product.MinOnHand, product.BatchSize, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CountProducts(ctx context.Context) (int, error) {
	var count int
	if err := m.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (m *MySQLAdapter) FindCustomerByID(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	var row customerRow
	err := m.db.GetContext(ctx, &row, `
		SELECT id, name, api_key, created_at, updated_at
		FROM customers WHERE id = ?`, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &domain.Customer{
		ID:        row.ID,
		Name:      row.Name,
		APIKey:    row.APIKey,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (m *MySQLAdapter) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, api_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		customer.ID, customer.Name, customer.APIKey, customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func productToDomain(row productRow) *domain.Product {
	return &domain.Product{
		ID:        row.ID,
		Name:      row.Name,
		Style:     row.Style,
		UPC:       row.UPC,
		MinOnHand: row.MinOnHand,
		BatchSize: row.BatchSize,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
