package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/port"
)

// Seed populates an empty database with a starter catalog, inventory, a test
// customer and a sample order so a fresh install has something to allocate.
func Seed(ctx context.Context, db port.DatabaseRepository) error {
	count, err := db.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()

	products := []*domain.Product{
		{ID: uuid.New(), Name: "Mango Bobs", Style: "IPA", UPC: 337010000001, MinOnHand: 12, BatchSize: 200},
		{ID: uuid.New(), Name: "Galaxy Cat", Style: "PALE_ALE", UPC: 337010000002, MinOnHand: 12, BatchSize: 200},
		{ID: uuid.New(), Name: "Pinball Porter", Style: "PORTER", UPC: 337010000003, MinOnHand: 12, BatchSize: 200},
	}

	for _, product := range products {
		product.CreatedAt = now
		product.UpdatedAt = now
		if err := db.CreateProduct(ctx, product); err != nil {
			return fmt.Errorf("seed product %s: %w", product.Name, err)
		}

		lot := &domain.InventoryLot{
			ID:             uuid.New(),
			ProductID:      product.ID,
			QuantityOnHand: 100,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := db.CreateLot(ctx, lot); err != nil {
			return fmt.Errorf("seed lot for %s: %w", product.Name, err)
		}
	}

	customer := &domain.Customer{
		ID:        uuid.New(),
		Name:      "Test 1",
		APIKey:    uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.CreateCustomer(ctx, customer); err != nil {
		return fmt.Errorf("seed customer: %w", err)
	}

	order := &domain.Order{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		CustomerRef: "testOrder1",
		Status:      domain.OrderStatusNew,
		CallbackURL: "http://example.com/post",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	order.Lines = []*domain.OrderLine{
		{ID: uuid.New(), OrderID: order.ID, ProductID: products[1].ID, OrderQuantity: 15},
		{ID: uuid.New(), OrderID: order.ID, ProductID: products[2].ID, OrderQuantity: 7},
	}
	if err := db.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("seed order: %w", err)
	}

	log.WithFields(log.Fields{
		"products": len(products),
		"customer": customer.Name,
	}).Info("Seeded default data")

	return nil
}
