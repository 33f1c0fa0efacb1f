package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/port"
)

// InventoryService records production events and exposes the product
// catalog. Consumption of lots is the scheduler's job.
type InventoryService struct {
	db port.DatabaseRepository
}

func NewInventoryService(db port.DatabaseRepository) *InventoryService {
	return &InventoryService{db: db}
}

// AddLot records a production run as a new inventory lot for the product.
func (s *InventoryService) AddLot(ctx context.Context, productID uuid.UUID, quantity int) (*domain.InventoryLot, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.db.FindProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	now := time.Now()
	lot := &domain.InventoryLot{
		ID:             uuid.New(),
		ProductID:      product.ID,
		QuantityOnHand: quantity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.db.CreateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	log.WithFields(log.Fields{
		"product": product.Name,
		"lot_id":  lot.ID,
		"qty":     quantity,
	}).Info("Inventory lot added")

	return lot, nil
}

func (s *InventoryService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.db.FindProducts(ctx)
}
