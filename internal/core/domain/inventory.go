package domain

import (
	"time"

	"github.com/google/uuid"
)

// InventoryLot is a batch of product on hand. Several lots may exist for the
// same product; quantity never goes below zero and a lot zeroed by allocation
// is removed from the ledger.
type InventoryLot struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	QuantityOnHand int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (l *InventoryLot) Depleted() bool {
	return l.QuantityOnHand == 0
}
