package service

import (
	"github.com/rl1809/taphouse/internal/core/domain"
)

// AllocationResult reports the lots an allocation pass changed. Depleted
// lots are not repeated in Touched; they are due for deletion instead.
type AllocationResult struct {
	Touched  []*domain.InventoryLot
	Depleted []*domain.InventoryLot
}

// AllocateLine satisfies outstanding demand on one order line from the lots
// on hand for its product. Lots are consumed in the order given; remaining
// demand is recomputed from the line's allocated total before each lot, so
// partial allocation across lots is correct under any lot ordering. When
// total inventory falls short the line is left partially allocated and is
// revisited on the next scheduling cycle.
//
// Every lot sitting at zero after the pass is reported as depleted, whether
// this pass zeroed it or it arrived empty.
func AllocateLine(line *domain.OrderLine, lots []*domain.InventoryLot) AllocationResult {
	var result AllocationResult

	for _, lot := range lots {
		changed := false

		if remaining := line.Remaining(); remaining > 0 && lot.QuantityOnHand > 0 {
			if lot.QuantityOnHand >= remaining {
				lot.QuantityOnHand -= remaining
				line.QuantityAllocated = line.OrderQuantity
			} else {
				line.QuantityAllocated += lot.QuantityOnHand
				lot.QuantityOnHand = 0
			}
			changed = true
		}

		if lot.Depleted() {
			result.Depleted = append(result.Depleted, lot)
		} else if changed {
			result.Touched = append(result.Touched, lot)
		}
	}

	return result
}
