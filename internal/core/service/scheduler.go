package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/metrics"
	"github.com/rl1809/taphouse/internal/port"
)

// AllocationScheduler matches outstanding order demand against on-hand
// inventory on a fixed cadence. Ticks never overlap: the loop is sequential
// and a cache lease keeps concurrent replicas out.
type AllocationScheduler struct {
	db       port.DatabaseRepository
	locks    port.CacheRepository
	notifier *StatusNotifier
	interval time.Duration
}

func NewAllocationScheduler(db port.DatabaseRepository, locks port.CacheRepository, notifier *StatusNotifier, interval time.Duration) *AllocationScheduler {
	return &AllocationScheduler{
		db:       db,
		locks:    locks,
		notifier: notifier,
		interval: interval,
	}
}

// Run ticks until the context is cancelled. An in-flight tick finishes its
// current order's unit of work before the loop exits.
func (s *AllocationScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.WithField("interval", s.interval).Info("Allocation scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Allocation scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one allocation pass over every NEW order. A single order's
// failure is logged and retried next tick; it never aborts the pass for the
// other orders.
func (s *AllocationScheduler) Tick(ctx context.Context) {
	token, acquired, err := s.locks.AcquireTickLock(ctx, 2*s.interval)
	if err != nil {
		metrics.AllocationTicks.WithLabelValues("lock_error").Inc()
		log.WithError(err).Error("Failed to acquire allocation tick lease")
		return
	}
	if !acquired {
		metrics.AllocationTicks.WithLabelValues("skipped").Inc()
		log.Debug("Allocation tick lease held elsewhere, skipping")
		return
	}
	defer func() {
		if err := s.locks.ReleaseTickLock(context.WithoutCancel(ctx), token); err != nil {
			log.WithError(err).Warn("Failed to release allocation tick lease")
		}
	}()

	orders, err := s.db.FindOrdersByStatus(ctx, domain.OrderStatusNew)
	if err != nil {
		metrics.AllocationTicks.WithLabelValues("error").Inc()
		log.WithError(err).Error("Failed to fetch orders for allocation")
		return
	}

	if len(orders) == 0 {
		metrics.AllocationTicks.WithLabelValues("empty").Inc()
		return
	}

	log.WithField("orders", len(orders)).Debug("Starting order allocation")

	failed := 0
	for _, order := range orders {
		// Finish the current order's unit of work, then honor shutdown.
		if ctx.Err() != nil {
			return
		}

		if err := s.allocateOrder(ctx, order); err != nil {
			failed++
			metrics.OrdersAllocated.WithLabelValues("error").Inc()
			log.WithFields(log.Fields{
				"order_id":     order.ID,
				"customer_ref": order.CustomerRef,
			}).WithError(err).Error("Order allocation failed, will retry next tick")
			continue
		}

		metrics.OrdersAllocated.WithLabelValues(string(order.Status)).Inc()
	}

	if failed > 0 {
		metrics.AllocationTicks.WithLabelValues("partial").Inc()
		return
	}
	metrics.AllocationTicks.WithLabelValues("ok").Inc()
}

// allocateOrder runs the allocation algorithm over one order's outstanding
// lines and commits the result as a single unit of work. Lots are fetched
// once per product and shared across the order's lines, so lines never
// interleave reads and writes of the same lot.
func (s *AllocationScheduler) allocateOrder(ctx context.Context, order *domain.Order) error {
	lotsByProduct := make(map[uuid.UUID][]*domain.InventoryLot)
	touched := make(map[uuid.UUID]*domain.InventoryLot)
	depleted := make(map[uuid.UUID]*domain.InventoryLot)

	for _, line := range order.Lines {
		if line.Remaining() <= 0 {
			continue
		}

		lots, ok := lotsByProduct[line.ProductID]
		if !ok {
			var err error
			lots, err = s.db.FindLotsByProduct(ctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("fetch lots for product %s: %w", line.ProductID, err)
			}
			lotsByProduct[line.ProductID] = lots
		}

		result := AllocateLine(line, lots)
		for _, lot := range result.Touched {
			touched[lot.ID] = lot
		}
		for _, lot := range result.Depleted {
			delete(touched, lot.ID)
			depleted[lot.ID] = lot
		}
	}

	prev := order.Status
	if order.FullyAllocated() {
		if _, err := order.Advance(domain.OrderStatusReady); err != nil {
			return fmt.Errorf("advance order %s: %w", order.ID, err)
		}
		log.WithFields(log.Fields{
			"order_id":     order.ID,
			"customer_ref": order.CustomerRef,
		}).Info("Order completely allocated")
	}

	order.UpdatedAt = time.Now()
	if err := s.db.SaveAllocation(ctx, order, collect(touched), collect(depleted)); err != nil {
		order.Status = prev
		return fmt.Errorf("save allocation for order %s: %w", order.ID, err)
	}
	order.Version++

	for productID, lots := range lotsByProduct {
		onHand := 0
		for _, lot := range lots {
			onHand += lot.QuantityOnHand
		}
		metrics.InventoryLevel.WithLabelValues(productID.String()).Set(float64(onHand))
	}

	if order.Status != prev {
		s.notifier.Publish(order)
	}

	return nil
}

func collect(lots map[uuid.UUID]*domain.InventoryLot) []*domain.InventoryLot {
	out := make([]*domain.InventoryLot, 0, len(lots))
	for _, lot := range lots {
		out = append(out, lot)
	}
	return out
}
