package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/metrics"
	"github.com/rl1809/taphouse/internal/port"
)

const callbackTimeout = 5 * time.Second

type notification struct {
	url    string
	update domain.StatusUpdate
}

// StatusNotifier delivers status-change callbacks off the critical path.
// Publish never blocks the caller and delivery failures never surface:
// best-effort, at-most-once.
type StatusNotifier struct {
	client port.CallbackClient
	queue  chan notification
	wg     sync.WaitGroup
}

func NewStatusNotifier(client port.CallbackClient, queueSize int) *StatusNotifier {
	n := &StatusNotifier{
		client: client,
		queue:  make(chan notification, queueSize),
	}

	n.wg.Add(1)
	go n.dispatchLoop()

	return n
}

// Publish enqueues one notification for an observed status transition.
// Orders without a callback URL are skipped silently; a full queue drops the
// notification rather than block the committing goroutine.
func (n *StatusNotifier) Publish(order *domain.Order) {
	if order.CallbackURL == "" {
		return
	}

	msg := notification{
		url:    order.CallbackURL,
		update: domain.NewStatusUpdate(order),
	}

	select {
	case n.queue <- msg:
	default:
		metrics.CallbacksTotal.WithLabelValues("dropped").Inc()
		log.WithFields(log.Fields{
			"order_id": msg.update.OrderID,
			"status":   msg.update.Status,
		}).Warn("Notification queue full, dropping status callback")
	}
}

func (n *StatusNotifier) dispatchLoop() {
	defer n.wg.Done()

	for msg := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)

		if err := n.client.PostStatusUpdate(ctx, msg.url, msg.update); err != nil {
			metrics.CallbacksTotal.WithLabelValues("failed").Inc()
			log.WithFields(log.Fields{
				"order_id": msg.update.OrderID,
				"url":      msg.url,
			}).WithError(err).Error("Status callback delivery failed")
		} else {
			metrics.CallbacksTotal.WithLabelValues("delivered").Inc()
			log.WithFields(log.Fields{
				"order_id": msg.update.OrderID,
				"status":   msg.update.Status,
			}).Debug("Status callback delivered")
		}

		cancel()
	}
}

// Close drains the queue and stops the dispatch goroutine.
func (n *StatusNotifier) Close() {
	close(n.queue)
	n.wg.Wait()
}
