package callback

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/rl1809/taphouse/internal/core/domain"
	"github.com/rl1809/taphouse/internal/metrics"
)

// RestyClient POSTs status updates to order callback endpoints. A circuit
// breaker keeps a dead endpoint from eating the whole callback timeout on
// every transition.
type RestyClient struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewRestyClient(timeout time.Duration) *RestyClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "status-callback",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.Set(state)

			log.WithFields(log.Fields{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Circuit breaker state changed")
		},
	})

	return &RestyClient{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0), // delivery is at-most-once, no automatic retries
		breaker: breaker,
	}
}

func (c *RestyClient) PostStatusUpdate(ctx context.Context, url string, update domain.StatusUpdate) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(update).
			Post(url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("callback endpoint returned %s", resp.Status())
		}
		return nil, nil
	})
	return err
}
