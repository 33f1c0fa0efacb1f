package port

import (
	"context"

	"github.com/rl1809/taphouse/internal/core/domain"
)

type CallbackClient interface {
	// PostStatusUpdate delivers a status-update payload to the order's
	// callback endpoint.
	PostStatusUpdate(ctx context.Context, url string, update domain.StatusUpdate) error
}
