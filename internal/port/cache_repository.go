package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// AcquireTickLock takes the allocation tick lease. Returns a release
	// token and false when another holder has the lease.
	AcquireTickLock(ctx context.Context, ttl time.Duration) (string, bool, error)

	// ReleaseTickLock releases the lease if the token still owns it.
	ReleaseTickLock(ctx context.Context, token string) error
}
