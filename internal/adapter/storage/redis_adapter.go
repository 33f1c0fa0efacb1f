package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const tickLockKey = "allocation:tick-lock"

// releaseLockScript deletes the lease only when the caller still owns it, so
// an expired lease taken over by another holder is never released by mistake.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) AcquireTickLock(ctx context.Context, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()

	ok, err := r.client.SetNX(ctx, tickLockKey, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

func (r *RedisAdapter) ReleaseTickLock(ctx context.Context, token string) error {
	return releaseLockScript.Run(ctx, r.client, []string{tickLockKey}, token).Err()
}
