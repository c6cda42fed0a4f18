package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLua deletes the key only if it still holds the caller's token.
// Returns 1 if released, 0 otherwise.
const releaseLua = `
local cur = redis.call('GET', KEYS[1])
if cur == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
return 0
`

// RedisLocker stores locks in Redis so they hold across processes.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

var _ Locker = (*RedisLocker)(nil)

// NewRedis returns a RedisLocker. Keys are stored as prefix+key.
func NewRedis(client *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "taskmentor:lock:"
	}
	return &RedisLocker{client: client, prefix: prefix}
}

// Acquire implements Locker using SET NX PX.
func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	k := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("runlock: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		if err := r.client.Eval(ctx, releaseLua, []string{k}, token).Err(); err != nil {
			return fmt.Errorf("runlock: release %s: %w", key, err)
		}
		return nil
	}, nil
}
