package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReplayer implements Replayer with a Redis SET NX per envelope id.
// Ids expire after the retention window so storage stays bounded.
type RedisReplayer struct {
	R *redis.Client
}

// Reserve claims the envelope id. It returns false when the id was already
// reserved inside the ttl window.
func (r RedisReplayer) Reserve(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if r.R == nil {
		return false, errors.New("replay: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return r.R.SetNX(ctx, id, 1, ttl).Result()
}
