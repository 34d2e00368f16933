package fetch

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPagePrefix = "thirai:page:"

// RedisPageCache shares fetched page bodies between replicas. Values are the
// raw bytes; Redis handles expiry via the per-key TTL.
type RedisPageCache struct {
	client *redis.Client
}

func NewRedisPageCache(client *redis.Client) *RedisPageCache {
	return &RedisPageCache{client: client}
}

func (r *RedisPageCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, redisPagePrefix+url).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisPageCache) Set(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	return r.client.Set(ctx, redisPagePrefix+url, body, ttl).Err()
}

func (r *RedisPageCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
