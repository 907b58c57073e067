package projection

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Writer is the projection store seam; the live implementation is Redis,
// tests swap in a map.
type Writer interface {
	Set(ctx context.Context, key string, value []byte) error
}

type redisWriter struct {
	client    *redis.Client
	namespace string
}

func NewRedisWriter(addr, namespace string) Writer {
	return &redisWriter{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		namespace: namespace,
	}
}

func (w *redisWriter) Set(ctx context.Context, key string, value []byte) error {
	// no TTL: the projection is the read model, not a cache
	return w.client.Set(ctx, fmt.Sprintf("%s:%s", w.namespace, key), value, 0).Err()
}
