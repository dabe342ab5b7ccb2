package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// newRedisClient builds a *redis.Client with bounded dial/read/write
// timeouts, a modest connection pool, and a best-effort ping at
// construction time so misconfiguration surfaces in the logs
// immediately.
func newRedisClient(addr string, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis connection failed", zap.String("addr", addr), zap.Error(err), zap.Duration("ping_rtt", time.Since(start)))
	} else {
		log.Info("redis connection established", zap.String("addr", addr), zap.Duration("ping_rtt", time.Since(start)))
	}

	return client
}
