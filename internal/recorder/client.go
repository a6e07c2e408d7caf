// Package recorder persists the decision trail a running simulation produces
// to Redis, so a crashed or restarted server can replay what happened
// up to the last flush. It is purely an audit sink: the scheduler itself
// never reads it back during a run.
package recorder

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// client wraps the Redis client with the dial/timeout profile the rest of
// the project uses for its Redis-backed repositories.
type client struct {
	*redis.Client
	log *zap.Logger
}

func newClient(addr string, db int, log *zap.Logger) *client {
	opts := &redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}

	c := &client{
		Client: redis.NewClient(opts),
		log:    log.Named("redis"),
	}

	log.Info("recorder redis client initialized", zap.String("addr", addr), zap.Int("db", db))
	c.ping(context.Background())
	return c
}

func (c *client) ping(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if err := c.Client.Ping(ctx).Err(); err != nil {
		c.log.Warn("redis ping failed", zap.Error(err))
		return
	}
	c.log.Info("redis ping ok")
}
