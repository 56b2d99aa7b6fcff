package database

import (
	"context"
	"fmt"

	"github.com/gdugdh24/swipematch/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from cfg and fails unless the server answers a PING
// within cfg.PingTimeout. Zero pool and timeout fields keep go-redis defaults.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(cfg.PingTimeout))
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
