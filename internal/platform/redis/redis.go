// Package redis dials the shared key-value store used for cross-instance claims.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Connect opens a client for a comma-separated address list and pings it.
func Connect(ctx context.Context, addrs string) (goredis.UniversalClient, error) {
	var list []string
	for _, addr := range strings.Split(addrs, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			list = append(list, addr)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("redis address is empty")
	}
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        list,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// ConnectOrFallback returns nil with a no-op cleanup when addrs is empty or
// unreachable, so callers can fall back to process-local stores.
func ConnectOrFallback(ctx context.Context, addrs string, logger *slog.Logger) (goredis.UniversalClient, func()) {
	if strings.TrimSpace(addrs) == "" {
		logger.Warn("REDIS_ADDR not set, webhook claims are process-local")
		return nil, func() {}
	}
	client, err := Connect(ctx, addrs)
	if err != nil {
		logger.Warn("failed to connect to redis, webhook claims are process-local", slog.String("error", err.Error()))
		return nil, func() {}
	}
	logger.Info("redis connection established")
	return client, func() { _ = client.Close() }
}
