package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lumahealth/luma-backend/internal/pkg/env"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// NewClient dials Redis from REDIS_ADDR and verifies the connection with a
// ping before handing the client back.
func NewClient(log *logger.Logger) (*goredis.Client, error) {
	addr := strings.TrimSpace(env.Get("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    env.Get("REDIS_PASSWORD", "", log),
		DB:          env.GetInt("REDIS_DB", 0, log),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}
