// Package hydraredis keeps hydra entities as JSON documents in Redis and
// provides a read-through cache in front of any hydra.EntityStore.
package hydraredis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lemmego/hydra"
)

// =====================================
// Connection
// =====================================

// Open connects to the Redis server described by config. Database holds
// the database number.
//
// Options["redis"] may carry "dial_timeout", "read_timeout" and
// "write_timeout".
func Open(config hydra.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Username: config.Username,
		Password: config.Password,
		DB:       0,
	}
	if config.ConnectionURL != "" {
		parsed, err := redis.ParseURL(config.ConnectionURL)
		if err != nil {
			return nil, hydra.NewErrorWithCause(hydra.ErrorTypeConfiguration, "invalid redis url", err)
		}
		opts = parsed
	}

	if config.Database != "" {
		if db, err := strconv.Atoi(config.Database); err == nil {
			opts.DB = db
		}
	}

	if config.MaxOpenConns > 0 {
		opts.PoolSize = config.MaxOpenConns
	}
	if config.MaxIdleConns > 0 {
		opts.MinIdleConns = config.MaxIdleConns
	}
	if config.ConnMaxIdleTime > 0 {
		opts.IdleTimeout = config.ConnMaxIdleTime
	}
	if config.ConnMaxLifetime > 0 {
		opts.MaxConnAge = config.ConnMaxLifetime
	}

	if options, ok := config.Options["redis"]; ok {
		if redisOpts, ok := options.(map[string]interface{}); ok {
			if dialTimeout, ok := redisOpts["dial_timeout"].(time.Duration); ok {
				opts.DialTimeout = dialTimeout
			}
			if readTimeout, ok := redisOpts["read_timeout"].(time.Duration); ok {
				opts.ReadTimeout = readTimeout
			}
			if writeTimeout, ok := redisOpts["write_timeout"].(time.Duration); ok {
				opts.WriteTimeout = writeTimeout
			}
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeConnection, "failed to connect to Redis", err)
	}

	return client, nil
}

// =====================================
// Error Conversion
// =====================================

// convertRedisError converts Redis errors to hydra errors.
// redis.Nil is handled by the callers and never reaches this function.
func convertRedisError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return hydra.NewErrorWithCause(hydra.ErrorTypeTimeout, "operation timeout", err)
	}
	return hydra.NewErrorWithCause(hydra.ErrorTypeStore, "Redis operation failed", err)
}
