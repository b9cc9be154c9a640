package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheKey holds the whole rate table as one JSON document.
const CacheKey = "rates:v1:cbr"

// RedisCache keeps the last fetched table for ttl.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects and pings, giving up after five seconds.
func NewRedisClient(addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		PoolSize:        20,
		MinIdleConns:    2,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", addr))
	return client, nil
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns ok == false on a cache miss.
func (c *RedisCache) Get(ctx context.Context) (Table, bool, error) {
	data, err := c.client.Get(ctx, CacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, false, fmt.Errorf("decode cached rates: %w", err)
	}
	return table, true, nil
}

func (c *RedisCache) Set(ctx context.Context, table Table) error {
	data, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKey, data, c.ttl).Err()
}
