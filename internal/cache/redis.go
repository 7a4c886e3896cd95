// Package cache keeps rendered price histories in Redis so repeated chart
// requests skip re-reading both logs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kjannette/vitanova-gold/internal/models"
)

const keyPrefix = "gold:history:"

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type HistoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistoryCache connects and pings Redis.
func NewHistoryCache(cfg Config) (*HistoryCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &HistoryCache{client: client, ttl: cfg.TTL}, nil
}

// Key identifies one history query. scope is the time context the response
// was built for; entries from another scope are never read.
func Key(scope, timeframe, start, end string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", keyPrefix, scope, timeframe, start, end)
}

// Get returns nil, nil on a miss.
func (c *HistoryCache) Get(ctx context.Context, key string) (*models.PriceHistory, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var h models.PriceHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode cached history: %w", err)
	}
	return &h, nil
}

func (c *HistoryCache) Set(ctx context.Context, key string, h *models.PriceHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops every cached history. Called after each new observation.
func (c *HistoryCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *HistoryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *HistoryCache) Close() error {
	return c.client.Close()
}
