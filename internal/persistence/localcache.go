package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/config"
)

// Fixed keys for persisted collections. Each holds one JSON-serialized
// snapshot rehydrated on store construction.
const (
	KeyTickets    = "portal:tickets"
	KeyCases      = "portal:cases"
	KeyCalendar   = "portal:calendar"
	KeyCredential = "portal:credential"
	KeyAIHistory  = "portal:ai-history"
	KeySyncQueue  = "portal:syncqueue"
)

// ErrNotFound indicates the key has never been written. First runs hit
// this on every collection; callers treat it as an empty snapshot.
var ErrNotFound = errors.New("localcache: key not found")

// LocalCache persists client-side state between restarts so stores can
// rehydrate without a network round trip.
type LocalCache struct {
	Client *redis.Client
}

// NewLocalCache connects to Redis using the provided configuration.
func NewLocalCache(cfg config.RedisConfig, logger *zap.Logger) *LocalCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach local cache", zap.Error(err))
	} else {
		logger.Info("connected to local cache")
	}

	return &LocalCache{Client: client}
}

// SaveJSON serializes value and stores it under key.
func (c *LocalCache) SaveJSON(ctx context.Context, key string, value any) error {
	if c == nil || c.Client == nil {
		return errors.New("local cache not configured")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, raw, 0).Err()
}

// LoadJSON reads the snapshot under key into out. Returns ErrNotFound
// when the key has never been written.
func (c *LocalCache) LoadJSON(ctx context.Context, key string, out any) error {
	if c == nil || c.Client == nil {
		return errors.New("local cache not configured")
	}
	raw, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Delete removes the snapshot under key. Missing keys are not an error.
func (c *LocalCache) Delete(ctx context.Context, key string) error {
	if c == nil || c.Client == nil {
		return errors.New("local cache not configured")
	}
	return c.Client.Del(ctx, key).Err()
}

// Ping verifies cache connectivity.
func (c *LocalCache) Ping(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return errors.New("local cache not configured")
	}
	return c.Client.Ping(ctx).Err()
}

// Close closes the client.
func (c *LocalCache) Close() {
	if c != nil && c.Client != nil {
		_ = c.Client.Close()
	}
}
