package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// CacheService wraps the Redis client used for shared counters.
type CacheService struct {
	client *redis.Client
	addr   string
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c CacheConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HashIncrement adds Delta to Field of the hash at Key.
type HashIncrement struct {
	Key   string
	Field string
	Delta int64
}

// NewCacheService creates the client without dialing. Call WaitUntilReady
// before relying on it.
func NewCacheService(cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, errors.NewValidationError("redis address is incomplete", "redis", cfg.addr())
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     4,
	})

	return &CacheService{
		client: client,
		addr:   cfg.addr(),
		logger: logger,
	}, nil
}

// IncrementMany applies every increment in one MULTI/EXEC round trip.
func (c *CacheService) IncrementMany(ctx context.Context, incs []HashIncrement) error {
	if len(incs) == 0 {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, inc := range incs {
			pipe.HIncrBy(ctx, inc.Key, inc.Field, inc.Delta)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Cache increment failed", zap.Int("count", len(incs)), zap.Error(err))
		return errors.NewStoreError("hincrby failed", "redis", "hincrby", err)
	}
	return nil
}

func (c *CacheService) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		c.logger.Warn("Cache hgetall failed", zap.String("key", key), zap.Error(err))
		return map[string]string{}, errors.NewStoreError("hgetall failed", "redis", "hgetall", err)
	}
	return values, nil
}

// WaitUntilReady pings until Redis answers or timeout expires.
func (c *CacheService) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		err := c.client.Ping(ctx).Err()
		if err == nil {
			c.logger.Info("Redis connected", zap.String("addr", c.addr))
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.NewStoreError("redis not ready", "redis", "ping", err)
		case <-ticker.C:
		}
	}
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}
