package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisProvider backs placeholder caches with Redis so that several
// processes (e.g. a server fleet) can share one instance. Each session owns
// a key namespace and deletes it on Clear.
type RedisProvider struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisProvider connects to Redis
func NewRedisProvider(config *Config, logger *zap.Logger) (*RedisProvider, error) {
	// Parse Redis URL
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	if config.MaxConnections > 0 {
		opts.PoolSize = config.MaxConnections
	}
	opts.MinIdleConns = config.MinIdleConns
	if config.ConnMaxLifetime > 0 {
		opts.MaxConnAge = config.ConnMaxLifetime
	}

	provider := &RedisProvider{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := provider.client.Ping(ctx).Err(); err != nil {
		provider.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Placeholder cache initialized",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", opts.PoolSize),
		zap.Duration("default_ttl", config.DefaultTTL))

	return provider, nil
}

// NewSession returns a store whose keys live under the session namespace
func (p *RedisProvider) NewSession(id string) Store {
	return &RedisStore{provider: p, prefix: sessionPrefix(p.config.KeyPrefix, id)}
}

// Stats returns hit/miss counters across every session
func (p *RedisProvider) Stats() Stats {
	return computeStats(p.hits.Load(), p.misses.Load())
}

// Close closes the Redis connection
func (p *RedisProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// RedisStore is one session's view of the Redis cache
type RedisStore struct {
	provider *RedisProvider
	prefix   string
}

// Get implements Store. Lookup failures are logged and reported as misses.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	cacheKey := entryKey(s.prefix, key)

	value, err := s.provider.client.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		s.provider.misses.Add(1)
		s.provider.logger.Debug("Cache miss", zap.String("key", cacheKey))
		return "", false, nil
	} else if err != nil {
		s.provider.misses.Add(1)
		s.provider.logger.Error("Cache lookup failed", zap.Error(err))
		return "", false, nil
	}

	s.provider.hits.Add(1)
	s.provider.logger.Debug("Cache hit", zap.String("key", cacheKey))
	return value, true, nil
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	cacheKey := entryKey(s.prefix, key)

	if err := s.provider.client.Set(ctx, cacheKey, value, s.provider.config.DefaultTTL).Err(); err != nil {
		s.provider.logger.Error("Failed to cache placeholder", zap.Error(err))
		return fmt.Errorf("failed to cache placeholder: %w", err)
	}
	return nil
}

// Clear removes every key of this session
func (s *RedisStore) Clear(ctx context.Context) error {
	// Use SCAN to find all keys with our prefix
	iter := s.provider.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	// Delete keys in batches
	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		if err := s.provider.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			s.provider.logger.Error("Failed to delete cache keys", zap.Error(err))
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	s.provider.logger.Debug("Cache session cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

func sessionPrefix(keyPrefix, id string) string {
	return fmt.Sprintf("%s:session:%s:", keyPrefix, id)
}

// entryKey hashes the placeholder key so arbitrary text is safe to use in
// a Redis key pattern.
func entryKey(prefix, key string) string {
	hash := sha256.Sum256([]byte(key))
	return prefix + hex.EncodeToString(hash[:])[:16]
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
