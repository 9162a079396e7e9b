package cache

import (
	"context"
	"time"
)

// Store is a placeholder value cache scoped to one resolution
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Clear drops every entry of this store.
	Clear(ctx context.Context) error
}

// Provider hands out independent stores, one per resolution
type Provider interface {
	NewSession(id string) Store
	Stats() Stats
	Close() error
}

// Stats represents cache performance statistics
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Config contains cache configuration
type Config struct {
	Backend         string        `yaml:"backend" mapstructure:"backend"` // memory or redis
	RedisURL        string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns    int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	DefaultTTL      time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix       string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

func computeStats(hits, misses int64) Stats {
	stats := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total) * 100
	}
	return stats
}
