package cache

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates the provider selected by config.Backend
func New(config *Config, logger *zap.Logger) (Provider, error) {
	switch config.Backend {
	case "", "memory":
		return NewMemoryProvider(), nil
	case "redis":
		return NewRedisProvider(config, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", config.Backend)
	}
}
