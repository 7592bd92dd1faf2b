package tasks

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/dartrag/internal/config"
	"go.uber.org/zap"
)

// NewStore builds the backend named by cfg.Backend.
func NewStore(ctx context.Context, cfg config.TasksConfig, logger *zap.Logger) (Store, error) {
	ttl := cfg.TTL.Duration()
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.MaxEntries, ttl), nil
	case "badger":
		return NewBadgerStore(BadgerConfig{Path: cfg.BadgerPath, TTL: ttl}, logger)
	case "redis":
		return NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword.Value(),
			DB:       cfg.RedisDB,
			TTL:      ttl,
		})
	default:
		return nil, fmt.Errorf("unknown task store backend %q", cfg.Backend)
	}
}
