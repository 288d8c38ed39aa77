package server

import (
	"context"
	"fmt"
	"time"

	"catalog-wizard/internal/config"
	"catalog-wizard/internal/database"
	"catalog-wizard/internal/kv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to the configured redis and reports whether it
// answered a ping
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, bool) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis not reachable", zap.String("addr", cfg.Addr()), zap.Error(err))
		return client, false
	}
	return client, true
}

// OpenStore opens the key-value backend selected by STORAGE_DRIVER. The
// postgres backend is migrated before use.
func OpenStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (kv.Store, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		dbService, err := database.New(cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("Database health check", zap.Any("health", dbService.Health()))

		if err := database.RunMigrations(dbService.DB(), logger); err != nil {
			dbService.Close()
			return nil, err
		}
		return kv.NewPostgresStore(dbService.DB()), nil

	case config.StorageRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis storage selected without a redis client")
		}
		return kv.NewRedisStore(redisClient, cfg.Storage.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER: %s", cfg.Storage.Driver)
	}
}
