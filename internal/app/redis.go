package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
	redisstorage "github.com/taoyao-code/gt06-gateway/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端，未启用时返回 nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))

	return client, nil
}

// NewPositionCache 创建最新位置缓存与记录流发布器，client 为 nil 时返回 nil
func NewPositionCache(cfg cfgpkg.RedisConfig, client *redisstorage.Client, logger *zap.Logger) *redisstorage.PositionCache {
	if client == nil {
		return nil
	}
	logger.Info("position cache enabled",
		zap.Duration("ttl", cfg.PositionTTL),
		zap.String("stream_key", cfg.StreamKey),
		zap.Int64("stream_max_len", cfg.StreamMaxLen))
	return redisstorage.NewPositionCache(client, cfg.PositionTTL, cfg.StreamKey, cfg.StreamMaxLen)
}
