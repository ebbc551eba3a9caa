package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
	"github.com/taoyao-code/gt06-gateway/internal/storage"
	pgstorage "github.com/taoyao-code/gt06-gateway/internal/storage/pg"
)

// NewStore 选择记录存储并加上写入超时与熔断保护；pool 为 nil 时使用内存存储
func NewStore(cfg cfgpkg.StorageConfig, pool *pgxpool.Pool, log *zap.Logger) *storage.Guard {
	var base storage.Store
	if pool != nil {
		base = &pgstorage.Repository{Pool: pool}
	} else {
		base = storage.NewMemoryStore(0)
		log.Warn("database disabled, decoded records are kept in memory only",
			zap.Int("capacity", storage.DefaultMemoryCapacity))
	}

	breaker := storage.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerTimeout)
	breaker.SetStateChangeCallback(func(from, to storage.State) {
		log.Warn("storage circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	})
	return storage.NewGuard(base, breaker, cfg.WriteTimeout)
}
