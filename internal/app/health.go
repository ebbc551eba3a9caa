package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/gt06-gateway/internal/health"
	"github.com/taoyao-code/gt06-gateway/internal/storage"
	redisstorage "github.com/taoyao-code/gt06-gateway/internal/storage/redis"
)

// NewHealthAggregator 按已启用的依赖创建健康检查聚合器；Redis 作为可选组件，不可用时只降级
func NewHealthAggregator(dbpool *pgxpool.Pool, redisClient *redisstorage.Client, breaker *storage.CircuitBreaker) *health.Aggregator {
	agg := health.NewAggregator(0)
	if dbpool != nil {
		agg.Add(health.NewDatabaseChecker(dbpool))
	}
	if redisClient != nil {
		agg.AddOptional(health.NewRedisChecker(redisClient))
	}
	if breaker != nil {
		agg.Add(health.NewStorageChecker(breaker))
	}
	return agg
}

// AddTCPChecker TCP 服务启动后加入检查
func AddTCPChecker(aggregator *health.Aggregator, tcpServer health.TCPStats) {
	aggregator.Add(health.NewTCPChecker(tcpServer))
}
