package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseChecker 记录库检查：连通性、gt06 表是否已迁移、连接池占用
type DatabaseChecker struct {
	pool *pgxpool.Pool
}

// NewDatabaseChecker 创建数据库检查器
func NewDatabaseChecker(pool *pgxpool.Pool) *DatabaseChecker {
	return &DatabaseChecker{pool: pool}
}

// Name 返回检查器名称
func (c *DatabaseChecker) Name() string { return "database" }

// Check 执行检查
func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	var migrated bool
	err := c.pool.QueryRow(ctx, "SELECT to_regclass('gt06_packets') IS NOT NULL").Scan(&migrated)
	if err != nil {
		return finish(CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("query failed: %v", err)}, start)
	}
	if !migrated {
		return finish(CheckResult{Status: StatusUnhealthy, Message: "gt06 schema missing, run migrations"}, start)
	}

	stats := c.pool.Stat()
	utilization := 0.0
	if stats.MaxConns() > 0 {
		utilization = float64(stats.AcquiredConns()) / float64(stats.MaxConns())
	}
	status, message := StatusHealthy, "ok"
	switch {
	case utilization >= 1:
		// 写入会排队直至超时，熔断器随后打开
		status, message = StatusDegraded, "connection pool exhausted, record writes are queuing"
	case utilization > 0.9:
		status, message = StatusDegraded, "connection pool near limit"
	}
	return finish(CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]any{
			"acquired_conns": stats.AcquiredConns(),
			"idle_conns":     stats.IdleConns(),
			"max_conns":      stats.MaxConns(),
			"utilization":    fmt.Sprintf("%.1f%%", utilization*100),
		},
	}, start)
}
