package health

import (
	"context"
	"time"

	"github.com/taoyao-code/gt06-gateway/internal/storage"
)

// StorageChecker 记录写入熔断器检查器。
// 熔断打开时网关仍在接收并应答，只是记录不再落库，因此报告为降级
type StorageChecker struct {
	breaker *storage.CircuitBreaker
}

// NewStorageChecker 创建存储检查器
func NewStorageChecker(breaker *storage.CircuitBreaker) *StorageChecker {
	return &StorageChecker{breaker: breaker}
}

// Name 返回检查器名称
func (c *StorageChecker) Name() string { return "storage" }

// Check 执行检查
func (c *StorageChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	stats := c.breaker.Stats()

	res := CheckResult{Status: StatusHealthy, Message: "ok"}
	switch c.breaker.State() {
	case storage.StateOpen:
		res.Status, res.Message = StatusDegraded, "storage circuit open, records are not persisted"
	case storage.StateHalfOpen:
		res.Status, res.Message = StatusDegraded, "storage circuit probing"
	}
	res.Details = map[string]any{
		"circuit_breaker_state":    stats.State,
		"circuit_breaker_failures": stats.FailureCount,
		"circuit_breaker_trips":    stats.TripCount,
	}
	return finish(res, start)
}
