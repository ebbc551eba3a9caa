package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/gt06-gateway/internal/storage/redis"
)

// RedisInspector 由 *redisstorage.Client 实现
type RedisInspector interface {
	Snapshot(ctx context.Context) (redisstorage.Snapshot, error)
}

// RedisChecker 在线表与位置缓存所在 Redis 的检查器。
// 不可达时终端仍可接入并落库，因此通常以可选组件注册
type RedisChecker struct {
	client RedisInspector
}

// NewRedisChecker 创建 Redis 检查器
func NewRedisChecker(client RedisInspector) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name 返回检查器名称
func (c *RedisChecker) Name() string { return "redis" }

// Check ping、连接池等待超时与记录流长度
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	p, err := c.client.Snapshot(ctx)
	if err != nil && p.Pool == nil {
		return finish(CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("redis unreachable, presence and position cache unavailable: %v", err),
		}, start)
	}

	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{
			"rtt_ms":     float64(p.RTT.Microseconds()) / 1000,
			"stream_key": p.StreamKey,
		},
	}
	if p.Pool != nil {
		res.Details["total_conns"] = p.Pool.TotalConns
		res.Details["idle_conns"] = p.Pool.IdleConns
		res.Details["timeouts"] = p.Pool.Timeouts
		if p.Pool.Timeouts > 0 {
			res.Status = StatusDegraded
			res.Message = "redis pool wait timeouts observed"
		}
	}
	if err != nil {
		res.Status = StatusDegraded
		res.Message = fmt.Sprintf("record stream unreadable: %v", err)
	} else if p.StreamLength >= 0 {
		res.Details["stream_length"] = p.StreamLength
	}
	return finish(res, start)
}
