package health

import (
	"context"
	"time"
)

// Status 组件健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 仍在接收并应答终端，但部分能力受损
	StatusUnhealthy Status = "unhealthy" // 无法继续服务
)

// rank 状态严重程度，用于取最差值
func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// CheckResult 单个组件的检查结果
type CheckResult struct {
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	LatencyMs float64        `json:"latencyMs"`
	// Optional 可选组件失败只使整体降级
	Optional bool `json:"optional,omitempty"`
}

// Checker 组件检查器
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

func finish(r CheckResult, start time.Time) CheckResult {
	r.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	return r
}
