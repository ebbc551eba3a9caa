package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/gt06-gateway/internal/tcpserver"
)

// TCPStats 终端接入统计来源，由 *tcpserver.Server 实现
type TCPStats interface {
	ActiveConnections() int
	MaxConnections() int
	GetLimiterStats() *tcpserver.LimiterStats
	GetRateLimiterStats() *tcpserver.RateLimiterStats
}

// TCPChecker 终端接入检查器：连接数接近上限时新终端会被拒绝
type TCPChecker struct {
	server TCPStats
}

// NewTCPChecker 创建终端接入检查器
func NewTCPChecker(server TCPStats) *TCPChecker {
	return &TCPChecker{server: server}
}

// Name 返回检查器名称
func (c *TCPChecker) Name() string { return "tcp" }

// Check 执行检查
func (c *TCPChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	active := c.server.ActiveConnections()
	limit := c.server.MaxConnections()

	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{"active_connections": active},
	}
	if limit == 0 {
		res.Message = "no connection limit"
		return finish(res, start)
	}

	utilization := float64(active) / float64(limit)
	switch {
	case utilization > 0.95:
		res.Status, res.Message = StatusUnhealthy, "connection limit near exhausted, new terminals are rejected"
	case utilization > 0.8:
		res.Status, res.Message = StatusDegraded, "high connection usage"
	}
	res.Details["max_connections"] = limit
	res.Details["utilization"] = fmt.Sprintf("%.1f%%", utilization*100)
	if st := c.server.GetLimiterStats(); st != nil {
		res.Details["rejected_total"] = st.RejectedTotal
	}
	if st := c.server.GetRateLimiterStats(); st != nil {
		res.Details["accept_rate_rejected"] = st.RejectedTotal
	}
	return finish(res, start)
}
