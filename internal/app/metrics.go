package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taoyao-code/gt06-gateway/internal/metrics"
	"github.com/taoyao-code/gt06-gateway/internal/session"
)

// NewMetrics 初始化注册表与应用指标
func NewMetrics() (*prometheus.Registry, *metrics.AppMetrics) {
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	return reg, appm
}

// ConnCounter 活跃连接数来源，由 *tcpserver.Server 实现
type ConnCounter interface {
	ActiveConnections() int
}

// RunGaugeSampler 周期采样在线终端数与活跃连接数，ctx 取消后返回
func RunGaugeSampler(ctx context.Context, interval time.Duration, appm *metrics.AppMetrics, sess session.SessionManager, conns ConnCounter) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	sample := func() {
		if sess != nil {
			appm.OnlineGauge.Set(float64(sess.OnlineCount(time.Now())))
		}
		if conns != nil {
			appm.ActiveConnections.Set(float64(conns.ActiveConnections()))
		}
	}
	sample()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample()
		}
	}
}
