package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
	"github.com/taoyao-code/gt06-gateway/internal/gateway"
	"github.com/taoyao-code/gt06-gateway/internal/metrics"
	"github.com/taoyao-code/gt06-gateway/internal/tcpserver"
)

// NewTCPServer 根据配置创建 TCP 服务器并挂接指标与连接处理
func NewTCPServer(cfg cfgpkg.TCPConfig, log *zap.Logger, appm *metrics.AppMetrics, deps gateway.Deps) *tcpserver.Server {
	srv := tcpserver.New(cfg, log)
	srv.SetMetricsCallbacks(
		func() { appm.TCPAccepted.Inc() },
		func(reason string) { appm.TCPRejected.WithLabelValues(reason).Inc() },
		func(n int) { appm.TCPBytesReceived.Add(float64(n)) },
	)
	srv.SetConnHandler(gateway.NewConnHandler(deps))
	return srv
}
