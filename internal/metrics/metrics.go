package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 网关业务指标
type AppMetrics struct {
	TCPAccepted       prometheus.Counter
	TCPRejected       *prometheus.CounterVec // labels: reason=limit|rate
	TCPBytesReceived  prometheus.Counter
	ActiveConnections prometheus.Gauge

	FramesTotal      *prometheus.CounterVec // labels: variant=standard|extended
	DiscardedBytes   *prometheus.CounterVec // labels: reason
	RecordsTotal     *prometheus.CounterVec // labels: protocol
	ChecksumTotal    *prometheus.CounterVec // labels: result=ok|mismatch
	AckTotal         *prometheus.CounterVec // labels: result=ok|error
	BufferOverflows  prometheus.Counter
	StoreTotal       *prometheus.CounterVec // labels: result=ok|error|circuit_open
	StoreDuration    prometheus.Histogram
	CacheWriteErrors prometheus.Counter

	OnlineGauge    prometheus.Gauge   // 当前在线终端数
	HeartbeatTotal prometheus.Counter // 心跳计数
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_accept_total",
			Help: "Total accepted TCP connections.",
		}),
		TCPRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tcp_reject_total",
			Help: "TCP connections rejected before serving.",
		}, []string{"reason"}),
		TCPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_bytes_received_total",
			Help: "Total bytes received over TCP.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tcp_active_connections",
			Help: "Current number of open TCP connections.",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gt06_frames_total",
			Help: "Complete GT06 frames reassembled, by framing variant.",
		}, []string{"variant"}),
		DiscardedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gt06_discarded_bytes_total",
			Help: "Bytes discarded during frame reassembly, by reason.",
		}, []string{"reason"}),
		RecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gt06_records_total",
			Help: "Decoded records by protocol name.",
		}, []string{"protocol"}),
		ChecksumTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gt06_checksum_total",
			Help: "Inbound standard frame checksum verification results.",
		}, []string{"result"}),
		AckTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gt06_ack_total",
			Help: "Acknowledgement frames written back to terminals.",
		}, []string{"result"}),
		BufferOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gt06_buffer_overflow_total",
			Help: "Connections closed because the reassembly buffer ceiling was exceeded.",
		}),
		StoreTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gt06_store_total",
			Help: "Record storage writes by result.",
		}, []string{"result"}),
		StoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gt06_store_duration_seconds",
			Help:    "Latency of record storage writes.",
			Buckets: prometheus.DefBuckets,
		}),
		CacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gt06_cache_write_errors_total",
			Help: "Failed writes to the position cache or record stream.",
		}),
		OnlineGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_online_count",
			Help: "Current number of online devices.",
		}),
		HeartbeatTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_heartbeat_total",
			Help: "Total heartbeats observed.",
		}),
	}
	reg.MustRegister(
		m.TCPAccepted, m.TCPRejected, m.TCPBytesReceived, m.ActiveConnections,
		m.FramesTotal, m.DiscardedBytes, m.RecordsTotal, m.ChecksumTotal, m.AckTotal,
		m.BufferOverflows, m.StoreTotal, m.StoreDuration, m.CacheWriteErrors,
		m.OnlineGauge, m.HeartbeatTotal,
	)
	return m
}
