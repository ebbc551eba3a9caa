package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes 注册网关健康检查路由；readiness 为 nil 时只看依赖检查结果
func RegisterHTTPRoutes(r *gin.Engine, aggregator *Aggregator, readiness *Readiness) {
	// 完整报告，不健康时 503，降级仍 200
	r.GET("/health", func(c *gin.Context) {
		rep := aggregator.Report(c.Request.Context())
		code := http.StatusOK
		if rep.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, rep)
	})

	r.GET("/health/ready", func(c *gin.Context) {
		rep := aggregator.Report(c.Request.Context())
		pending := []string{}
		if readiness != nil {
			if p := readiness.Pending(); p != nil {
				pending = p
			}
		}
		ready := len(pending) == 0 && rep.Status != StatusUnhealthy
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"ready": ready, "status": rep.Status, "pending": pending})
	})

	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"alive": true, "uptime": aggregator.Uptime().Truncate(time.Second).String()})
	})
}
