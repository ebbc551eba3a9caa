package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/taoyao-code/gt06-gateway/internal/api/docs"
	"github.com/taoyao-code/gt06-gateway/internal/api/middleware"
)

// RegisterReadOnlyRoutes 注册只读查询路由
func RegisterReadOnlyRoutes(r *gin.Engine, handler *ReadOnlyHandler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || handler == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api := r.Group("/api")
	api.Use(middleware.CORS())
	// 预检请求由 CORS 中间件直接应答
	api.OPTIONS("/*path", func(*gin.Context) {})
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	// 数据包
	api.GET("/packets", handler.ListPackets)
	api.GET("/packets/:id", handler.GetPacket)

	// 定位与报警
	api.GET("/gps", handler.ListGPS)
	api.GET("/gps/geojson", handler.GeoJSON)
	api.GET("/alarms", handler.ListAlarms)

	// 设备与会话
	api.GET("/devices", handler.ListDevices)
	api.GET("/devices/:terminalId/latest", handler.LatestPosition)
	api.GET("/sessions", handler.ListSessions)

	api.GET("/export/:format", handler.Export)

	logger.Info("readonly routes registered", zap.Int("endpoints", 9))
}

// RegisterSwagger 挂载 API 文档页面
func RegisterSwagger(r *gin.Engine) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.InstanceName(docs.SwaggerInfo.InstanceName())))
}
