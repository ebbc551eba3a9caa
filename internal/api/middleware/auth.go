// Package middleware 查询 API 的 HTTP 中间件
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthConfig 只读查询 API 的密钥配置
type AuthConfig struct {
	APIKeys []string `json:"api_keys"`
	Enabled bool     `json:"enabled"`
}

// ContextKeyID 通过认证后写入 gin.Context 的脱敏密钥标识
const ContextKeyID = "api_key_id"

// 导出下载链接无法附带 Header，允许以查询参数传入
const queryKeyParam = "api_key"

// requestKey 依次读取 X-API-Key、Bearer 令牌与 api_key 查询参数
func requestKey(c *gin.Context) (key, source string) {
	if k := c.GetHeader("X-API-Key"); k != "" {
		return k, "header"
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if k := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); k != "" {
			return k, "bearer"
		}
	}
	if k := c.Query(queryKeyParam); k != "" {
		return k, "query"
	}
	return "", ""
}

func validKey(keys []string, key string) bool {
	ok := false
	for _, k := range keys {
		// 遍历全部密钥，耗时与命中位置无关
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}

// APIKeyAuth 终端记录查询接口的密钥认证。
// 缺少密钥返回 401，密钥无效返回 403；日志只记录脱敏后的密钥
func APIKeyAuth(cfg AuthConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		key, source := requestKey(c)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("client_ip", c.ClientIP()),
		}
		if key == "" {
			logger.Warn("query api rejected: missing api key", fields...)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "需要 X-API-Key、Authorization: Bearer 或 api_key 参数",
			})
			return
		}

		id := maskAPIKey(key)
		fields = append(fields, zap.String("key_id", id), zap.String("key_source", source))
		if !validKey(cfg.APIKeys, key) {
			logger.Warn("query api rejected: invalid api key", fields...)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "API Key 无效",
			})
			return
		}

		logger.Debug("query api authenticated", fields...)
		c.Set(ContextKeyID, id)
		c.Next()
	}
}

// maskAPIKey 只保留首尾各 4 位
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// CORS 允许浏览器跨域读取查询接口
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
