package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
)

// AuditConfig 审计配置
type AuditConfig struct {
	// SkipPaths 跳过审计的路径
	SkipPaths []string
}

// DefaultAuditSkipPaths 默认跳过审计的路径
var DefaultAuditSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/favicon.ico",
}

// Audit 审计日志中间件，不记录提示词与生成内容
func Audit(cfg AuditConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"body_size", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Warn(c.Request.Context(), "api request", fields...)
		default:
			logger.Info(c.Request.Context(), "api request", fields...)
		}
	}
}

func isProbePath(path string) bool {
	for _, p := range DefaultAuditSkipPaths {
		if p == path {
			return true
		}
	}
	return false
}
