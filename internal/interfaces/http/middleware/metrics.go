package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 未匹配路由统一归为 unknown，避免标签基数膨胀
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		if isProbePath(path) {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method

		if reqSize := float64(c.Request.ContentLength); reqSize > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(reqSize)
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if respSize := float64(c.Writer.Size()); respSize > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(respSize)
		}
	}
}
