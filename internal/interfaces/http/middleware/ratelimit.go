package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/dto"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/errors"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
	// Burst 突发容量，窗口内最多放行 Burst 个请求
	Burst int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按会话限流，无会话时按客户端 IP
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst < cfg.RequestsPerSecond {
		cfg.Burst = cfg.RequestsPerSecond
	}
	// 以 Burst 为窗口容量，窗口长度按速率折算
	window := time.Duration(float64(time.Second) * float64(cfg.Burst) / float64(cfg.RequestsPerSecond))

	return func(c *gin.Context) {
		subject := c.GetString(SessionIDKey)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := subject + ":" + c.Request.Method + ":" + c.FullPath()

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.Burst, window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds()+0.5)))
			c.Abort()
			dto.ErrorWithDetail(c, http.StatusTooManyRequests, errors.ErrTooManyRequests.Message, &dto.ErrorDetail{
				ErrorCode: string(errors.CodeTooManyRequests),
			})
			return
		}

		c.Next()
	}
}
