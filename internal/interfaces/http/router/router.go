// Package router 提供 HTTP 路由配置
package router

import (
	"html/template"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/config"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/handler"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// RouterHandlers 路由依赖的处理器
type RouterHandlers struct {
	Health *handler.HealthHandler
	Write  *handler.WriteHandler
	Page   *handler.PageHandler
}

// NewWithDeps 创建路由器
func NewWithDeps(cfg *config.Config, h RouterHandlers, limiter middleware.RateLimiter, tmpl *template.Template) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)

	r := &Router{
		engine: engine,
		cfg:    cfg,
	}

	r.setupMiddleware()
	r.setupRoutes(h, limiter)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(h RouterHandlers, limiter middleware.RateLimiter) {
	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	session := middleware.Session(middleware.SessionConfig{
		CookieName: r.cfg.Session.CookieName,
		Secret:     r.cfg.Session.Secret,
		MaxAge:     r.cfg.Session.TTL,
		Secure:     r.cfg.Session.Secure,
	})

	// 页面
	r.engine.GET("/", session, h.Page.Index)

	// 页面调用的 JSON API
	api := r.engine.Group("/api", session, middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
		Burst:             r.cfg.Security.RateLimit.Burst,
	}, limiter))
	{
		api.POST("/write", h.Write.Write)

		api.GET("/session", h.Write.GetSession)
		api.DELETE("/session", h.Write.ClearSession)
		api.PUT("/session/settings", h.Write.UpdateSettings)
		api.GET("/session/download", h.Write.Download)
	}
}
