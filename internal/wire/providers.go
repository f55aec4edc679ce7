package wire

import (
	"context"
	"html/template"
	"time"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/application/write"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/config"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/repository"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/service"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/generation"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/persistence/memory"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/persistence/redis"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/handler"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/middleware"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
	"github.com/SumaiyaTarannumNoor/Lets-Write/web"
)

// 内存限流器空闲键回收时间
const rateLimiterIdleTTL = 10 * time.Minute

// ProvideRedisClientOptional 提供 Redis 客户端，未启用时返回 nil，状态保存在进程内存
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		logger.Info(ctx, "redis disabled, using in-memory session store")
		return nil, func() {}, nil
	}

	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideGenerationClient 提供生成后端客户端
func ProvideGenerationClient(cfg *config.Config) *generation.Client {
	return generation.NewClient(&cfg.Generation)
}

// ProvideSessionRepository 提供会话存储
func ProvideSessionRepository(cfg *config.Config, client *redis.Client) repository.SessionRepository {
	if client == nil {
		return memory.NewSessionStore(cfg.Session.TTL)
	}
	return redis.NewSessionStore(client, cfg.Session.TTL)
}

// ProvideInFlightGuard 提供会话并发锁
func ProvideInFlightGuard(cfg *config.Config, client *redis.Client) repository.InFlightGuard {
	if client == nil {
		return memory.NewInFlightGuard()
	}
	// 锁过期时间覆盖一次完整的生成调用，进程崩溃后自动释放
	return redis.NewInFlightGuard(client, lockTTL(cfg))
}

// ProvideRateLimiter 提供限流器
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return memory.NewRateLimiter(rateLimiterIdleTTL)
	}
	return redis.NewRateLimiter(client)
}

// ProvideWriteService 提供生成服务
func ProvideWriteService(cfg *config.Config, generator service.Generator, sessions repository.SessionRepository, guard repository.InFlightGuard) *write.Service {
	theme, ok := entity.ParseTheme(cfg.UI.DefaultTheme)
	if !ok {
		theme = entity.ThemeDark
	}
	return write.NewService(generator, sessions, guard, write.Options{
		Limits: entity.LengthLimits{
			Min:     cfg.Generation.MinLength,
			Max:     cfg.Generation.MaxLength,
			Default: cfg.Generation.DefaultLength,
		},
		DefaultTheme: theme,
		StaleAfter:   lockTTL(cfg),
	})
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, client *redis.Client, backend *generation.Client) *handler.HealthHandler {
	// 避免把 nil 指针包装成非 nil 接口
	if client == nil {
		return handler.NewHealthHandler(cfg.App.Version, nil, backend)
	}
	return handler.NewHealthHandler(cfg.App.Version, client, backend)
}

// ProvidePageHandler 提供页面处理器
func ProvidePageHandler(cfg *config.Config, svc *write.Service) *handler.PageHandler {
	return handler.NewPageHandler(svc, cfg.UI)
}

// ProvideTemplates 提供页面模板
func ProvideTemplates() (*template.Template, error) {
	return web.Templates()
}

func lockTTL(cfg *config.Config) time.Duration {
	return 2 * cfg.Generation.Timeout
}
