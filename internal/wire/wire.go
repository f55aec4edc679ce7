//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/config"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/service"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/generation"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/handler"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StoreSet,
		GenerationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// StoreSet 会话存储、并发锁与限流器，Redis 未启用时回退到内存实现
var StoreSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideSessionRepository,
	ProvideInFlightGuard,
	ProvideRateLimiter,
)

// GenerationSet 生成后端与生成服务
var GenerationSet = wire.NewSet(
	ProvideGenerationClient,
	wire.Bind(new(service.Generator), new(*generation.Client)),
	ProvideWriteService,
)

// RouterSet 处理器与路由
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewWriteHandler,
	ProvidePageHandler,
	ProvideTemplates,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
