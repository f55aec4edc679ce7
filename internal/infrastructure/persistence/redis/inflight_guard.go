package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/repository"
	"github.com/SumaiyaTarannumNoor/Lets-Write/pkg/logger"
)

// 仅删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// InFlightGuard 基于 SET NX PX 的会话级生成锁，跨实例生效
type InFlightGuard struct {
	client *Client
	ttl    time.Duration
}

var _ repository.InFlightGuard = (*InFlightGuard)(nil)

// NewInFlightGuard 创建生成锁，ttl 应大于一次生成调用的超时时间
func NewInFlightGuard(client *Client, ttl time.Duration) *InFlightGuard {
	return &InFlightGuard{client: client, ttl: ttl}
}

// Acquire 占用会话
func (g *InFlightGuard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	ctx, span := tracer.Start(ctx, "inflight.Acquire")
	defer span.End()

	key := g.client.Key("inflight", sessionID)
	token := uuid.NewString()

	ok, err := g.client.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to acquire in-flight lock: %w", err)
	}
	span.SetAttributes(attribute.Bool("inflight.acquired", ok))
	if !ok {
		return nil, repository.ErrGenerationInFlight
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// 请求上下文可能已取消，释放使用独立超时
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, g.client.rdb, []string{key}, token).Err(); err != nil {
				logger.Warn(ctx, "failed to release in-flight lock", "session_id", sessionID, "error", err.Error())
			}
		})
	}
	return release, nil
}
