package repository

import (
	"context"
	"errors"
)

// ErrGenerationInFlight 会话已有生成请求在进行
var ErrGenerationInFlight = errors.New("generation already in flight")

// InFlightGuard 保证每个会话同时最多一个生成请求
type InFlightGuard interface {
	// Acquire 占用会话，已被占用时返回 ErrGenerationInFlight
	// 返回的 release 可重复调用
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}
