// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
)

var (
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionConflict 会话在读取后已被其他请求修改
	ErrSessionConflict = errors.New("session was modified concurrently")
)

// SessionRepository 会话仓储接口，仅保存瞬时状态
type SessionRepository interface {
	// Get 获取会话，不存在时返回 ErrSessionNotFound
	Get(ctx context.Context, id string) (*entity.Session, error)

	// Save 按版本号比较后保存并刷新过期时间
	// 已存储的版本与 session.Version 不同时返回 ErrSessionConflict，成功后 session.Version 加一
	Save(ctx context.Context, session *entity.Session) error
}
