package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/repository"
)

// SessionStore Redis 会话存储，每次保存刷新 TTL
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

var _ repository.SessionRepository = (*SessionStore)(nil)

// NewSessionStore 创建会话存储
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) key(id string) string {
	return s.client.Key("session", id)
}

// Get 获取会话
func (s *SessionStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id))
	if err != nil {
		if IsNil(err) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess entity.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// versionOf 仅解出版本号
type versionOf struct {
	Version int64 `json:"version"`
}

// Save 在 WATCH 事务中比较版本号后保存，期间键被修改则返回冲突
func (s *SessionStore) Save(ctx context.Context, session *entity.Session) error {
	ctx, span := tracer.Start(ctx, "session.Save",
		trace.WithAttributes(attribute.Int64("session.version", session.Version)))
	defer span.End()

	next := *session
	next.Version++
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	key := s.key(session.ID)
	err = s.client.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case IsNil(err):
		case err != nil:
			return err
		default:
			var stored versionOf
			if err := json.Unmarshal(current, &stored); err != nil {
				return fmt.Errorf("failed to decode session: %w", err)
			}
			if stored.Version != session.Version {
				return repository.ErrSessionConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		session.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, repository.ErrSessionConflict):
		span.SetAttributes(attribute.Bool("session.conflict", true))
		return repository.ErrSessionConflict
	default:
		span.RecordError(err)
		return fmt.Errorf("failed to save session: %w", err)
	}
}
