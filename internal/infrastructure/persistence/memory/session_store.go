// Package memory 提供进程内的会话存储、并发锁与限流实现，用于未启用 Redis 的单实例部署
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/repository"
)

type sessionEntry struct {
	raw       []byte
	version   int64
	expiresAt time.Time
}

// SessionStore 进程内会话存储，保存序列化副本以隔离调用方修改
type SessionStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	entries   map[string]sessionEntry
	lastSweep time.Time
	now       func() time.Time
}

var _ repository.SessionRepository = (*SessionStore)(nil)

// NewSessionStore 创建会话存储
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:     ttl,
		entries: make(map[string]sessionEntry),
		now:     time.Now,
	}
}

// Get 获取会话
func (s *SessionStore) Get(_ context.Context, id string) (*entity.Session, error) {
	s.mu.Lock()
	e, ok := s.live(id, s.now())
	s.mu.Unlock()

	if !ok {
		return nil, repository.ErrSessionNotFound
	}

	var sess entity.Session
	if err := json.Unmarshal(e.raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Save 版本一致时保存会话并刷新过期时间
func (s *SessionStore) Save(_ context.Context, session *entity.Session) error {
	next := *session
	next.Version++
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.live(session.ID, now); ok && e.version != session.Version {
		return repository.ErrSessionConflict
	}

	s.sweep(now)
	s.entries[session.ID] = sessionEntry{raw: raw, version: next.Version, expiresAt: now.Add(s.ttl)}
	session.Version = next.Version
	return nil
}

// Len 当前会话数
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// live 返回未过期的条目，调用方需持有锁
func (s *SessionStore) live(id string, now time.Time) (sessionEntry, bool) {
	e, ok := s.entries[id]
	if ok && !now.Before(e.expiresAt) {
		delete(s.entries, id)
		return sessionEntry{}, false
	}
	return e, ok
}

// sweep 每个 ttl 周期最多清理一次过期项，调用方需持有锁
func (s *SessionStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
