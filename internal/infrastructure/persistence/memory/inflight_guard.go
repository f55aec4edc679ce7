package memory

import (
	"context"
	"sync"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/repository"
)

// InFlightGuard 进程内会话级生成锁
type InFlightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

var _ repository.InFlightGuard = (*InFlightGuard)(nil)

// NewInFlightGuard 创建生成锁
func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{active: make(map[string]struct{})}
}

// Acquire 占用会话
func (g *InFlightGuard) Acquire(_ context.Context, sessionID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[sessionID]; busy {
		return nil, repository.ErrGenerationInFlight
	}
	g.active[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, sessionID)
			g.mu.Unlock()
		})
	}, nil
}
