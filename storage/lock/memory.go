package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/developer0000009-hue/schoolportal/core"
)

type memoryEntry struct {
	token   string
	expires time.Time
}

// MemoryLocker holds locks in process. Expired locks are taken over.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]memoryEntry
}

var _ core.Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryEntry)}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := core.NowFunc()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, core.ErrLocked
	}
	token := uuid.NewString()
	l.held[key] = memoryEntry{token: token, expires: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
	}, nil
}
