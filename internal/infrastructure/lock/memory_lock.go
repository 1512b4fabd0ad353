package lock

import (
	"context"
	"sync"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"
)

// MemoryLock implements IngestionLock for a single process
type MemoryLock struct {
	mu   sync.Mutex
	held map[domain.TenantID]struct{}
}

var _ ports.IngestionLock = (*MemoryLock)(nil)

// NewMemoryLock creates an empty in-process lock
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[domain.TenantID]struct{})}
}

func (l *MemoryLock) Acquire(_ context.Context, tenantID domain.TenantID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[tenantID]; busy {
		return nil, domain.ErrIngestionInProgress
	}
	l.held[tenantID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, tenantID)
			l.mu.Unlock()
		})
	}, nil
}
