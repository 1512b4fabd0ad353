package repository

import (
	"context"
	"sort"
	"sync"

	"shop-insights/internal/domain"
	"shop-insights/internal/ports"
)

// DefaultMemoryRunsPerTenant bounds how many runs the in-memory log keeps per tenant
const DefaultMemoryRunsPerTenant = 100

// MemoryRunLog keeps ingestion runs in process memory, used when MongoDB is not configured.
// Only the most recent runs of each tenant are retained.
type MemoryRunLog struct {
	mu        sync.RWMutex
	runs      map[string]domain.IngestionRun
	perTenant int
}

// NewMemoryRunLog creates an empty in-memory run log with the default retention
func NewMemoryRunLog() ports.RunLog {
	return NewMemoryRunLogWithLimit(DefaultMemoryRunsPerTenant)
}

// NewMemoryRunLogWithLimit creates an in-memory run log keeping at most perTenant runs per tenant
func NewMemoryRunLogWithLimit(perTenant int) *MemoryRunLog {
	if perTenant <= 0 {
		perTenant = DefaultMemoryRunsPerTenant
	}
	return &MemoryRunLog{runs: make(map[string]domain.IngestionRun), perTenant: perTenant}
}

func (r *MemoryRunLog) SaveRun(_ context.Context, run *domain.IngestionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	cp.Skipped = append([]domain.Resource(nil), run.Skipped...)
	_, replacing := r.runs[run.ID]
	r.runs[run.ID] = cp
	if !replacing {
		r.evictLocked(run.TenantID)
	}
	return nil
}

// evictLocked drops the tenant's oldest runs beyond the retention limit
func (r *MemoryRunLog) evictLocked(tenantID domain.TenantID) {
	var ids []string
	for id, run := range r.runs {
		if run.TenantID == tenantID {
			ids = append(ids, id)
		}
	}
	if len(ids) <= r.perTenant {
		return
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.runs[ids[i]].StartedAt.Before(r.runs[ids[j]].StartedAt)
	})
	for _, id := range ids[:len(ids)-r.perTenant] {
		delete(r.runs, id)
	}
}

func (r *MemoryRunLog) ListRuns(_ context.Context, tenantID domain.TenantID, limit int) ([]*domain.IngestionRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.IngestionRun
	for _, run := range r.runs {
		if run.TenantID != tenantID {
			continue
		}
		cp := run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
