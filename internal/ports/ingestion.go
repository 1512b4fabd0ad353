package ports

import (
	"context"

	"shop-insights/internal/domain"
)

// IngestionLock guards a tenant against concurrent ingestion from several trigger sources
type IngestionLock interface {
	// Acquire returns domain.ErrIngestionInProgress when the tenant is already held.
	// The returned release func must be called once ingestion ends.
	Acquire(ctx context.Context, tenantID domain.TenantID) (release func(), err error)
}

// RunPublisher broadcasts ingestion run lifecycle events
type RunPublisher interface {
	Publish(run *domain.IngestionRun)
}

// IngestionMetrics records ingestion outcomes
type IngestionMetrics interface {
	ObserveRun(run *domain.IngestionRun)
}
