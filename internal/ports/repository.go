package ports

import (
	"context"
	"time"

	"shop-insights/internal/domain"

	"github.com/shopspring/decimal"
)

// TenantRepository defines tenant persistence
type TenantRepository interface {
	// GetTenant returns domain.ErrTenantNotFound when the tenant does not exist
	GetTenant(ctx context.Context, id domain.TenantID) (*domain.Tenant, error)
	ListIngestableTenants(ctx context.Context) ([]*domain.Tenant, error)

	// SaveCredentials creates or updates the tenant's credentials. With wipeData set, all ingested
	// rows of the tenant are deleted in the same transaction first.
	SaveCredentials(ctx context.Context, id domain.TenantID, creds domain.Credentials, wipeData bool) (*domain.Tenant, error)
}

// IngestRepository defines the idempotent upserts keyed by (tenant, external id).
// Failures are returned as *domain.PersistenceError.
type IngestRepository interface {
	UpsertCustomer(ctx context.Context, tenantID domain.TenantID, rec domain.CustomerRecord) (uint, error)
	UpsertProduct(ctx context.Context, tenantID domain.TenantID, rec domain.ProductRecord) (uint, error)
	// UpsertOrder writes the order, then replaces its whole line item set
	UpsertOrder(ctx context.Context, tenantID domain.TenantID, rec domain.OrderRecord) (uint, error)
}

// OrderFilter narrows insight queries over orders
type OrderFilter struct {
	Start         *time.Time
	End           *time.Time
	CustomersOnly bool
}

// InsightsRepository defines the read-only queries behind the dashboard
type InsightsRepository interface {
	CountCustomers(ctx context.Context, tenantID domain.TenantID) (int64, error)
	CountOrders(ctx context.Context, tenantID domain.TenantID) (int64, error)
	SumRevenue(ctx context.Context, tenantID domain.TenantID) (decimal.Decimal, error)
	ListOrders(ctx context.Context, tenantID domain.TenantID, filter OrderFilter) ([]domain.Order, error)
	GetCustomers(ctx context.Context, tenantID domain.TenantID, ids []uint) ([]domain.Customer, error)
}

// Store groups every relational repository
type Store interface {
	TenantRepository
	IngestRepository
	InsightsRepository
}

// RunLog defines persistence of ingestion run history
type RunLog interface {
	SaveRun(ctx context.Context, run *domain.IngestionRun) error
	ListRuns(ctx context.Context, tenantID domain.TenantID, limit int) ([]*domain.IngestionRun, error)
}
