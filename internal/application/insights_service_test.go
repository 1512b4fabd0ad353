package application

import (
	"context"
	"testing"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/infrastructure/repository/repositorytest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedInsights(t *testing.T) *InsightsService {
	t.Helper()
	store := repositorytest.NewStore(t)
	ctx := context.Background()
	at := func(day, hour int) *time.Time {
		ts := time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
		return &ts
	}

	_, err := store.UpsertCustomer(ctx, 1, domain.CustomerRecord{ExternalID: "c1", FirstName: "Ada", LastName: "Lovelace", TotalSpent: money("0")})
	require.NoError(t, err)
	_, err = store.UpsertCustomer(ctx, 1, domain.CustomerRecord{ExternalID: "c2", Email: "grace@example.com", TotalSpent: money("0")})
	require.NoError(t, err)
	_, err = store.UpsertCustomer(ctx, 1, domain.CustomerRecord{ExternalID: "c3", TotalSpent: money("0")})
	require.NoError(t, err)

	orders := []domain.OrderRecord{
		{ExternalID: "1", Customer: &domain.CustomerRecord{ExternalID: "c1", FirstName: "Ada", LastName: "Lovelace"}, TotalPrice: *money("10.10"), PlacedAt: at(1, 8)},
		{ExternalID: "2", Customer: &domain.CustomerRecord{ExternalID: "c1", FirstName: "Ada", LastName: "Lovelace"}, TotalPrice: *money("20.20"), PlacedAt: at(1, 20)},
		{ExternalID: "3", Customer: &domain.CustomerRecord{ExternalID: "c2", Email: "grace@example.com"}, TotalPrice: *money("50.00"), PlacedAt: at(3, 12)},
		{ExternalID: "4", Customer: &domain.CustomerRecord{ExternalID: "c3"}, TotalPrice: *money("1.00"), PlacedAt: at(2, 12)},
		{ExternalID: "5", TotalPrice: *money("4.00")},
	}
	for _, rec := range orders {
		_, err := store.UpsertOrder(ctx, 1, rec)
		require.NoError(t, err)
	}

	// another tenant's data never shows up
	_, err = store.UpsertOrder(ctx, 2, domain.OrderRecord{ExternalID: "1", TotalPrice: *money("999"), PlacedAt: at(1, 8)})
	require.NoError(t, err)

	return NewInsightsService(store)
}

func TestInsightsService_Summary(t *testing.T) {
	svc := seedInsights(t)

	summary, err := svc.Summary(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.Customers)
	assert.Equal(t, int64(5), summary.Orders)
	assert.True(t, decimal.RequireFromString("85.30").Equal(summary.Revenue), "got %s", summary.Revenue)
}

func TestInsightsService_RevenueByDate(t *testing.T) {
	svc := seedInsights(t)
	ctx := context.Background()

	points, err := svc.RevenueByDate(ctx, 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2024-03-01", points[0].Date)
	assert.True(t, decimal.RequireFromString("30.30").Equal(points[0].Revenue))
	assert.Equal(t, "2024-03-02", points[1].Date)
	assert.Equal(t, "2024-03-03", points[2].Date)

	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	points, err = svc.RevenueByDate(ctx, 1, &start, nil)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-03-02", points[0].Date)
}

func TestInsightsService_TopCustomers(t *testing.T) {
	svc := seedInsights(t)

	top, err := svc.TopCustomers(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "grace@example.com", top[0].Name)
	assert.True(t, decimal.RequireFromString("50").Equal(top[0].Total))
	assert.Equal(t, "Ada Lovelace", top[1].Name)
	assert.True(t, decimal.RequireFromString("30.30").Equal(top[1].Total))
	assert.Equal(t, "Unknown", top[2].Name)

	limited, err := svc.TopCustomers(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestInsightsService_EmptyTenant(t *testing.T) {
	svc := NewInsightsService(repositorytest.NewStore(t))

	top, err := svc.TopCustomers(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Empty(t, top)

	summary, err := svc.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, summary.Revenue.IsZero())
}
