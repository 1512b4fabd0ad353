package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-insights/internal/domain"
	"shop-insights/internal/infrastructure/repository/repositorytest"
	"shop-insights/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantID domain.TenantID = 1

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestGormStore_UpsertCustomer_UpdatesInPlace(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx := context.Background()

	firstID, err := store.UpsertCustomer(ctx, tenantID, domain.CustomerRecord{
		ExternalID: "42", Email: "a@b.com", FirstName: "A", TotalSpent: decPtr("10.00"),
	})
	require.NoError(t, err)

	secondID, err := store.UpsertCustomer(ctx, tenantID, domain.CustomerRecord{
		ExternalID: "42", Email: "a@b.com", TotalSpent: decPtr("25.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID)

	count, err := store.CountCustomers(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	customers, err := store.GetCustomers(ctx, tenantID, []uint{firstID})
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "42", customers[0].ExternalID)
	assert.True(t, dec("25.00").Equal(customers[0].TotalSpent), "got %s", customers[0].TotalSpent)
}

func TestGormStore_UpsertCustomer_NilSpendKeepsStoredValue(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx := context.Background()

	id, err := store.UpsertCustomer(ctx, tenantID, domain.CustomerRecord{ExternalID: "7", Email: "old@x.com", TotalSpent: decPtr("99.50")})
	require.NoError(t, err)

	_, err = store.UpsertCustomer(ctx, tenantID, domain.CustomerRecord{ExternalID: "7", Email: "new@x.com"})
	require.NoError(t, err)

	customers, err := store.GetCustomers(ctx, tenantID, []uint{id})
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "new@x.com", customers[0].Email)
	assert.True(t, dec("99.50").Equal(customers[0].TotalSpent))
}

func TestGormStore_UpsertProduct_IsKeyedPerTenant(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx := context.Background()

	a, err := store.UpsertProduct(ctx, 1, domain.ProductRecord{ExternalID: "p1", Title: "Mug", Price: dec("5")})
	require.NoError(t, err)
	again, err := store.UpsertProduct(ctx, 1, domain.ProductRecord{ExternalID: "p1", Title: "Big Mug", Price: dec("6")})
	require.NoError(t, err)
	other, err := store.UpsertProduct(ctx, 2, domain.ProductRecord{ExternalID: "p1", Title: "Mug", Price: dec("5")})
	require.NoError(t, err)

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, other)
}

func TestGormStore_UpsertOrder_ReplacesLineItems(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx := context.Background()
	placed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first := domain.OrderRecord{
		ExternalID: "1001",
		Customer:   &domain.CustomerRecord{ExternalID: "42", Email: "a@b.com"},
		TotalPrice: dec("20.00"),
		PlacedAt:   &placed,
		Items: []domain.OrderItemRecord{
			{ProductExternalID: "A", Title: "Product A", Quantity: 2, Price: dec("10.00")},
		},
	}
	orderID, err := store.UpsertOrder(ctx, tenantID, first)
	require.NoError(t, err)

	items, err := store.OrderItems(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	second := first
	second.TotalPrice = dec("7.00")
	second.Items = []domain.OrderItemRecord{
		{ProductExternalID: "B", Title: "Product B", Quantity: 1, Price: dec("7.00")},
	}
	againID, err := store.UpsertOrder(ctx, tenantID, second)
	require.NoError(t, err)
	assert.Equal(t, orderID, againID)

	items, err = store.OrderItems(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, items, 1, "line items are replaced, not merged")
	assert.Equal(t, 1, items[0].Quantity)
	assert.True(t, dec("7.00").Equal(items[0].Price))

	productB, err := store.UpsertProduct(ctx, tenantID, domain.ProductRecord{ExternalID: "B", Title: "Product B", Price: dec("7.00")})
	require.NoError(t, err)
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, productB, *items[0].ProductID)

	orders, err := store.ListOrders(ctx, tenantID, ports.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, dec("7.00").Equal(orders[0].TotalPrice))
	require.NotNil(t, orders[0].CustomerID)
}

func TestGormStore_UpsertOrder_LazilyCreatesProducts(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx := context.Background()

	_, err := store.UpsertOrder(ctx, tenantID, domain.OrderRecord{
		ExternalID: "2001",
		TotalPrice: dec("3.00"),
		Items: []domain.OrderItemRecord{
			{ProductExternalID: "900", Title: "Sticker", Quantity: 3, Price: dec("1.00")},
			{Title: "Gift wrap", Quantity: 1, Price: dec("0")},
		},
	})
	require.NoError(t, err)

	// the later product pass updates the lazily created row instead of adding another
	id, err := store.UpsertProduct(ctx, tenantID, domain.ProductRecord{ExternalID: "900", Title: "Sticker pack", Price: dec("1.20")})
	require.NoError(t, err)

	orders, err := store.ListOrders(ctx, tenantID, ports.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Nil(t, orders[0].CustomerID)

	items, err := store.OrderItems(ctx, orders[0].ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, id, *items[0].ProductID)
	assert.Nil(t, items[1].ProductID, "custom line items have no product")
}

func TestGormStore_UpsertOrder_EmbeddedCustomerKeepsSpend(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx := context.Background()

	customerID, err := store.UpsertCustomer(ctx, tenantID, domain.CustomerRecord{ExternalID: "42", Email: "a@b.com", TotalSpent: decPtr("25.00")})
	require.NoError(t, err)

	_, err = store.UpsertOrder(ctx, tenantID, domain.OrderRecord{
		ExternalID: "3001",
		Customer:   &domain.CustomerRecord{ExternalID: "42", Email: "a@b.com"},
		TotalPrice: dec("5.00"),
	})
	require.NoError(t, err)

	customers, err := store.GetCustomers(ctx, tenantID, []uint{customerID})
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.True(t, dec("25.00").Equal(customers[0].TotalSpent))
}

func TestGormStore_SumRevenue(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx := context.Background()

	for _, rec := range []domain.OrderRecord{
		{ExternalID: "1", TotalPrice: dec("10.10")},
		{ExternalID: "2", TotalPrice: dec("20.20")},
	} {
		_, err := store.UpsertOrder(ctx, tenantID, rec)
		require.NoError(t, err)
	}
	_, err := store.UpsertOrder(ctx, tenantID+1, domain.OrderRecord{ExternalID: "1", TotalPrice: dec("99.99")})
	require.NoError(t, err)

	sum, err := store.SumRevenue(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, dec("30.30").Equal(sum), "got %s", sum)

	empty, err := store.SumRevenue(ctx, tenantID+2)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestGormStore_ListOrders_Filters(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx := context.Background()
	day := func(d int) *time.Time {
		ts := time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
		return &ts
	}

	records := []domain.OrderRecord{
		{ExternalID: "1", TotalPrice: dec("1"), PlacedAt: day(1), Customer: &domain.CustomerRecord{ExternalID: "c1"}},
		{ExternalID: "2", TotalPrice: dec("2"), PlacedAt: day(5)},
		{ExternalID: "3", TotalPrice: dec("3"), PlacedAt: day(10), Customer: &domain.CustomerRecord{ExternalID: "c1"}},
		{ExternalID: "4", TotalPrice: dec("4")},
	}
	for _, rec := range records {
		_, err := store.UpsertOrder(ctx, tenantID, rec)
		require.NoError(t, err)
	}

	all, err := store.ListOrders(ctx, tenantID, ports.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	ranged, err := store.ListOrders(ctx, tenantID, ports.OrderFilter{Start: day(2), End: day(10)})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "2", ranged[0].ExternalID)
	assert.Equal(t, "3", ranged[1].ExternalID)

	withCustomer, err := store.ListOrders(ctx, tenantID, ports.OrderFilter{CustomersOnly: true})
	require.NoError(t, err)
	assert.Len(t, withCustomer, 2)

	count, err := store.CountOrders(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestGormStore_SaveCredentials(t *testing.T) {
	t.Run("creates the tenant when missing", func(t *testing.T) {
		store := repositorytest.NewStore(t)
		ctx := context.Background()

		_, err := store.GetTenant(ctx, tenantID)
		assert.ErrorIs(t, err, domain.ErrTenantNotFound)

		tenant, err := store.SaveCredentials(ctx, tenantID, domain.Credentials{ShopDomain: "a.myshopify.com", AccessToken: "tok"}, false)
		require.NoError(t, err)
		assert.Equal(t, tenantID, tenant.ID)
		assert.True(t, tenant.CanIngest())

		ingestable, err := store.ListIngestableTenants(ctx)
		require.NoError(t, err)
		require.Len(t, ingestable, 1)
		assert.Equal(t, "a.myshopify.com", ingestable[0].ShopDomain)
	})

	t.Run("wipe removes ingested rows of that tenant only", func(t *testing.T) {
		store := repositorytest.NewStore(t)
		ctx := context.Background()

		for _, id := range []domain.TenantID{1, 2} {
			_, err := store.SaveCredentials(ctx, id, domain.Credentials{ShopDomain: "a.myshopify.com", AccessToken: "tok"}, false)
			require.NoError(t, err)
			_, err = store.UpsertOrder(ctx, id, domain.OrderRecord{
				ExternalID: "1",
				Customer:   &domain.CustomerRecord{ExternalID: "c"},
				TotalPrice: dec("1"),
				Items:      []domain.OrderItemRecord{{ProductExternalID: "p", Quantity: 1, Price: dec("1")}},
			})
			require.NoError(t, err)
		}

		tenant, err := store.SaveCredentials(ctx, 1, domain.Credentials{ShopDomain: "b.myshopify.com", AccessToken: "tok2"}, true)
		require.NoError(t, err)
		assert.Equal(t, "b.myshopify.com", tenant.ShopDomain)

		customers, err := store.CountCustomers(ctx, 1)
		require.NoError(t, err)
		orders, err := store.CountOrders(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, customers)
		assert.Zero(t, orders)

		otherOrders, err := store.CountOrders(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), otherOrders)
	})

	t.Run("empty credentials disconnect the tenant", func(t *testing.T) {
		store := repositorytest.NewStore(t)
		ctx := context.Background()

		_, err := store.SaveCredentials(ctx, tenantID, domain.Credentials{ShopDomain: "a.myshopify.com", AccessToken: "tok"}, false)
		require.NoError(t, err)
		tenant, err := store.SaveCredentials(ctx, tenantID, domain.Credentials{}, true)
		require.NoError(t, err)
		assert.False(t, tenant.CanIngest())

		stored, err := store.GetTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Empty(t, stored.ShopDomain)
		assert.Empty(t, stored.AccessToken)

		ingestable, err := store.ListIngestableTenants(ctx)
		require.NoError(t, err)
		assert.Empty(t, ingestable)
	})
}

func TestGormStore_Errors_ArePersistenceErrors(t *testing.T) {
	store := repositorytest.NewStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.UpsertCustomer(ctx, tenantID, domain.CustomerRecord{ExternalID: "1"})
	require.Error(t, err)

	var perr *domain.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "upsert customer", perr.Op)
}
