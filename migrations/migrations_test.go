package migrations

import (
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_EveryVersionHasUpAndDown(t *testing.T) {
	source, err := iofs.New(FS, ".")
	require.NoError(t, err)
	defer source.Close()

	version, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	for {
		up, _, err := source.ReadUp(version)
		require.NoError(t, err, "up migration %d", version)
		body, err := io.ReadAll(up)
		require.NoError(t, err)
		up.Close()
		assert.NotEmpty(t, body)

		down, _, err := source.ReadDown(version)
		require.NoError(t, err, "down migration %d", version)
		down.Close()

		next, err := source.Next(version)
		if err != nil {
			break
		}
		version = next
	}
}

func TestMigrations_InitCreatesTenantScopedUniqueIndexes(t *testing.T) {
	body, err := FS.ReadFile("000001_init.up.sql")
	require.NoError(t, err)

	for _, index := range []string{
		"idx_customers_tenant_external ON customers (tenant_id, external_id)",
		"idx_products_tenant_external ON products (tenant_id, external_id)",
		"idx_orders_tenant_external ON orders (tenant_id, external_id)",
	} {
		assert.Contains(t, string(body), index)
	}
}
