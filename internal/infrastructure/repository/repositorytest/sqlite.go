// Package repositorytest provides an in-memory relational store for tests.
package repositorytest

import (
	"fmt"
	"testing"

	"shop-insights/internal/infrastructure/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory sqlite database with the schema migrated.
// Each call gets its own named shared-cache database so connections agree on state.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.AutoMigrate(db))
	return db
}

// NewStore returns a GormStore over a fresh in-memory database
func NewStore(t *testing.T) *repository.GormStore {
	t.Helper()
	return repository.NewGormStore(NewSQLiteDB(t))
}
