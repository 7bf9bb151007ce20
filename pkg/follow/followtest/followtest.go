// Package followtest provides relation stores backed by throwaway in-memory
// SQLite databases for tests.
package followtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/follow-graph/pkg/database"
	"github.com/weiawesome/follow-graph/pkg/follow/gormstore"
)

// NewDB opens a migrated in-memory database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewStore returns a relation store over NewDB.
func NewStore(t testing.TB) *gormstore.Store {
	t.Helper()
	return gormstore.New(NewDB(t))
}
