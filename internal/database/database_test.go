// internal/database/database_test.go
package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"beef-back/internal/config"
	"beef-back/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_SQLite(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "beef.db")}

	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, MigrateDB(db))

	assert.True(t, db.Migrator().HasTable(&models.Member{}))
	assert.True(t, db.Migrator().HasTable(&models.Cut{}))
	assert.NoError(t, Ping(context.Background(), db, time.Second))
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := InitDB(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
