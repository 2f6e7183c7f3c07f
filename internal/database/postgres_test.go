package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/database"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	var cfg database.Config
	assert.False(t, cfg.Enabled())

	cfg = database.Config{Host: "db", Password: "p@ss word"}
	cfg.SetDefaults()
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "host=db port=5432 user=postgres password=p@ss word dbname=curation sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://postgres:p%40ss%20word@db:5432/curation?sslmode=disable", cfg.URL())
}

func TestMigrator_RequiresDatabase(t *testing.T) {
	t.Parallel()

	m := database.NewMigrator(database.Config{}, t.TempDir(), logger.NewNop())
	require.Error(t, m.Up())
	require.Error(t, m.Down(1))
	_, _, err := m.Version()
	require.Error(t, err)
}
