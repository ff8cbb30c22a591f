package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Vector.Adapter)
	assert.Equal(t, 800, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 160, cfg.Ingestion.ChunkOverlap)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
database:
  driver: postgres
  postgres:
    dsn: postgres://localhost:5432/contracts
vector:
  adapter: pgvector
  dimension: 768
cache:
  driver: redis
  ttl: 30m
retrieval:
  financial_budget: 6000
  general_neighbor_radius: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "pgvector", cfg.Vector.Adapter)
	assert.Equal(t, 768, cfg.Vector.Dimension)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 6000, cfg.Retrieval.FinancialBudget)
	assert.Equal(t, 3, cfg.Retrieval.GeneralNeighborRadius)
	// Untouched sections keep defaults.
	assert.Equal(t, 800, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 2, cfg.Retrieval.AmountNeighborRadius)
	assert.Equal(t, 1, cfg.Retrieval.KeywordNeighborRadius)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:/tmp/test-contracts.db")
	t.Setenv("EMBEDDING_MODEL", "intfloat/e5-base-v2")
	t.Setenv("RERANKER_BASE_URL", "http://localhost:9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test-contracts.db", cfg.Database.SQLite.Path)
	assert.Equal(t, "intfloat/e5-base-v2", cfg.Embedding.Model)
	assert.True(t, cfg.Reranker.Enabled)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad database driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"bad vector adapter", func(c *Config) { c.Vector.Adapter = "faiss" }},
		{"pgvector without postgres", func(c *Config) { c.Vector.Adapter = "pgvector" }},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"overlap >= chunk size", func(c *Config) { c.Ingestion.ChunkOverlap = c.Ingestion.ChunkSize }},
		{"zero pool size", func(c *Config) { c.Retrieval.GeneralPoolSize = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
