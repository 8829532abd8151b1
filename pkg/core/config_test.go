package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "sqlite")
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("EMBEDDING_API_KEY", "test-key")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, 1536, cfg.Embedder.Dimensions)
	assert.Equal(t, "sqlite", cfg.VectorStore.Provider)
	assert.Equal(t, "./agenticmem.db", cfg.VectorStore.Config["db_path"])
	assert.Nil(t, cfg.Intelligence, "intelligence stays off unless enabled")
	assert.Nil(t, cfg.Cache)
	require.NotNil(t, cfg.Server)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfigFromEnvPostgres(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("EMBEDDING_DIMENSIONS", "768")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.VectorStore.Provider)
	assert.Equal(t, "db.internal", cfg.VectorStore.Config["host"])
	assert.Equal(t, 5433, cfg.VectorStore.Config["port"])
	assert.Equal(t, "secret", cfg.VectorStore.Config["password"])
	assert.Equal(t, 768, cfg.VectorStore.Config["dimensions"])
}

func TestLoadConfigFromEnvIntelligenceAndIntent(t *testing.T) {
	t.Setenv("INTELLIGENCE_ENABLED", "true")
	t.Setenv("FALLBACK_TO_SIMPLE_ADD", "true")
	t.Setenv("INTENT_ENABLED", "true")
	t.Setenv("INTENT_POLL_INTERVAL", "10s")
	t.Setenv("CACHE_PROVIDER", "memory")
	t.Setenv("CACHE_TTL", "2m")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	require.NotNil(t, cfg.Intelligence)
	assert.True(t, cfg.Intelligence.Enabled)
	assert.True(t, cfg.Intelligence.FallbackToSimpleAdd)
	assert.Equal(t, 0.1, cfg.Intelligence.DecayRate)

	require.NotNil(t, cfg.Intent)
	assert.Equal(t, 10*time.Second, cfg.Intent.PollInterval)
	assert.Equal(t, 50, cfg.Intent.BatchSize)

	require.NotNil(t, cfg.Cache)
	assert.Equal(t, "memory", cfg.Cache.Provider)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"provider": "openai", "api_key": "k", "model": "gpt-4o-mini"},
		"embedder": {"provider": "openai", "api_key": "k", "dimensions": 3},
		"vector_store": {"provider": "sqlite", "config": {"db_path": "./test.db"}}
	}`), 0o644))

	cfg, err := LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Embedder.Dimensions)
	assert.Equal(t, "./test.db", cfg.VectorStore.Config["db_path"])
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := LoadConfigFromJSON(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		LLM:         LLMConfig{Provider: "openai"},
		Embedder:    EmbedderConfig{Provider: "openai"},
		VectorStore: VectorStoreConfig{Provider: "sqlite"},
	}
	assert.NoError(t, valid.Validate())

	for _, breakIt := range []func(*Config){
		func(c *Config) { c.LLM.Provider = "" },
		func(c *Config) { c.Embedder.Provider = "" },
		func(c *Config) { c.VectorStore.Provider = "" },
	} {
		cfg := *valid
		breakIt(&cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	}
}
