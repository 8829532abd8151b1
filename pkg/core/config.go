package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for an Agentic Memories
// client and, when running as a daemon, the service-side components.
//
// Example:
//
//	config := &core.Config{
//	    LLM: core.LLMConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	        Model:    "gpt-4o-mini",
//	    },
//	    Embedder: core.EmbedderConfig{
//	        Provider:   "openai",
//	        APIKey:     "sk-...",
//	        Model:      "text-embedding-3-small",
//	        Dimensions: 1536,
//	    },
//	    VectorStore: core.VectorStoreConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./memories.db",
//	        },
//	    },
//	}
type Config struct {
	// LLM contains LLM provider configuration.
	LLM LLMConfig `json:"llm"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// VectorStore contains vector store configuration.
	VectorStore VectorStoreConfig `json:"vector_store"`

	// Intelligence contains extraction pipeline configuration (optional).
	Intelligence *IntelligenceConfig `json:"intelligence,omitempty"`

	// Cache contains search cache configuration (optional).
	Cache *CacheConfig `json:"cache,omitempty"`

	// Server contains HTTP server configuration (daemon only).
	Server *ServerConfig `json:"server,omitempty"`

	// Intent contains scheduled intent configuration (daemon only).
	Intent *IntentConfig `json:"intent,omitempty"`

	// Log contains logging configuration (daemon only).
	Log *LogConfig `json:"log,omitempty"`
}

// LLMConfig contains configuration for the LLM provider.
//
// The only concrete provider is "openai"; OpenAI-compatible engines
// (DeepSeek, Ollama, vLLM) are reached by overriding BaseURL.
type LLMConfig struct {
	// Provider is the LLM provider name ("openai").
	Provider string `json:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the chat model name (e.g. "gpt-4o-mini").
	Model string `json:"model"`

	// BaseURL overrides the API endpoint (optional).
	BaseURL string `json:"base_url,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
type EmbedderConfig struct {
	// Provider is the embedding provider name ("openai").
	Provider string `json:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g. "text-embedding-3-small").
	Model string `json:"model"`

	// BaseURL overrides the API endpoint (optional).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the embedding vector dimension (e.g. 1536).
	Dimensions int `json:"dimensions,omitempty"`
}

// VectorStoreConfig contains configuration for the vector store.
//
// Supported providers: sqlite, postgres, mysql, chromem.
type VectorStoreConfig struct {
	// Provider is the vector store provider name.
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, table
	// For PostgreSQL: host, port, user, password, db_name, table, ssl_mode, dimensions
	// For MySQL: host, port, user, password, db_name, table
	// For chromem: path, collection, dimensions, compress
	Config map[string]interface{} `json:"config"`
}

// IntelligenceConfig contains configuration for the extraction pipeline
// and retention management.
type IntelligenceConfig struct {
	// Enabled turns on fact extraction, decisions, and retention.
	Enabled bool `json:"enabled"`

	// DecayRate is the forgetting curve decay rate. Typical 0.05-0.2.
	DecayRate float64 `json:"decay_rate"`

	// ReinforcementFactor controls strengthening on access. Typical 0.2-0.5.
	ReinforcementFactor float64 `json:"reinforcement_factor"`

	// DuplicateThreshold is the similarity threshold for duplicate
	// detection. Typical 0.9-0.98.
	DuplicateThreshold float64 `json:"duplicate_threshold"`

	// WorkingThreshold is the working memory tier boundary. Default 0.3.
	WorkingThreshold float64 `json:"working_threshold,omitempty"`

	// ShortTermThreshold is the short-term tier boundary. Default 0.6.
	ShortTermThreshold float64 `json:"short_term_threshold,omitempty"`

	// LongTermThreshold is the long-term tier boundary. Default 0.8.
	LongTermThreshold float64 `json:"long_term_threshold,omitempty"`

	// InitialRetention is the strength of a new memory. Default 1.0.
	InitialRetention float64 `json:"initial_retention,omitempty"`

	// FallbackToSimpleAdd stores raw content when intelligent processing
	// fails instead of propagating the error. Default false.
	FallbackToSimpleAdd bool `json:"fallback_to_simple_add,omitempty"`
}

// CacheConfig contains configuration for the search cache.
type CacheConfig struct {
	// Provider is "memory", "redis", or "" to disable caching.
	Provider string `json:"provider"`

	// TTL is how long search results stay cached.
	TTL time.Duration `json:"ttl"`

	// RedisAddr is the Redis address (redis provider only).
	RedisAddr string `json:"redis_addr,omitempty"`

	// RedisPassword is the Redis password (redis provider only).
	RedisPassword string `json:"redis_password,omitempty"`

	// RedisDB is the Redis database number (redis provider only).
	RedisDB int `json:"redis_db,omitempty"`
}

// ServerConfig contains configuration for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `json:"addr"`
}

// IntentConfig contains configuration for the intent scheduler.
type IntentConfig struct {
	// Enabled turns on the scheduler.
	Enabled bool `json:"enabled"`

	// PollInterval is how often the scheduler looks for due intents.
	PollInterval time.Duration `json:"poll_interval"`

	// BatchSize caps the number of intents claimed per tick.
	BatchSize int `json:"batch_size"`

	// SQLitePath is the intent database path when the vector store
	// provider has no SQL backing (chromem).
	SQLitePath string `json:"sqlite_path,omitempty"`
}

// LogConfig contains logging configuration for the daemon.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level"`

	// Format is "json" or "console".
	Format string `json:"format"`

	// Env is the deployment environment label (dev, staging, prod).
	Env string `json:"env"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql, chromem)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, etc.
//   - CHROMEM_PATH, CHROMEM_COLLECTION, CHROMEM_COMPRESS
//   - LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - EMBEDDING_API_KEY, EMBEDDING_MODEL, EMBEDDING_BASE_URL, EMBEDDING_DIMENSIONS
//   - INTELLIGENCE_ENABLED, FALLBACK_TO_SIMPLE_ADD
//   - CACHE_PROVIDER, CACHE_TTL, REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//   - SERVER_ADDR
//   - INTENT_ENABLED, INTENT_POLL_INTERVAL, INTENT_BATCH_SIZE, INTENT_SQLITE_PATH
//   - LOG_LEVEL, LOG_FORMAT, LOG_ENV
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")
	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMENSIONS", "1536"))

	vectorStoreConfig := make(map[string]interface{})

	switch provider {
	case "sqlite":
		vectorStoreConfig = map[string]interface{}{
			"db_path": getEnvOrDefault("SQLITE_PATH", "./agenticmem.db"),
			"table":   getEnvOrDefault("SQLITE_TABLE", "memories"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		vectorStoreConfig = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "agenticmem"),
			"table":      getEnvOrDefault("POSTGRES_TABLE", "memories"),
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
			"dimensions": dims,
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		vectorStoreConfig = map[string]interface{}{
			"host":     getEnvOrDefault("MYSQL_HOST", "localhost"),
			"port":     port,
			"user":     getEnvOrDefault("MYSQL_USER", "root"),
			"password": os.Getenv("MYSQL_PASSWORD"),
			"db_name":  getEnvOrDefault("MYSQL_DATABASE", "agenticmem"),
			"table":    getEnvOrDefault("MYSQL_TABLE", "memories"),
		}
	case "chromem":
		vectorStoreConfig = map[string]interface{}{
			"path":       getEnvOrDefault("CHROMEM_PATH", "./agenticmem-chromem"),
			"collection": getEnvOrDefault("CHROMEM_COLLECTION", "memories"),
			"dimensions": dims,
			"compress":   os.Getenv("CHROMEM_COMPRESS") == "true",
		}
	}

	config := &Config{
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", "openai"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		Embedder: EmbedderConfig{
			Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
		},
		VectorStore: VectorStoreConfig{
			Provider: provider,
			Config:   vectorStoreConfig,
		},
	}

	if os.Getenv("INTELLIGENCE_ENABLED") == "true" {
		config.Intelligence = &IntelligenceConfig{
			Enabled:             true,
			DecayRate:           0.1,
			ReinforcementFactor: 0.3,
			DuplicateThreshold:  0.95,
			WorkingThreshold:    0.3,
			ShortTermThreshold:  0.6,
			LongTermThreshold:   0.8,
			InitialRetention:    1.0,
			FallbackToSimpleAdd: os.Getenv("FALLBACK_TO_SIMPLE_ADD") == "true",
		}
	}

	if cacheProvider := os.Getenv("CACHE_PROVIDER"); cacheProvider != "" {
		ttl, err := time.ParseDuration(getEnvOrDefault("CACHE_TTL", "5m"))
		if err != nil {
			ttl = 5 * time.Minute
		}
		redisDB, _ := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
		config.Cache = &CacheConfig{
			Provider:      cacheProvider,
			TTL:           ttl,
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       redisDB,
		}
	}

	config.Server = &ServerConfig{
		Addr: getEnvOrDefault("SERVER_ADDR", ":8080"),
	}

	if os.Getenv("INTENT_ENABLED") == "true" {
		pollInterval, err := time.ParseDuration(getEnvOrDefault("INTENT_POLL_INTERVAL", "30s"))
		if err != nil {
			pollInterval = 30 * time.Second
		}
		batchSize, _ := strconv.Atoi(getEnvOrDefault("INTENT_BATCH_SIZE", "50"))
		config.Intent = &IntentConfig{
			Enabled:      true,
			PollInterval: pollInterval,
			BatchSize:    batchSize,
			SQLitePath:   getEnvOrDefault("INTENT_SQLITE_PATH", "./agenticmem-intents.db"),
		}
	}

	config.Log = &LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
		Env:    getEnvOrDefault("LOG_ENV", "dev"),
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that all required fields are set:
//   - LLM provider must be specified
//   - Embedder provider must be specified
//   - Vector store provider must be specified
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Embedder.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.VectorStore.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
