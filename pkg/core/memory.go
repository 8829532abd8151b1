package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/agenticmem/agenticmem-go/pkg/cache"
	"github.com/agenticmem/agenticmem-go/pkg/embedder"
	openaiEmbedder "github.com/agenticmem/agenticmem-go/pkg/embedder/openai"
	"github.com/agenticmem/agenticmem-go/pkg/intelligence"
	"github.com/agenticmem/agenticmem-go/pkg/llm"
	openaiLLM "github.com/agenticmem/agenticmem-go/pkg/llm/openai"
	"github.com/agenticmem/agenticmem-go/pkg/storage"
	chromemStore "github.com/agenticmem/agenticmem-go/pkg/storage/chromem"
	mysqlStore "github.com/agenticmem/agenticmem-go/pkg/storage/mysql"
	postgresStore "github.com/agenticmem/agenticmem-go/pkg/storage/postgres"
	sqliteStore "github.com/agenticmem/agenticmem-go/pkg/storage/sqlite"
	"github.com/agenticmem/agenticmem-go/pkg/telemetry"
)

// Client is the Agentic Memories client.
//
// It coordinates the vector store, the LLM and embedding providers, the
// extraction pipeline, and the optional search cache. All methods are
// safe for concurrent use.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, err := core.NewClient(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	memory, err := client.Add(ctx, "User prefers dark roast coffee",
//	    core.WithUserID("user_001"))
type Client struct {
	config   *Config
	storage  storage.VectorStore
	llm      llm.Provider
	embedder embedder.Provider
	cache    cache.Cache

	intelligentManager *intelligence.Manager
	dedupManager       *intelligence.DedupManager

	snowflakeNode *snowflake.Node
	logger        *zap.Logger
	metrics       *telemetry.Metrics

	mu sync.RWMutex
}

// ClientOption customizes client construction, mostly to inject
// components built elsewhere (daemon wiring, tests).
type ClientOption func(*Client)

// WithLogger sets the structured logger. Defaults to a no-op logger so
// library use stays quiet.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientMetrics sets the metrics collectors shared with the daemon.
func WithClientMetrics(m *telemetry.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClientCache sets the search cache, overriding the configured one.
func WithClientCache(cc cache.Cache) ClientOption {
	return func(c *Client) {
		c.cache = cc
	}
}

// WithVectorStore sets the vector store, overriding the configured one.
func WithVectorStore(store storage.VectorStore) ClientOption {
	return func(c *Client) {
		c.storage = store
	}
}

// WithLLMProvider sets the LLM provider, overriding the configured one.
func WithLLMProvider(provider llm.Provider) ClientOption {
	return func(c *Client) {
		c.llm = provider
	}
}

// WithEmbedderProvider sets the embedding provider, overriding the
// configured one.
func WithEmbedderProvider(provider embedder.Provider) ClientOption {
	return func(c *Client) {
		c.embedder = provider
	}
}

// NewClient creates a new Agentic Memories client.
//
// The client validates the configuration, connects the vector store,
// and initializes the LLM and embedding providers. When intelligence is
// enabled it also builds the extraction pipeline and duplicate manager.
//
// Parameters:
//   - cfg: Client configuration
//   - opts: Optional component overrides
//
// Returns the client, or an error if any component fails to initialize.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, NewMemoryError("NewClient", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.storage == nil {
		store, err := initStorage(cfg.VectorStore, cfg.Embedder.Dimensions)
		if err != nil {
			return nil, err
		}
		client.storage = store
	}

	if client.llm == nil {
		provider, err := initLLM(cfg.LLM)
		if err != nil {
			return nil, err
		}
		client.llm = provider
	}

	if client.embedder == nil {
		provider, err := initEmbedder(cfg.Embedder)
		if err != nil {
			return nil, err
		}
		client.embedder = provider
	}

	if client.cache == nil && cfg.Cache != nil {
		cc, err := initCache(cfg.Cache)
		if err != nil {
			return nil, err
		}
		client.cache = cc
	}

	if client.metrics == nil {
		client.metrics = telemetry.NewMetrics()
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}
	client.snowflakeNode = node

	if cfg.Intelligence != nil && cfg.Intelligence.Enabled {
		client.intelligentManager = intelligence.NewManager(client.llm, &intelligence.RetentionConfig{
			DecayRate:           cfg.Intelligence.DecayRate,
			ReinforcementFactor: cfg.Intelligence.ReinforcementFactor,
			WorkingThreshold:    cfg.Intelligence.WorkingThreshold,
			ShortTermThreshold:  cfg.Intelligence.ShortTermThreshold,
			LongTermThreshold:   cfg.Intelligence.LongTermThreshold,
			InitialRetention:    cfg.Intelligence.InitialRetention,
		})

		threshold := cfg.Intelligence.DuplicateThreshold
		if threshold == 0 {
			threshold = 0.95
		}
		client.dedupManager = intelligence.NewDedupManager(client.storage, threshold)
	}

	return client, nil
}

// Add stores a new memory.
//
// With WithInfer(true) and intelligence enabled, the content runs
// through the intelligent pipeline (fact extraction, decisions, dedup)
// and the first resulting memory is returned. Otherwise the content is
// embedded and stored verbatim.
//
// Parameters:
//   - ctx: Context for cancellation
//   - content: Memory content
//   - opts: Optional parameters (UserID, AgentID, Metadata, Infer, ...)
//
// Returns the stored Memory, or an error.
//
// Example:
//
//	memory, err := client.Add(ctx, "User is allergic to peanuts",
//	    core.WithUserID("user_001"),
//	    core.WithMetadata(map[string]interface{}{"source": "intake_form"}),
//	)
func (c *Client) Add(ctx context.Context, content string, opts ...AddOption) (*Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewMemoryError("Add", err)
	}
	if content == "" {
		return nil, NewMemoryError("Add", ErrInvalidInput)
	}

	addOpts := applyAddOptions(opts)

	// Intelligent path delegates to IntelligentAdd and surfaces the
	// first stored memory for API compatibility.
	if addOpts.Infer && c.intelligentManager != nil {
		result, err := c.IntelligentAdd(ctx, content, opts...)
		if err != nil {
			return nil, err
		}
		for _, r := range result.Results {
			if r.Event == intelligence.EventAdd || r.Event == intelligence.EventUpdate {
				return c.Get(ctx, r.ID)
			}
		}
		return nil, NewMemoryError("Add", ErrDuplicateMemory)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addLocked(ctx, content, addOpts)
}

// addLocked stores content verbatim. The caller holds the write lock.
func (c *Client) addLocked(ctx context.Context, content string, addOpts *AddOptions) (*Memory, error) {
	embedding, err := c.embedder.Embed(ctx, content)
	if err != nil {
		return nil, NewMemoryError("Add", err)
	}

	// Basic duplicate handling without the full pipeline: merge into
	// the existing memory when similarity crosses the threshold.
	if addOpts.Infer && c.dedupManager != nil && c.intelligentManager == nil {
		isDup, existingID, err := c.dedupManager.CheckDuplicate(ctx, embedding, addOpts.UserID, addOpts.AgentID)
		if err != nil {
			return nil, NewMemoryError("Add", err)
		}
		if isDup {
			merged, err := c.dedupManager.MergeMemories(ctx, existingID, content, embedding)
			if err != nil {
				return nil, NewMemoryError("Add", err)
			}
			return fromStorageMemory(merged), nil
		}
	}

	metadata := copyMetadata(addOpts.Metadata)
	addMetadataFields(metadata, addOpts)

	memory := &Memory{
		ID:                c.snowflakeNode.Generate().Int64(),
		UserID:            addOpts.UserID,
		AgentID:           addOpts.AgentID,
		Content:           content,
		Embedding:         embedding,
		Metadata:          metadata,
		RetentionStrength: 1.0,
	}

	if c.intelligentManager != nil {
		memory.RetentionStrength = c.intelligentManager.Retention().InitialRetention()
		memory.ImportanceScore = c.intelligentManager.EvaluateImportance(ctx, content, metadata)
	}

	if err := c.storage.Insert(ctx, toStorageMemory(memory)); err != nil {
		c.metrics.MemoriesAdded.WithLabelValues("error").Inc()
		return nil, NewMemoryError("Add", err)
	}
	c.metrics.MemoriesAdded.WithLabelValues("added").Inc()

	c.invalidateSearchCache(ctx, addOpts.UserID)

	return memory, nil
}

// Search searches memories by semantic similarity.
//
// The method:
//  1. Checks the search cache (when configured)
//  2. Generates an embedding for the query
//  3. Runs vector similarity search in the store
//  4. Reinforces and re-ranks results when intelligence is enabled
//
// Results can be filtered by UserID, AgentID, and metadata filters.
//
// Parameters:
//   - ctx: Context for cancellation
//   - query: Search query text
//   - opts: Optional parameters (UserID, AgentID, Limit, MinScore, Filters)
//
// Returns memories sorted by relevance (highest first), or an error.
//
// Example:
//
//	results, err := client.Search(ctx, "coffee preferences",
//	    core.WithUserIDForSearch("user_001"),
//	    core.WithLimit(10),
//	    core.WithMinScore(0.7),
//	)
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) ([]*Memory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	searchOpts := applySearchOptions(opts)

	cacheKey := searchCacheKey(query, searchOpts)
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached []*Memory
			if err := json.Unmarshal(data, &cached); err == nil {
				c.metrics.SearchCache.WithLabelValues("hit").Inc()
				return cached, nil
			}
		}
		c.metrics.SearchCache.WithLabelValues("miss").Inc()
	}

	queryEmbedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewMemoryError("Search", err)
	}

	storageOpts := &storage.SearchOptions{
		UserID:   searchOpts.UserID,
		AgentID:  searchOpts.AgentID,
		Limit:    searchOpts.Limit,
		MinScore: searchOpts.MinScore,
		Query:    query,
		Filters:  searchOpts.Filters,
	}

	memories, err := c.storage.Search(ctx, queryEmbedding, storageOpts)
	if err != nil {
		return nil, NewMemoryError("Search", err)
	}

	if c.intelligentManager != nil {
		retention := c.intelligentManager.Retention()
		for _, m := range memories {
			strength := retention.Reinforce(m.RetentionStrength)
			if err := c.storage.Touch(ctx, m.ID, strength); err != nil {
				c.logger.Warn("failed to reinforce memory",
					zap.Int64("memory_id", m.ID), zap.Error(err))
				continue
			}
			m.RetentionStrength = strength
		}
		memories = c.intelligentManager.RankSearchResults(memories, query)
	}

	coreMemories := fromStorageMemories(memories)

	if c.cache != nil {
		if data, err := json.Marshal(coreMemories); err == nil {
			_ = c.cache.Set(ctx, cacheKey, data, 0)
		}
	}

	return coreMemories, nil
}

// Get retrieves a memory by its ID with optional access control.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Memory ID
//   - opts: Optional access control (UserID, AgentID)
//
// Returns the Memory if found and access is granted, or an error.
//
// Example:
//
//	memory, err := client.Get(ctx, memoryID, core.WithUserIDForGet("user_001"))
func (c *Client) Get(ctx context.Context, id int64, opts ...GetOption) (*Memory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	getOpts := applyGetOptions(opts)

	memory, err := c.storage.Get(ctx, id, &storage.GetOptions{
		UserID:  getOpts.UserID,
		AgentID: getOpts.AgentID,
	})
	if err != nil {
		return nil, NewMemoryError("Get", err)
	}

	return fromStorageMemory(memory), nil
}

// Update updates an existing memory's content with optional access control.
//
// A new embedding is generated for the updated content.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Memory ID
//   - content: New content
//   - opts: Optional access control (UserID, AgentID)
//
// Returns the updated Memory, or an error if access is denied.
func (c *Client) Update(ctx context.Context, id int64, content string, opts ...UpdateOption) (*Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	updateOpts := applyUpdateOptions(opts)

	embedding, err := c.embedder.Embed(ctx, content)
	if err != nil {
		return nil, NewMemoryError("Update", err)
	}

	memory, err := c.storage.Update(ctx, id, content, embedding, &storage.UpdateOptions{
		UserID:  updateOpts.UserID,
		AgentID: updateOpts.AgentID,
	})
	if err != nil {
		return nil, NewMemoryError("Update", err)
	}
	c.metrics.MemoriesAdded.WithLabelValues("updated").Inc()

	c.invalidateSearchCache(ctx, memory.UserID)

	return fromStorageMemory(memory), nil
}

// Delete deletes a memory by its ID with optional access control.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Memory ID
//   - opts: Optional access control (UserID, AgentID)
//
// Returns an error if deletion fails or access is denied.
func (c *Client) Delete(ctx context.Context, id int64, opts ...DeleteOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleteOpts := applyDeleteOptions(opts)

	if err := c.storage.Delete(ctx, id, &storage.DeleteOptions{
		UserID:  deleteOpts.UserID,
		AgentID: deleteOpts.AgentID,
	}); err != nil {
		return NewMemoryError("Delete", err)
	}
	c.metrics.MemoriesAdded.WithLabelValues("deleted").Inc()

	c.invalidateSearchCache(ctx, deleteOpts.UserID)

	return nil
}

// GetAll retrieves memories with optional filtering and pagination.
//
// Parameters:
//   - ctx: Context for cancellation
//   - opts: Optional parameters (UserID, AgentID, Limit, Offset)
//
// Returns the matching memories, or an error.
//
// Example:
//
//	memories, err := client.GetAll(ctx,
//	    core.WithUserIDForGetAll("user_001"),
//	    core.WithLimitForGetAll(100),
//	)
func (c *Client) GetAll(ctx context.Context, opts ...GetAllOption) ([]*Memory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	getAllOpts := applyGetAllOptions(opts)

	memories, err := c.storage.GetAll(ctx, &storage.GetAllOptions{
		UserID:  getAllOpts.UserID,
		AgentID: getAllOpts.AgentID,
		Limit:   getAllOpts.Limit,
		Offset:  getAllOpts.Offset,
	})
	if err != nil {
		return nil, NewMemoryError("GetAll", err)
	}

	return fromStorageMemories(memories), nil
}

// DeleteAll deletes all memories matching the given filters.
//
// With no filters it deletes every memory, use with caution.
//
// Parameters:
//   - ctx: Context for cancellation
//   - opts: Optional parameters (UserID, AgentID)
//
// Returns an error if deletion fails.
func (c *Client) DeleteAll(ctx context.Context, opts ...DeleteAllOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleteAllOpts := applyDeleteAllOptions(opts)

	if err := c.storage.DeleteAll(ctx, &storage.DeleteAllOptions{
		UserID:  deleteAllOpts.UserID,
		AgentID: deleteAllOpts.AgentID,
	}); err != nil {
		return NewMemoryError("DeleteAll", err)
	}

	c.invalidateSearchCache(ctx, deleteAllOpts.UserID)

	return nil
}

// Intelligence returns the intelligence manager, or nil when disabled.
func (c *Client) Intelligence() *intelligence.Manager {
	return c.intelligentManager
}

// Storage returns the underlying vector store, used by the daemon to
// share the store with the intent scheduler.
func (c *Client) Storage() storage.VectorStore {
	return c.storage
}

// Embedder returns the embedding provider.
func (c *Client) Embedder() embedder.Provider {
	return c.embedder
}

// Close closes the client and releases all resources.
//
// Returns the first error encountered during cleanup.
//
// Example:
//
//	defer client.Close()
func (c *Client) Close() error {
	var errs []error

	if c.storage != nil {
		if err := c.storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.llm != nil {
		if err := c.llm.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// invalidateSearchCache drops cached search results for a user scope.
// Cache errors are logged, never surfaced.
func (c *Client) invalidateSearchCache(ctx context.Context, userID string) {
	if c.cache == nil {
		return
	}
	prefix := "search:" + userID + ":"
	if userID == "" {
		prefix = "search:"
	}
	if err := c.cache.DeletePrefix(ctx, prefix); err != nil {
		c.logger.Warn("failed to invalidate search cache", zap.Error(err))
	}
}

// searchCacheKey builds a deterministic cache key from the query and
// its options. The user ID stays in the prefix so writes can invalidate
// one user's entries.
func searchCacheKey(query string, opts *SearchOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%f", query, opts.AgentID, opts.Limit, opts.MinScore)
	if len(opts.Filters) > 0 {
		if data, err := json.Marshal(opts.Filters); err == nil {
			h.Write(data)
		}
	}
	return "search:" + opts.UserID + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}

// initStorage initializes the vector store backend.
func initStorage(cfg VectorStoreConfig, dimensions int) (storage.VectorStore, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			Path:  configString(cfg.Config, "db_path"),
			Table: configString(cfg.Config, "table"),
		})
	case "postgres":
		dims := configInt(cfg.Config, "dimensions")
		if dims == 0 {
			dims = dimensions
		}
		return postgresStore.NewClient(&postgresStore.Config{
			Host:       configString(cfg.Config, "host"),
			Port:       configInt(cfg.Config, "port"),
			User:       configString(cfg.Config, "user"),
			Password:   configString(cfg.Config, "password"),
			DBName:     configString(cfg.Config, "db_name"),
			SSLMode:    configString(cfg.Config, "ssl_mode"),
			Table:      configString(cfg.Config, "table"),
			Dimensions: dims,
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:     configString(cfg.Config, "host"),
			Port:     configInt(cfg.Config, "port"),
			User:     configString(cfg.Config, "user"),
			Password: configString(cfg.Config, "password"),
			DBName:   configString(cfg.Config, "db_name"),
			Table:    configString(cfg.Config, "table"),
		})
	case "chromem":
		dims := configInt(cfg.Config, "dimensions")
		if dims == 0 {
			dims = dimensions
		}
		return chromemStore.NewClient(&chromemStore.Config{
			Path:       configString(cfg.Config, "path"),
			Collection: configString(cfg.Config, "collection"),
			Dimensions: dims,
			Compress:   configBool(cfg.Config, "compress"),
		})
	default:
		return nil, NewMemoryError("initStorage", ErrInvalidConfig)
	}
}

// initLLM initializes the LLM provider.
func initLLM(cfg LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, NewMemoryError("initLLM", ErrInvalidConfig)
	}
}

// initEmbedder initializes the embedding provider.
func initEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, NewMemoryError("initEmbedder", ErrInvalidConfig)
	}
}

// initCache initializes the search cache backend.
func initCache(cfg *CacheConfig) (cache.Cache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	switch cfg.Provider {
	case "memory":
		return cache.NewMemoryCache(ttl), nil
	case "redis":
		return cache.NewRedisCache(context.Background(), &cache.RedisConfig{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			DefaultTTL: ttl,
		})
	default:
		return nil, NewMemoryError("initCache", ErrInvalidConfig)
	}
}

// configString reads a string value from a provider config map.
func configString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// configInt reads an int value from a provider config map. JSON numbers
// arrive as float64 and are accepted too.
func configInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// configBool reads a bool value from a provider config map.
func configBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}
