// Package chromem provides an embedded, file-backed memory store built
// on chromem-go. It needs no external database process, which makes it
// the default backend for local development and tests.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// reserved metadata keys used for system fields. User metadata keys
// that collide with these are rejected on insert.
var reservedKeys = map[string]bool{
	"user_id":            true,
	"agent_id":           true,
	"created_at":         true,
	"updated_at":         true,
	"retention_strength": true,
	"importance_score":   true,
	"last_accessed_at":   true,
}

// Client implements storage.VectorStore on an embedded chromem-go
// collection.
type Client struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection
	name       string
	dimensions int
}

// Config contains embedded store settings.
type Config struct {
	// Path is the on-disk database directory.
	Path string

	// Collection is the collection name (defaults to "memories").
	Collection string

	// Dimensions is the embedding vector dimension.
	Dimensions int

	// Compress enables gzip compression of persisted documents.
	Compress bool
}

// NewClient opens (or creates) the persistent database and collection.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("chromem: dimensions must be positive")
	}

	db, err := chromemgo.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("chromem: open: %w", err)
	}

	name := cfg.Collection
	if name == "" {
		name = "memories"
	}
	collection, err := db.GetOrCreateCollection(name, nil, rejectEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("chromem: create collection: %w", err)
	}

	return &Client{db: db, collection: collection, name: name, dimensions: cfg.Dimensions}, nil
}

// rejectEmbeddingFunc guards against chromem computing embeddings on
// its own. Every document and query carries a precomputed embedding.
func rejectEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("chromem: embeddings must be precomputed")
}

// Insert stores a memory.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	for key := range memory.Metadata {
		if reservedKeys[key] {
			return fmt.Errorf("chromem: insert: metadata key %q is reserved", key)
		}
	}

	doc := chromemgo.Document{
		ID:        strconv.FormatInt(memory.ID, 10),
		Content:   memory.Content,
		Embedding: toFloat32(memory.Embedding),
		Metadata:  encodeMetadata(memory),
	}
	if err := c.collection.AddDocuments(ctx, []chromemgo.Document{doc}, 1); err != nil {
		return fmt.Errorf("chromem: insert: %w", err)
	}
	return nil
}

// Search runs cosine similarity search over the collection.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.SearchOptions{}
	}

	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 || limit > count {
		limit = count
	}

	results, err := c.collection.QueryEmbedding(ctx, toFloat32(embedding), limit, whereFilter(opts.UserID, opts.AgentID, opts.Filters), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: search: %w", err)
	}

	var memories []*storage.Memory
	for _, r := range results {
		memory, err := resultToMemory(r.ID, r.Content, r.Embedding, r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("chromem: search: %w", err)
		}
		memory.Score = float64(r.Similarity)
		if memory.Score >= opts.MinScore {
			memories = append(memories, memory)
		}
	}
	return memories, nil
}

// Get retrieves a memory by ID with optional access control.
func (c *Client) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Memory, error) {
	if opts == nil {
		opts = &storage.GetOptions{}
	}

	doc, err := c.collection.GetByID(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, storage.ErrNotFound
	}
	memory, err := resultToMemory(doc.ID, doc.Content, doc.Embedding, doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("chromem: get: %w", err)
	}
	if opts.UserID != "" && memory.UserID != opts.UserID {
		return nil, storage.ErrNotFound
	}
	if opts.AgentID != "" && memory.AgentID != opts.AgentID {
		return nil, storage.ErrNotFound
	}
	return memory, nil
}

// Update replaces content and embedding by rewriting the document.
func (c *Client) Update(ctx context.Context, id int64, content string, embedding []float64, opts *storage.UpdateOptions) (*storage.Memory, error) {
	if opts == nil {
		opts = &storage.UpdateOptions{}
	}

	memory, err := c.Get(ctx, id, &storage.GetOptions{UserID: opts.UserID, AgentID: opts.AgentID})
	if err != nil {
		return nil, err
	}

	memory.Content = content
	memory.Embedding = embedding
	memory.UpdatedAt = time.Now().UTC()

	doc := chromemgo.Document{
		ID:        strconv.FormatInt(memory.ID, 10),
		Content:   memory.Content,
		Embedding: toFloat32(memory.Embedding),
		Metadata:  encodeMetadata(memory),
	}
	if err := c.collection.AddDocuments(ctx, []chromemgo.Document{doc}, 1); err != nil {
		return nil, fmt.Errorf("chromem: update: %w", err)
	}
	return memory, nil
}

// Delete removes a memory by ID, honoring access control.
func (c *Client) Delete(ctx context.Context, id int64, opts *storage.DeleteOptions) error {
	if opts == nil {
		opts = &storage.DeleteOptions{}
	}

	if _, err := c.Get(ctx, id, &storage.GetOptions{UserID: opts.UserID, AgentID: opts.AgentID}); err != nil {
		return err
	}
	if err := c.collection.Delete(ctx, nil, nil, strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("chromem: delete: %w", err)
	}
	return nil
}

// GetAll lists memories newest first with pagination.
func (c *Client) GetAll(ctx context.Context, opts *storage.GetAllOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.GetAllOptions{}
	}

	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}

	// chromem has no listing API, so probe with a unit vector and let
	// the metadata filter select the rows. nResults is clamped to the
	// filtered document count by the library.
	probe := make([]float32, c.dimensions)
	probe[0] = 1
	results, err := c.collection.QueryEmbedding(ctx, probe, count, whereFilter(opts.UserID, opts.AgentID, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: getall: %w", err)
	}

	var memories []*storage.Memory
	for _, r := range results {
		memory, err := resultToMemory(r.ID, r.Content, r.Embedding, r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("chromem: getall: %w", err)
		}
		memories = append(memories, memory)
	}

	sort.Slice(memories, func(i, j int) bool {
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(memories) {
			return nil, nil
		}
		memories = memories[opts.Offset:]
	}
	if opts.Limit > 0 && len(memories) > opts.Limit {
		memories = memories[:opts.Limit]
	}
	return memories, nil
}

// DeleteAll removes every memory matching the filters.
func (c *Client) DeleteAll(ctx context.Context, opts *storage.DeleteAllOptions) error {
	if opts == nil {
		opts = &storage.DeleteAllOptions{}
	}

	where := whereFilter(opts.UserID, opts.AgentID, nil)
	if len(where) == 0 {
		// No filter means the whole collection goes.
		if err := c.db.DeleteCollection(c.name); err != nil {
			return fmt.Errorf("chromem: deleteall: %w", err)
		}
		collection, err := c.db.GetOrCreateCollection(c.name, nil, rejectEmbeddingFunc)
		if err != nil {
			return fmt.Errorf("chromem: deleteall: %w", err)
		}
		c.collection = collection
		return nil
	}

	if c.collection.Count() == 0 {
		return nil
	}
	if err := c.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("chromem: deleteall: %w", err)
	}
	return nil
}

// Touch records an access, updating last_accessed_at and retention.
func (c *Client) Touch(ctx context.Context, id int64, retention float64) error {
	memory, err := c.Get(ctx, id, nil)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	memory.LastAccessedAt = &now
	memory.RetentionStrength = retention

	doc := chromemgo.Document{
		ID:        strconv.FormatInt(memory.ID, 10),
		Content:   memory.Content,
		Embedding: toFloat32(memory.Embedding),
		Metadata:  encodeMetadata(memory),
	}
	if err := c.collection.AddDocuments(ctx, []chromemgo.Document{doc}, 1); err != nil {
		return fmt.Errorf("chromem: touch: %w", err)
	}
	return nil
}

// Close is a no-op; the persistent database flushes on every write.
func (c *Client) Close() error {
	return nil
}
