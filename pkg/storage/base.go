// Package storage defines the vector store abstraction used by the Agentic
// Memories service.
//
// It declares the VectorStore interface that every backend (SQLite,
// PostgreSQL, MySQL, chromem) must satisfy, along with the stored memory
// record and per-operation option structs.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a memory does not exist or the caller's
// access-control options do not match the stored record.
var ErrNotFound = errors.New("memory not found")

// Memory is a single memory record as persisted by a vector store.
//
// The type is defined here rather than in core to keep the dependency
// direction storage <- core.
type Memory struct {
	// ID is the snowflake identifier assigned by the client.
	ID int64

	// UserID identifies the user who owns this memory.
	UserID string

	// AgentID identifies the agent that produced this memory (optional).
	AgentID string

	// Content is the memory text.
	Content string

	// Embedding is the dense vector used for similarity search.
	Embedding []float64

	// Metadata holds additional structured attributes, used for filtering.
	Metadata map[string]interface{}

	// CreatedAt is when the memory was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the memory was last modified.
	UpdatedAt time.Time

	// RetentionStrength is the current retention strength (0.0-1.0) managed
	// by the retention pipeline.
	RetentionStrength float64

	// ImportanceScore is the evaluated importance (0.0-1.0) of the memory.
	ImportanceScore float64

	// LastAccessedAt is when the memory was last read (nil if never).
	LastAccessedAt *time.Time

	// Score is the similarity score attached by Search results.
	Score float64
}

// VectorStore is the interface implemented by all memory storage backends.
type VectorStore interface {
	// Insert stores a new memory.
	Insert(ctx context.Context, memory *Memory) error

	// Search returns memories similar to the query embedding, sorted by
	// descending similarity. Options narrow the candidate set by user,
	// agent, metadata filters, and minimum score.
	Search(ctx context.Context, embedding []float64, opts *SearchOptions) ([]*Memory, error)

	// Get retrieves a memory by ID. When opts carries a UserID or AgentID
	// the lookup fails closed with ErrNotFound on mismatch.
	Get(ctx context.Context, id int64, opts *GetOptions) (*Memory, error)

	// Update replaces the content and embedding of an existing memory,
	// honoring the same access-control semantics as Get.
	Update(ctx context.Context, id int64, content string, embedding []float64, opts *UpdateOptions) (*Memory, error)

	// Delete removes a memory by ID, honoring access-control options.
	Delete(ctx context.Context, id int64, opts *DeleteOptions) error

	// GetAll lists memories filtered by user/agent with pagination.
	GetAll(ctx context.Context, opts *GetAllOptions) ([]*Memory, error)

	// DeleteAll removes every memory matching the filter options.
	DeleteAll(ctx context.Context, opts *DeleteAllOptions) error

	// Touch records an access to a memory, updating last_accessed_at and
	// the retention strength computed by the caller.
	Touch(ctx context.Context, id int64, retention float64) error

	// Close releases the backend's resources.
	Close() error
}

// SearchOptions narrows a similarity search.
type SearchOptions struct {
	// UserID restricts results to a single user.
	UserID string

	// AgentID restricts results to a single agent.
	AgentID string

	// Limit caps the number of results (0 means backend default).
	Limit int

	// MinScore drops results below this similarity score.
	MinScore float64

	// Query carries the original query text for backends that can combine
	// keyword and vector retrieval.
	Query string

	// Filters are exact-match metadata filters.
	Filters map[string]interface{}
}

// GetOptions carries access-control restrictions for Get.
type GetOptions struct {
	UserID  string
	AgentID string
}

// UpdateOptions carries access-control restrictions for Update.
type UpdateOptions struct {
	UserID  string
	AgentID string
}

// DeleteOptions carries access-control restrictions for Delete.
type DeleteOptions struct {
	UserID  string
	AgentID string
}

// GetAllOptions filters and paginates GetAll.
type GetAllOptions struct {
	UserID  string
	AgentID string

	// Limit caps the page size (0 means no limit).
	Limit int

	// Offset skips results for pagination.
	Offset int
}

// DeleteAllOptions filters DeleteAll. Empty options delete everything.
type DeleteAllOptions struct {
	UserID  string
	AgentID string
}
