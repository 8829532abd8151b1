// Package postgres provides the PostgreSQL + pgvector memory store.
//
// This is the production system of record. Embeddings live in a pgvector
// column and similarity search runs inside the database with the cosine
// distance operator.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// Client implements storage.VectorStore on PostgreSQL with pgvector.
type Client struct {
	db         *sql.DB
	table      string
	dimensions int
}

// Config contains PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// Table is the memories table name (defaults to "memories").
	Table string

	// Dimensions is the embedding vector dimension, required to declare
	// the vector column.
	Dimensions int
}

// NewClient connects to PostgreSQL, enables pgvector, and ensures the
// memories table and its indexes exist.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("postgres: dimensions must be positive")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = "memories"
	}
	c := &Client{db: db, table: table, dimensions: cfg.Dimensions}
	if err := c.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("postgres: create extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			agent_id VARCHAR(255) NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			retention_strength DOUBLE PRECISION DEFAULT 1.0,
			importance_score DOUBLE PRECISION DEFAULT 0.0,
			last_accessed_at TIMESTAMPTZ
		)
	`, c.table, c.dimensions)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_agent ON %s(user_id, agent_id)`, c.table, c.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)`, c.table, c.table),
	}
	for _, index := range indexes {
		if _, err := c.db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("postgres: create index: %w", err)
		}
	}
	return nil
}

// Insert stores a memory.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	metadataJSON, err := json.Marshal(memory.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, agent_id, content, embedding, metadata, created_at, updated_at, retention_strength, importance_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.table)

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx, query,
		memory.ID,
		memory.UserID,
		memory.AgentID,
		memory.Content,
		vectorToString(memory.Embedding),
		string(metadataJSON),
		now,
		now,
		memory.RetentionStrength,
		memory.ImportanceScore,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}
	return nil
}

// Search runs cosine similarity search with pgvector's <=> operator.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.SearchOptions{}
	}

	// $1 is the query vector, filters start at $2.
	whereClause, filterArgs := buildWhereClauseWithOffset(opts.UserID, opts.AgentID, opts.Filters, 2)

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, embedding, metadata,
		       created_at, updated_at, retention_strength, importance_score, last_accessed_at,
		       1 - (embedding <=> $1) AS similarity
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, c.table, whereClause, len(filterArgs)+2)

	args := append([]interface{}{vectorToString(embedding)}, filterArgs...)
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows, true)
		if err != nil {
			return nil, fmt.Errorf("postgres: search: %w", err)
		}
		if memory.Score >= opts.MinScore {
			memories = append(memories, memory)
		}
	}
	return memories, rows.Err()
}

// Get retrieves a memory by ID with optional access control.
func (c *Client) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Memory, error) {
	if opts == nil {
		opts = &storage.GetOptions{}
	}

	whereClause := "WHERE id = $1"
	args := []interface{}{id}
	idx := 2
	if opts.UserID != "" {
		whereClause += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, opts.UserID)
		idx++
	}
	if opts.AgentID != "" {
		whereClause += fmt.Sprintf(" AND agent_id = $%d", idx)
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, embedding, metadata,
		       created_at, updated_at, retention_strength, importance_score, last_accessed_at
		FROM %s
		%s
	`, c.table, whereClause)

	memory, err := scanMemory(c.db.QueryRowContext(ctx, query, args...), false)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	return memory, nil
}

// Update replaces content and embedding, honoring access control.
func (c *Client) Update(ctx context.Context, id int64, content string, embedding []float64, opts *storage.UpdateOptions) (*storage.Memory, error) {
	if opts == nil {
		opts = &storage.UpdateOptions{}
	}

	whereClause := "WHERE id = $4"
	args := []interface{}{content, vectorToString(embedding), time.Now().UTC(), id}
	idx := 5
	if opts.UserID != "" {
		whereClause += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, opts.UserID)
		idx++
	}
	if opts.AgentID != "" {
		whereClause += fmt.Sprintf(" AND agent_id = $%d", idx)
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET content = $1, embedding = $2, updated_at = $3
		%s
	`, c.table, whereClause)

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("postgres: update: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrNotFound
	}

	return c.Get(ctx, id, &storage.GetOptions{UserID: opts.UserID, AgentID: opts.AgentID})
}

// Delete removes a memory by ID, honoring access control.
func (c *Client) Delete(ctx context.Context, id int64, opts *storage.DeleteOptions) error {
	if opts == nil {
		opts = &storage.DeleteOptions{}
	}

	whereClause := "WHERE id = $1"
	args := []interface{}{id}
	idx := 2
	if opts.UserID != "" {
		whereClause += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, opts.UserID)
		idx++
	}
	if opts.AgentID != "" {
		whereClause += fmt.Sprintf(" AND agent_id = $%d", idx)
		args = append(args, opts.AgentID)
	}

	result, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s %s", c.table, whereClause), args...)
	if err != nil {
		return fmt.Errorf("postgres: delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: delete: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetAll lists memories newest first with pagination.
func (c *Client) GetAll(ctx context.Context, opts *storage.GetAllOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.GetAllOptions{}
	}

	whereClause, args := buildWhereClauseWithOffset(opts.UserID, opts.AgentID, nil, 1)
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, embedding, metadata,
		       created_at, updated_at, retention_strength, importance_score, last_accessed_at
		FROM %s
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, c.table, whereClause, len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: getall: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows, false)
		if err != nil {
			return nil, fmt.Errorf("postgres: getall: %w", err)
		}
		memories = append(memories, memory)
	}
	return memories, rows.Err()
}

// DeleteAll removes every memory matching the filters.
func (c *Client) DeleteAll(ctx context.Context, opts *storage.DeleteAllOptions) error {
	if opts == nil {
		opts = &storage.DeleteAllOptions{}
	}
	whereClause, args := buildWhereClauseWithOffset(opts.UserID, opts.AgentID, nil, 1)
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s %s", c.table, whereClause), args...); err != nil {
		return fmt.Errorf("postgres: deleteall: %w", err)
	}
	return nil
}

// Touch records an access, updating last_accessed_at and retention.
func (c *Client) Touch(ctx context.Context, id int64, retention float64) error {
	query := fmt.Sprintf(
		`UPDATE %s SET last_accessed_at = $1, retention_strength = $2 WHERE id = $3`,
		c.table,
	)
	result, err := c.db.ExecContext(ctx, query, time.Now().UTC(), retention, id)
	if err != nil {
		return fmt.Errorf("postgres: touch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: touch: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
