// Package mysql provides a MySQL-backed memory store.
//
// Embeddings are stored as JSON arrays and similarity is computed in
// process after a filtered scan, so this backend works on stock MySQL
// without any vector extension. Prefer the postgres backend when
// database-side similarity search is needed.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// Client implements storage.VectorStore on MySQL.
type Client struct {
	db    *sql.DB
	table string
}

// Config contains MySQL connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// Table is the memories table name (defaults to "memories").
	Table string
}

// NewClient connects to MySQL and ensures the memories table exists.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = "memories"
	}
	c := &Client{db: db, table: table}
	if err := c.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			agent_id VARCHAR(128) NOT NULL DEFAULT '',
			content LONGTEXT NOT NULL,
			embedding JSON NOT NULL,
			metadata JSON,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			retention_strength DOUBLE DEFAULT 1.0,
			importance_score DOUBLE DEFAULT 0.0,
			last_accessed_at TIMESTAMP NULL,
			INDEX idx_user_agent (user_id, agent_id)
		)
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("mysql: create table: %w", err)
	}
	return nil
}

// Insert stores a memory.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	embeddingJSON, err := json.Marshal(memory.Embedding)
	if err != nil {
		return fmt.Errorf("mysql: insert: %w", err)
	}
	metadataJSON, err := json.Marshal(memory.Metadata)
	if err != nil {
		return fmt.Errorf("mysql: insert: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, agent_id, content, embedding, metadata, created_at, updated_at, retention_strength, importance_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.table)

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx, query,
		memory.ID,
		memory.UserID,
		memory.AgentID,
		memory.Content,
		string(embeddingJSON),
		string(metadataJSON),
		now,
		now,
		memory.RetentionStrength,
		memory.ImportanceScore,
	)
	if err != nil {
		return fmt.Errorf("mysql: insert: %w", err)
	}
	return nil
}

// Search scans candidate rows and ranks them by cosine similarity.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.SearchOptions{}
	}

	whereClause, args := buildWhereClause(opts.UserID, opts.AgentID, opts.Filters)
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, embedding, metadata,
		       created_at, updated_at, retention_strength, importance_score, last_accessed_at
		FROM %s
		%s
	`, c.table, whereClause)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("mysql: search: %w", err)
		}
		memory.Score = cosineSimilarity(embedding, memory.Embedding)
		if memory.Score >= opts.MinScore {
			memories = append(memories, memory)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: search: %w", err)
	}

	sort.Slice(memories, func(i, j int) bool {
		return memories[i].Score > memories[j].Score
	})
	if opts.Limit > 0 && len(memories) > opts.Limit {
		memories = memories[:opts.Limit]
	}
	return memories, nil
}

// Get retrieves a memory by ID with optional access control.
func (c *Client) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Memory, error) {
	if opts == nil {
		opts = &storage.GetOptions{}
	}

	whereClause := "WHERE id = ?"
	args := []interface{}{id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		whereClause += " AND agent_id = ?"
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, embedding, metadata,
		       created_at, updated_at, retention_strength, importance_score, last_accessed_at
		FROM %s
		%s
	`, c.table, whereClause)

	memory, err := scanMemory(c.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: get: %w", err)
	}
	return memory, nil
}

// Update replaces content and embedding, honoring access control.
func (c *Client) Update(ctx context.Context, id int64, content string, embedding []float64, opts *storage.UpdateOptions) (*storage.Memory, error) {
	if opts == nil {
		opts = &storage.UpdateOptions{}
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("mysql: update: %w", err)
	}

	whereClause := "WHERE id = ?"
	args := []interface{}{content, string(embeddingJSON), time.Now().UTC(), id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		whereClause += " AND agent_id = ?"
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`UPDATE %s SET content = ?, embedding = ?, updated_at = ? %s`, c.table, whereClause)
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mysql: update: %w", err)
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

	whereClause := "WHERE id = ?"
	args := []interface{}{id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		whereClause += " AND agent_id = ?"
		args = append(args, opts.AgentID)
	}

	result, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s %s", c.table, whereClause), args...)
	if err != nil {
		return fmt.Errorf("mysql: delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mysql: delete: %w", err)
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

	whereClause, args := buildWhereClause(opts.UserID, opts.AgentID, nil)
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
		LIMIT ? OFFSET ?
	`, c.table, whereClause)
	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: getall: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("mysql: getall: %w", err)
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
	whereClause, args := buildWhereClause(opts.UserID, opts.AgentID, nil)
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s %s", c.table, whereClause), args...); err != nil {
		return fmt.Errorf("mysql: deleteall: %w", err)
	}
	return nil
}

// Touch records an access, updating last_accessed_at and retention.
func (c *Client) Touch(ctx context.Context, id int64, retention float64) error {
	query := fmt.Sprintf(
		`UPDATE %s SET last_accessed_at = ?, retention_strength = ? WHERE id = ?`,
		c.table,
	)
	result, err := c.db.ExecContext(ctx, query, time.Now().UTC(), retention, id)
	if err != nil {
		return fmt.Errorf("mysql: touch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mysql: touch: %w", err)
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
