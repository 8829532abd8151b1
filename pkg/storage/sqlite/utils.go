package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory reads one memory row in column order.
func scanMemory(scanner rowScanner) (*storage.Memory, error) {
	var (
		memory         storage.Memory
		embeddingStr   string
		metadataStr    sql.NullString
		lastAccessedAt sql.NullTime
	)

	err := scanner.Scan(
		&memory.ID,
		&memory.UserID,
		&memory.AgentID,
		&memory.Content,
		&embeddingStr,
		&metadataStr,
		&memory.CreatedAt,
		&memory.UpdatedAt,
		&memory.RetentionStrength,
		&memory.ImportanceScore,
		&lastAccessedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(embeddingStr), &memory.Embedding); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	if metadataStr.Valid && metadataStr.String != "" {
		if err := json.Unmarshal([]byte(metadataStr.String), &memory.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	if lastAccessedAt.Valid {
		memory.LastAccessedAt = &lastAccessedAt.Time
	}
	return &memory, nil
}

// buildWhereClause assembles user/agent/metadata filters into a WHERE clause
// with positional placeholders. Metadata filters match against the JSON
// metadata column via json_extract.
func buildWhereClause(userID, agentID string, filters map[string]interface{}) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	if userID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, userID)
	}
	if agentID != "" {
		clauses = append(clauses, "agent_id = ?")
		args = append(args, agentID)
	}
	for key, value := range filters {
		clauses = append(clauses, fmt.Sprintf("json_extract(metadata, '$.%s') = ?", key))
		args = append(args, fmt.Sprintf("%v", value))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := "WHERE " + clauses[0]
	for _, clause := range clauses[1:] {
		where += " AND " + clause
	}
	return where, args
}
