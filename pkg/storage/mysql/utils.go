package mysql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory reads one memory row.
func scanMemory(row rowScanner) (*storage.Memory, error) {
	var (
		memory        storage.Memory
		embeddingJSON string
		metadataJSON  sql.NullString
		lastAccessed  sql.NullTime
	)

	err := row.Scan(
		&memory.ID,
		&memory.UserID,
		&memory.AgentID,
		&memory.Content,
		&embeddingJSON,
		&metadataJSON,
		&memory.CreatedAt,
		&memory.UpdatedAt,
		&memory.RetentionStrength,
		&memory.ImportanceScore,
		&lastAccessed,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(embeddingJSON), &memory.Embedding); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &memory.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		memory.LastAccessedAt = &t
	}
	return &memory, nil
}

// buildWhereClause builds a WHERE clause with ? placeholders. Metadata
// filters use JSON_UNQUOTE over the metadata column.
func buildWhereClause(userID, agentID string, filters map[string]interface{}) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	if userID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, userID)
	}
	if agentID != "" {
		conditions = append(conditions, "agent_id = ?")
		args = append(args, agentID)
	}
	for key, value := range filters {
		conditions = append(conditions, fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(metadata, '$.%s')) = ?", key))
		args = append(args, fmt.Sprintf("%v", value))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// cosineSimilarity returns the cosine similarity of two vectors, or 0
// when either is empty or their lengths differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
