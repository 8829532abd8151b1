package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory reads one memory row. When withScore is true the row is
// expected to carry a trailing similarity column from a search query.
func scanMemory(row rowScanner, withScore bool) (*storage.Memory, error) {
	var (
		memory       storage.Memory
		embeddingStr string
		metadataJSON sql.NullString
		lastAccessed sql.NullTime
	)

	dest := []interface{}{
		&memory.ID,
		&memory.UserID,
		&memory.AgentID,
		&memory.Content,
		&embeddingStr,
		&metadataJSON,
		&memory.CreatedAt,
		&memory.UpdatedAt,
		&memory.RetentionStrength,
		&memory.ImportanceScore,
		&lastAccessed,
	}
	if withScore {
		dest = append(dest, &memory.Score)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	embedding, err := stringToVector(embeddingStr)
	if err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	memory.Embedding = embedding

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

// vectorToString renders an embedding in pgvector literal form.
func vectorToString(embedding []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

// stringToVector parses a pgvector literal back into a float slice.
func stringToVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vector := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		vector[i] = v
	}
	return vector, nil
}

// buildWhereClauseWithOffset builds a WHERE clause whose placeholders
// start at the given index. Metadata filters query the JSONB column.
func buildWhereClauseWithOffset(userID, agentID string, filters map[string]interface{}, startIndex int) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
		idx        = startIndex
	)

	if userID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", idx))
		args = append(args, userID)
		idx++
	}
	if agentID != "" {
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", idx))
		args = append(args, agentID)
		idx++
	}
	for key, value := range filters {
		conditions = append(conditions, fmt.Sprintf("metadata->>'%s' = $%d", key, idx))
		args = append(args, fmt.Sprintf("%v", value))
		idx++
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
