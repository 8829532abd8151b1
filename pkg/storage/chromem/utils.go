package chromem

import (
	"fmt"
	"strconv"
	"time"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// encodeMetadata flattens a memory into chromem's string metadata map.
// System fields use reserved keys, user metadata keys pass through.
func encodeMetadata(memory *storage.Memory) map[string]string {
	meta := map[string]string{
		"user_id":            memory.UserID,
		"agent_id":           memory.AgentID,
		"created_at":         memory.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":         memory.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"retention_strength": strconv.FormatFloat(memory.RetentionStrength, 'f', -1, 64),
		"importance_score":   strconv.FormatFloat(memory.ImportanceScore, 'f', -1, 64),
	}
	if memory.LastAccessedAt != nil {
		meta["last_accessed_at"] = memory.LastAccessedAt.UTC().Format(time.RFC3339Nano)
	}
	for key, value := range memory.Metadata {
		meta[key] = fmt.Sprintf("%v", value)
	}
	return meta
}

// resultToMemory rebuilds a memory from a stored document.
func resultToMemory(id, content string, embedding []float32, meta map[string]string) (*storage.Memory, error) {
	memoryID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}

	memory := &storage.Memory{
		ID:        memoryID,
		UserID:    meta["user_id"],
		AgentID:   meta["agent_id"],
		Content:   content,
		Embedding: toFloat64(embedding),
	}

	if v := meta["created_at"]; v != "" {
		if memory.CreatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
	}
	if v := meta["updated_at"]; v != "" {
		if memory.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
	}
	if v := meta["retention_strength"]; v != "" {
		if memory.RetentionStrength, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("parse retention_strength: %w", err)
		}
	}
	if v := meta["importance_score"]; v != "" {
		if memory.ImportanceScore, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("parse importance_score: %w", err)
		}
	}
	if v := meta["last_accessed_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse last_accessed_at: %w", err)
		}
		memory.LastAccessedAt = &t
	}

	for key, value := range meta {
		if reservedKeys[key] {
			continue
		}
		if memory.Metadata == nil {
			memory.Metadata = make(map[string]interface{})
		}
		memory.Metadata[key] = value
	}
	return memory, nil
}

// whereFilter builds chromem's metadata equality filter.
func whereFilter(userID, agentID string, filters map[string]interface{}) map[string]string {
	where := make(map[string]string)
	if userID != "" {
		where["user_id"] = userID
	}
	if agentID != "" {
		where["agent_id"] = agentID
	}
	for key, value := range filters {
		where[key] = fmt.Sprintf("%v", value)
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
