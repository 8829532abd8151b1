package core

import (
	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// toStorageMemory converts a core.Memory to storage.Memory.
//
// Conversion keeps the dependency direction storage <- core without
// sharing types across packages.
func toStorageMemory(m *Memory) *storage.Memory {
	return &storage.Memory{
		ID:                m.ID,
		UserID:            m.UserID,
		AgentID:           m.AgentID,
		Content:           m.Content,
		Embedding:         m.Embedding,
		Metadata:          m.Metadata,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		RetentionStrength: m.RetentionStrength,
		ImportanceScore:   m.ImportanceScore,
		LastAccessedAt:    m.LastAccessedAt,
		Score:             m.Score,
	}
}

// fromStorageMemory converts a storage.Memory to core.Memory.
func fromStorageMemory(m *storage.Memory) *Memory {
	return &Memory{
		ID:                m.ID,
		UserID:            m.UserID,
		AgentID:           m.AgentID,
		Content:           m.Content,
		Embedding:         m.Embedding,
		Metadata:          m.Metadata,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		RetentionStrength: m.RetentionStrength,
		ImportanceScore:   m.ImportanceScore,
		LastAccessedAt:    m.LastAccessedAt,
		Score:             m.Score,
	}
}

// fromStorageMemories converts a slice of storage.Memory to core.Memory.
func fromStorageMemories(memories []*storage.Memory) []*Memory {
	result := make([]*Memory, len(memories))
	for i, m := range memories {
		result[i] = fromStorageMemory(m)
	}
	return result
}

// toStorageMemories converts a slice of core.Memory to storage.Memory.
func toStorageMemories(memories []*Memory) []*storage.Memory {
	result := make([]*storage.Memory, len(memories))
	for i, m := range memories {
		result[i] = toStorageMemory(m)
	}
	return result
}
