package core

import "time"

// Memory represents a single memory record.
//
// Memories are owned by a user, optionally scoped to an agent, and carry
// the dense embedding used for similarity search plus the retention
// bookkeeping maintained by the intelligence pipeline.
type Memory struct {
	// ID is the snowflake identifier of the memory.
	ID int64 `json:"id"`

	// UserID identifies the user who owns this memory.
	UserID string `json:"user_id"`

	// AgentID identifies the agent associated with this memory (optional).
	AgentID string `json:"agent_id,omitempty"`

	// Content is the memory text.
	Content string `json:"content"`

	// Embedding is the dense vector used for similarity search.
	Embedding []float64 `json:"embedding,omitempty"`

	// Metadata holds additional structured attributes.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the memory was first stored.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the memory was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// RetentionStrength is the current retention strength (0.0-1.0)
	// managed by the forgetting curve.
	RetentionStrength float64 `json:"retention_strength,omitempty"`

	// ImportanceScore is the evaluated importance (0.0-1.0).
	ImportanceScore float64 `json:"importance_score,omitempty"`

	// LastAccessedAt is when the memory was last read (nil if never).
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	// Score is the similarity score attached to search results.
	Score float64 `json:"score,omitempty"`
}

// MemoryScope defines the visibility scope of a memory in multi-agent
// deployments.
type MemoryScope string

const (
	// ScopePrivate restricts the memory to the creating agent.
	ScopePrivate MemoryScope = "private"

	// ScopeAgentGroup shares the memory with agents in the same group.
	ScopeAgentGroup MemoryScope = "agent_group"

	// ScopeGlobal makes the memory visible to all agents.
	ScopeGlobal MemoryScope = "global"
)

// SearchResult pairs a memory with its similarity score.
type SearchResult struct {
	// Memory is the matched memory.
	Memory *Memory `json:"memory"`

	// Score is the similarity score (higher is more similar).
	Score float64 `json:"score"`
}
