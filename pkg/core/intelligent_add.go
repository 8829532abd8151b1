package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenticmem/agenticmem-go/pkg/intelligence"
	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// IntelligentAddResult represents the result of an intelligent add operation.
type IntelligentAddResult struct {
	// Results contains the memory operations performed.
	Results []MemoryActionResult `json:"results"`

	// DiscardedTruisms lists extracted statements dropped by the truism
	// filter before any decision was made.
	DiscardedTruisms []string `json:"discarded_truisms,omitempty"`
}

// MemoryActionResult represents a single memory operation result.
type MemoryActionResult struct {
	// ID is the memory ID.
	ID int64 `json:"id"`

	// Memory is the memory content.
	Memory string `json:"memory"`

	// Event is the operation type: ADD, UPDATE, DELETE, NONE.
	Event string `json:"event"`

	// PreviousMemory is the previous content (UPDATE only).
	PreviousMemory string `json:"previous_memory,omitempty"`

	// Metadata contains additional information.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IntelligentAdd runs the full extraction pipeline on the input.
//
// The flow:
//  1. Extract durable facts from the messages (truisms are discarded)
//  2. For each fact, search for similar existing memories
//  3. Ask the LLM to reconcile: ADD / UPDATE / DELETE / NONE
//  4. Execute the decided operations
//
// Parameters:
//   - ctx: Context for cancellation
//   - messages: Input to process (string, []map[string]interface{}, or
//     []llm.Message)
//   - opts: Optional parameters (UserID, AgentID, RunID, Metadata, ...)
//
// Returns an IntelligentAddResult describing every operation performed.
//
// Example:
//
//	result, err := client.IntelligentAdd(ctx, []map[string]interface{}{
//	    {"role": "user", "content": "I'm Alice, a software engineer in Berlin"},
//	    {"role": "assistant", "content": "Nice to meet you!"},
//	},
//	    core.WithUserID("user_001"),
//	)
func (c *Client) IntelligentAdd(ctx context.Context, messages interface{}, opts ...AddOption) (*IntelligentAddResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	addOpts := applyAddOptions(opts)

	if c.intelligentManager == nil {
		return nil, fmt.Errorf("IntelligentAdd requires intelligence to be enabled")
	}

	extraction, err := c.extractFacts(ctx, messages, addOpts)
	if err != nil {
		if c.fallbackEnabled() {
			c.logger.Warn("fact extraction failed, falling back to simple add", zap.Error(err))
			return c.fallbackToSimpleAdd(ctx, messages, opts...)
		}
		return nil, fmt.Errorf("failed to extract facts: %w", err)
	}

	c.metrics.ExtractionFacts.WithLabelValues("kept").Add(float64(len(extraction.Facts)))
	c.metrics.ExtractionFacts.WithLabelValues("truism_discarded").Add(float64(len(extraction.Discarded)))

	facts := extraction.Facts
	if len(facts) == 0 {
		c.logger.Debug("no facts extracted",
			zap.Int("discarded", len(extraction.Discarded)))
		if c.fallbackEnabled() {
			return c.fallbackToSimpleAdd(ctx, messages, opts...)
		}
		return &IntelligentAddResult{
			Results:          []MemoryActionResult{},
			DiscardedTruisms: extraction.Discarded,
		}, nil
	}

	c.logger.Debug("extracted facts",
		zap.Int("kept", len(facts)),
		zap.Int("discarded", len(extraction.Discarded)))

	// Gather existing memories similar to any fact. IDs presented to
	// the decision prompt are positional; the mapping restores them.
	existingMemoriesList, factEmbeddings := c.collectSimilarMemories(ctx, facts, addOpts)

	tempIDMapping := make(map[string]int64)
	existingForDecision := make([]intelligence.ExistingMemory, len(existingMemoriesList))
	for i, mem := range existingMemoriesList {
		tempID := fmt.Sprintf("%d", i)
		tempIDMapping[tempID] = mem.ID
		existingForDecision[i] = intelligence.ExistingMemory{
			ID:   tempID,
			Text: mem.Content,
		}
	}

	actions, err := c.intelligentManager.DecideActions(ctx, facts, existingForDecision)
	if err != nil {
		if c.fallbackEnabled() {
			c.logger.Warn("decision failed, falling back to simple add", zap.Error(err))
			return c.fallbackToSimpleAdd(ctx, messages, opts...)
		}
		return nil, fmt.Errorf("failed to decide memory actions: %w", err)
	}

	if len(actions) == 0 {
		if c.fallbackEnabled() {
			return c.fallbackToSimpleAdd(ctx, messages, opts...)
		}
		return &IntelligentAddResult{
			Results:          []MemoryActionResult{},
			DiscardedTruisms: extraction.Discarded,
		}, nil
	}

	results := c.executeActions(ctx, actions, tempIDMapping, factEmbeddings, addOpts)

	return &IntelligentAddResult{
		Results:          results,
		DiscardedTruisms: extraction.Discarded,
	}, nil
}

// extractFacts runs the fact extractor, honoring a per-call prompt
// override.
func (c *Client) extractFacts(ctx context.Context, messages interface{}, addOpts *AddOptions) (*intelligence.ExtractionResult, error) {
	if addOpts.Prompt != "" {
		extractor := intelligence.NewFactExtractorWithPrompt(c.llm, addOpts.Prompt)
		return extractor.ExtractFacts(ctx, messages)
	}
	return c.intelligentManager.ExtractFacts(ctx, messages)
}

// collectSimilarMemories searches the store for memories similar to any
// fact, deduplicated by ID and capped at ten candidates.
func (c *Client) collectSimilarMemories(ctx context.Context, facts []string, addOpts *AddOptions) ([]*Memory, map[string][]float64) {
	factEmbeddings := make(map[string][]float64)
	seen := make(map[int64]bool)
	existing := make([]*Memory, 0)

	for _, fact := range facts {
		embedding, err := c.embedder.Embed(ctx, fact)
		if err != nil {
			c.logger.Warn("failed to embed fact", zap.String("fact", truncate(fact, 50)), zap.Error(err))
			continue
		}
		factEmbeddings[fact] = embedding

		similar, err := c.storage.Search(ctx, embedding, &storage.SearchOptions{
			UserID:  addOpts.UserID,
			AgentID: addOpts.AgentID,
			Limit:   5,
			Query:   fact,
			Filters: addOpts.Filters,
		})
		if err != nil {
			c.logger.Warn("failed to search similar memories", zap.Error(err))
			continue
		}

		for _, m := range similar {
			if seen[m.ID] || len(existing) >= 10 {
				continue
			}
			seen[m.ID] = true
			existing = append(existing, fromStorageMemory(m))
		}
	}

	return existing, factEmbeddings
}

// executeActions applies each decided action against the store.
// Per-action failures are logged and skipped so one bad action does not
// abandon the batch.
func (c *Client) executeActions(ctx context.Context, actions []intelligence.MemoryAction, tempIDMapping map[string]int64, factEmbeddings map[string][]float64, addOpts *AddOptions) []MemoryActionResult {
	results := make([]MemoryActionResult, 0, len(actions))

	for _, action := range actions {
		actionText := action.Text
		if actionText == "" && action.Event != intelligence.EventNone {
			c.logger.Warn("skipping action with empty text", zap.String("event", action.Event))
			continue
		}

		switch action.Event {
		case intelligence.EventAdd:
			embedding := factEmbeddings[actionText]
			if embedding == nil {
				var err error
				embedding, err = c.embedder.Embed(ctx, actionText)
				if err != nil {
					c.logger.Warn("failed to embed new memory", zap.Error(err))
					continue
				}
			}

			metadata := copyMetadata(addOpts.Metadata)
			addMetadataFields(metadata, addOpts)

			memory := &Memory{
				ID:                c.snowflakeNode.Generate().Int64(),
				UserID:            addOpts.UserID,
				AgentID:           addOpts.AgentID,
				Content:           actionText,
				Embedding:         embedding,
				Metadata:          metadata,
				RetentionStrength: c.intelligentManager.Retention().InitialRetention(),
				ImportanceScore:   c.intelligentManager.EvaluateImportance(ctx, actionText, metadata),
			}

			if err := c.storage.Insert(ctx, toStorageMemory(memory)); err != nil {
				c.logger.Warn("failed to insert memory", zap.Error(err))
				c.metrics.MemoriesAdded.WithLabelValues("error").Inc()
				continue
			}
			c.metrics.MemoriesAdded.WithLabelValues("added").Inc()

			results = append(results, MemoryActionResult{
				ID:       memory.ID,
				Memory:   actionText,
				Event:    action.Event,
				Metadata: metadata,
			})

		case intelligence.EventUpdate:
			realID, ok := tempIDMapping[action.ID]
			if !ok {
				c.logger.Warn("unknown memory id in update action", zap.String("id", action.ID))
				continue
			}

			embedding, err := c.embedder.Embed(ctx, actionText)
			if err != nil {
				c.logger.Warn("failed to embed updated memory", zap.Error(err))
				continue
			}

			if _, err := c.storage.Update(ctx, realID, actionText, embedding, nil); err != nil {
				c.logger.Warn("failed to update memory", zap.Int64("memory_id", realID), zap.Error(err))
				continue
			}
			c.metrics.MemoriesAdded.WithLabelValues("updated").Inc()

			results = append(results, MemoryActionResult{
				ID:             realID,
				Memory:         actionText,
				Event:          action.Event,
				PreviousMemory: action.OldMemory,
			})

		case intelligence.EventDelete:
			realID, ok := tempIDMapping[action.ID]
			if !ok {
				c.logger.Warn("unknown memory id in delete action", zap.String("id", action.ID))
				continue
			}

			if err := c.storage.Delete(ctx, realID, nil); err != nil {
				c.logger.Warn("failed to delete memory", zap.Int64("memory_id", realID), zap.Error(err))
				continue
			}
			c.metrics.MemoriesAdded.WithLabelValues("deleted").Inc()

			results = append(results, MemoryActionResult{
				ID:     realID,
				Memory: actionText,
				Event:  action.Event,
			})

		case intelligence.EventNone:
			c.metrics.MemoriesAdded.WithLabelValues("skipped").Inc()

		default:
			c.logger.Warn("unknown event type", zap.String("event", action.Event))
		}
	}

	c.invalidateSearchCache(ctx, addOpts.UserID)

	return results
}

// fallbackEnabled reports whether failed intelligent adds should store
// the raw content instead of erroring.
func (c *Client) fallbackEnabled() bool {
	return c.config.Intelligence != nil && c.config.Intelligence.FallbackToSimpleAdd
}

// fallbackToSimpleAdd stores the raw content verbatim.
func (c *Client) fallbackToSimpleAdd(ctx context.Context, messages interface{}, opts ...AddOption) (*IntelligentAddResult, error) {
	content := parseMessagesToString(messages)

	// Strip Infer so the raw content lands verbatim. The write lock is
	// already held by IntelligentAdd.
	plainOpts := applyAddOptions(opts)
	plainOpts.Infer = false

	memory, err := c.addLocked(ctx, content, plainOpts)
	if err != nil {
		return nil, fmt.Errorf("fallback to simple add failed: %w", err)
	}

	return &IntelligentAddResult{
		Results: []MemoryActionResult{
			{
				ID:     memory.ID,
				Memory: memory.Content,
				Event:  intelligence.EventAdd,
			},
		},
	}, nil
}

// parseMessagesToString converts supported message formats to a string.
func parseMessagesToString(messages interface{}) string {
	switch v := messages.(type) {
	case string:
		return v
	case []map[string]interface{}:
		var parts []string
		for _, msg := range v {
			role, _ := msg["role"].(string)
			content, _ := msg["content"].(string)
			if role != "" && content != "" && role != "system" {
				parts = append(parts, fmt.Sprintf("%s: %s", role, content))
			}
		}
		return fmt.Sprintf("%v", parts)
	case map[string]interface{}:
		content, _ := v["content"].(string)
		return content
	default:
		return fmt.Sprintf("%v", messages)
	}
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(metadata map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range metadata {
		result[k] = v
	}
	return result
}

// addMetadataFields merges option-derived fields into metadata.
func addMetadataFields(metadata map[string]interface{}, opts *AddOptions) {
	if opts.RunID != "" {
		metadata["run_id"] = opts.RunID
	}
	if opts.MemoryType != "" {
		metadata["memory_type"] = opts.MemoryType
	}
	if opts.Scope != "" {
		metadata["scope"] = string(opts.Scope)
	}
	for k, v := range opts.Filters {
		metadata[k] = v
	}
}

// truncate shortens a string for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
