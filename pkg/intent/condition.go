package intent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/agenticmem/agenticmem-go/pkg/embedder"
	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// ConditionChecker evaluates intent conditions against the memory
// store. A false condition records a condition_not_met execution
// without running the action.
//
// Supported condition expressions:
//   - "min_matches:3:coffee preferences" requires at least 3 memories
//     matching the query
//   - "has_memory:project deadline" requires at least one match
type ConditionChecker struct {
	store    storage.VectorStore
	embedder embedder.Provider

	// minScore filters out weak matches before counting.
	minScore float64
}

// NewConditionChecker creates a condition evaluator.
func NewConditionChecker(store storage.VectorStore, emb embedder.Provider) *ConditionChecker {
	return &ConditionChecker{store: store, embedder: emb, minScore: 0.5}
}

// Evaluate checks an intent's condition. It returns whether the
// condition holds and, when it does not, the reason. An empty
// condition always holds.
func (c *ConditionChecker) Evaluate(ctx context.Context, intent *ScheduledIntent) (bool, string, error) {
	if intent.Condition == "" {
		return true, "", nil
	}

	kind, arg, found := strings.Cut(intent.Condition, ":")
	if !found {
		return false, "", fmt.Errorf("malformed condition %q", intent.Condition)
	}

	switch kind {
	case "min_matches":
		minStr, query, found := strings.Cut(arg, ":")
		if !found {
			return false, "", fmt.Errorf("malformed min_matches condition %q", arg)
		}
		min, err := strconv.Atoi(minStr)
		if err != nil || min <= 0 {
			return false, "", fmt.Errorf("malformed min_matches count %q", minStr)
		}
		return c.checkMatches(ctx, intent, query, min)
	case "has_memory":
		return c.checkMatches(ctx, intent, arg, 1)
	default:
		return false, "", fmt.Errorf("unknown condition %q", kind)
	}
}

func (c *ConditionChecker) checkMatches(ctx context.Context, intent *ScheduledIntent, query string, min int) (bool, string, error) {
	embedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return false, "", fmt.Errorf("embed condition query: %w", err)
	}

	memories, err := c.store.Search(ctx, embedding, &storage.SearchOptions{
		UserID:   intent.UserID,
		AgentID:  intent.AgentID,
		Limit:    min,
		MinScore: c.minScore,
	})
	if err != nil {
		return false, "", fmt.Errorf("search condition query: %w", err)
	}

	if len(memories) < min {
		return false, fmt.Sprintf("found %d of %d required matches for %q", len(memories), min, query), nil
	}
	return true, "", nil
}
