package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/agenticmem/agenticmem-go/pkg/embedder"
	"github.com/agenticmem/agenticmem-go/pkg/intelligence"
	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// Executor runs an intent's action and returns a human-readable
// result detail.
type Executor interface {
	Execute(ctx context.Context, intent *ScheduledIntent) (string, error)
}

// MemoryExecutor executes intent actions against the memory store.
type MemoryExecutor struct {
	store        storage.VectorStore
	embedder     embedder.Provider
	intelligence *intelligence.Manager
	node         *snowflake.Node
	logger       *zap.Logger
}

// NewMemoryExecutor creates the default executor.
func NewMemoryExecutor(
	store storage.VectorStore,
	emb embedder.Provider,
	intel *intelligence.Manager,
	node *snowflake.Node,
	logger *zap.Logger,
) *MemoryExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryExecutor{
		store:        store,
		embedder:     emb,
		intelligence: intel,
		node:         node,
		logger:       logger,
	}
}

// Execute dispatches on the intent's action.
func (e *MemoryExecutor) Execute(ctx context.Context, intent *ScheduledIntent) (string, error) {
	switch intent.Action {
	case ActionRecall:
		return e.executeRecall(ctx, intent)
	case ActionExtract:
		return e.executeExtract(ctx, intent)
	case ActionNotify:
		return e.executeNotify(intent)
	default:
		return "", fmt.Errorf("unknown action %q", intent.Action)
	}
}

// executeRecall searches the user's memories with the payload query.
func (e *MemoryExecutor) executeRecall(ctx context.Context, intent *ScheduledIntent) (string, error) {
	query, _ := intent.Payload["query"].(string)
	if query == "" {
		return "", fmt.Errorf("recall intent %d has no query in payload", intent.ID)
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed recall query: %w", err)
	}

	limit := 10
	if v, ok := intent.Payload["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	memories, err := e.store.Search(ctx, embedding, &storage.SearchOptions{
		UserID:  intent.UserID,
		AgentID: intent.AgentID,
		Limit:   limit,
	})
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if e.intelligence != nil {
		memories = e.intelligence.RankSearchResults(memories, query)
	}

	e.logger.Info("recall intent executed",
		zap.Int64("intent_id", intent.ID),
		zap.String("user_id", intent.UserID),
		zap.String("query", query),
		zap.Int("results", len(memories)),
	)
	return fmt.Sprintf("recalled %d memories for %q", len(memories), query), nil
}

// executeExtract runs the extraction pipeline over payload messages
// and stores the surviving facts.
func (e *MemoryExecutor) executeExtract(ctx context.Context, intent *ScheduledIntent) (string, error) {
	messages, ok := intent.Payload["messages"]
	if !ok {
		return "", fmt.Errorf("extract intent %d has no messages in payload", intent.ID)
	}
	if e.intelligence == nil {
		return "", fmt.Errorf("extract intent %d requires the extraction pipeline", intent.ID)
	}

	result, err := e.intelligence.ExtractFacts(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("extract facts: %w", err)
	}

	stored := 0
	now := time.Now().UTC()
	for _, fact := range result.Facts {
		embedding, err := e.embedder.Embed(ctx, fact)
		if err != nil {
			return "", fmt.Errorf("embed fact: %w", err)
		}
		memory := &storage.Memory{
			ID:                e.node.Generate().Int64(),
			UserID:            intent.UserID,
			AgentID:           intent.AgentID,
			Content:           fact,
			Embedding:         embedding,
			CreatedAt:         now,
			UpdatedAt:         now,
			RetentionStrength: e.intelligence.Retention().InitialRetention(),
			ImportanceScore:   e.intelligence.EvaluateImportance(ctx, fact, nil),
			Metadata:          map[string]interface{}{"source": "scheduled_intent"},
		}
		if err := e.store.Insert(ctx, memory); err != nil {
			return "", fmt.Errorf("insert fact: %w", err)
		}
		stored++
	}

	e.logger.Info("extract intent executed",
		zap.Int64("intent_id", intent.ID),
		zap.String("user_id", intent.UserID),
		zap.Int("facts_stored", stored),
		zap.Int("truisms_discarded", len(result.Discarded)),
	)
	return fmt.Sprintf("stored %d facts, discarded %d truisms", stored, len(result.Discarded)), nil
}

// executeNotify emits the payload message into the log stream, where
// downstream delivery picks it up.
func (e *MemoryExecutor) executeNotify(intent *ScheduledIntent) (string, error) {
	message, _ := intent.Payload["message"].(string)
	if message == "" {
		message = intent.Description
	}

	e.logger.Info("notify intent executed",
		zap.Int64("intent_id", intent.ID),
		zap.String("user_id", intent.UserID),
		zap.String("message", message),
	)
	return fmt.Sprintf("notified: %s", message), nil
}
