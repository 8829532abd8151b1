package intelligence

import (
	"context"
	"sort"
	"strings"

	"github.com/agenticmem/agenticmem-go/pkg/llm"
	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// Manager ties the extraction pipeline together: fact extraction with
// truism filtering, importance evaluation, retention scoring, and
// search result re-ranking.
type Manager struct {
	extractor  *FactExtractor
	decider    *DecisionMaker
	importance *ImportanceEvaluator
	retention  *RetentionManager
}

// NewManager creates an intelligence manager. A nil retention config
// uses the defaults.
func NewManager(provider llm.Provider, retentionCfg *RetentionConfig) *Manager {
	if retentionCfg == nil {
		retentionCfg = &RetentionConfig{}
	}
	return &Manager{
		extractor:  NewFactExtractor(provider),
		decider:    NewDecisionMaker(provider),
		importance: NewImportanceEvaluator(provider),
		retention:  NewRetentionManagerWithConfig(retentionCfg),
	}
}

// ExtractFacts delegates to the fact extractor.
func (m *Manager) ExtractFacts(ctx context.Context, messages interface{}) (*ExtractionResult, error) {
	return m.extractor.ExtractFacts(ctx, messages)
}

// DecideActions delegates to the decision maker.
func (m *Manager) DecideActions(ctx context.Context, newFacts []string, existing []ExistingMemory) ([]MemoryAction, error) {
	return m.decider.DecideActions(ctx, newFacts, existing)
}

// EvaluateImportance delegates to the importance evaluator.
func (m *Manager) EvaluateImportance(ctx context.Context, content string, metadata map[string]interface{}) float64 {
	return m.importance.EvaluateImportance(ctx, content, metadata)
}

// Retention returns the retention manager.
func (m *Manager) Retention() *RetentionManager {
	return m.retention
}

// Extractor returns the fact extractor.
func (m *Manager) Extractor() *FactExtractor {
	return m.extractor
}

// RankSearchResults re-ranks search results by combining vector
// similarity, keyword relevance, and retention decay. Results come
// back sorted by the combined score, best first.
func (m *Manager) RankSearchResults(memories []*storage.Memory, query string) []*storage.Memory {
	type scored struct {
		memory *storage.Memory
		final  float64
	}

	ranked := make([]scored, len(memories))
	for i, memory := range memories {
		relevance := keywordRelevance(memory.Content, query)
		decay := m.retention.CalculateRetention(memory.CreatedAt, memory.LastAccessedAt)

		// Similarity dominates, relevance and decay adjust.
		final := memory.Score * (0.7 + 0.15*relevance + 0.15*decay)
		ranked[i] = scored{memory: memory, final: final}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].final > ranked[j].final
	})

	result := make([]*storage.Memory, len(ranked))
	for i, r := range ranked {
		result[i] = r.memory
	}
	return result
}

// keywordRelevance is the fraction of query words present in the
// content.
func keywordRelevance(content, query string) float64 {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return 0.0
	}

	contentWords := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(content)) {
		contentWords[word] = true
	}

	matches := 0
	for _, word := range queryWords {
		if contentWords[word] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryWords))
}
