package intelligence

import (
	"context"
	"math"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// DedupManager detects and merges near-duplicate memories using vector
// similarity.
//
// Example usage:
//
//	dedup := NewDedupManager(store, 0.95)
//	isDup, existingID, err := dedup.CheckDuplicate(ctx, embedding, "user_001", "")
//	if isDup {
//	    merged, err := dedup.MergeMemories(ctx, existingID, newContent, newEmbedding)
//	}
type DedupManager struct {
	store storage.VectorStore

	// threshold is the similarity above which two memories count as
	// duplicates. Typical range 0.9-0.98.
	threshold float64
}

// NewDedupManager creates a deduplication manager. A zero threshold
// defaults to 0.95.
func NewDedupManager(store storage.VectorStore, threshold float64) *DedupManager {
	if threshold == 0 {
		threshold = 0.95
	}
	return &DedupManager{store: store, threshold: threshold}
}

// CheckDuplicate searches for a stored memory close enough to the
// given embedding to count as a duplicate.
//
// Returns whether a duplicate exists and, if so, its ID.
func (m *DedupManager) CheckDuplicate(ctx context.Context, embedding []float64, userID, agentID string) (bool, int64, error) {
	memories, err := m.store.Search(ctx, embedding, &storage.SearchOptions{
		UserID:  userID,
		AgentID: agentID,
		Limit:   5,
	})
	if err != nil {
		return false, 0, err
	}

	for _, mem := range memories {
		if mem.Score >= m.threshold {
			return true, mem.ID, nil
		}
	}
	return false, 0, nil
}

// MergeMemories folds new content into an existing memory. Content is
// concatenated and the embeddings are averaged then renormalized.
func (m *DedupManager) MergeMemories(ctx context.Context, existingID int64, newContent string, newEmbedding []float64) (*storage.Memory, error) {
	existing, err := m.store.Get(ctx, existingID, nil)
	if err != nil {
		return nil, err
	}

	mergedContent := existing.Content + " " + newContent
	mergedEmbedding := averageEmbeddings(existing.Embedding, newEmbedding)

	return m.store.Update(ctx, existingID, mergedContent, mergedEmbedding, nil)
}

// averageEmbeddings averages two vectors and normalizes the result to
// unit length. Mismatched lengths fall back to the second vector.
func averageEmbeddings(a, b []float64) []float64 {
	if len(a) != len(b) || len(a) == 0 {
		return b
	}

	merged := make([]float64, len(a))
	var norm float64
	for i := range a {
		merged[i] = (a[i] + b[i]) / 2
		norm += merged[i] * merged[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return merged
	}
	for i := range merged {
		merged[i] /= norm
	}
	return merged
}
