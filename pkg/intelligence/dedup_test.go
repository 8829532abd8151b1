package intelligence_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticmem/agenticmem-go/pkg/intelligence"
	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// fakeStore scripts Search results and records merges.
type fakeStore struct {
	searchResults []*storage.Memory
	byID          map[int64]*storage.Memory

	updatedID        int64
	updatedContent   string
	updatedEmbedding []float64
}

func (f *fakeStore) Insert(ctx context.Context, memory *storage.Memory) error { return nil }

func (f *fakeStore) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	return f.searchResults, nil
}

func (f *fakeStore) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Memory, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) Update(ctx context.Context, id int64, content string, embedding []float64, opts *storage.UpdateOptions) (*storage.Memory, error) {
	f.updatedID = id
	f.updatedContent = content
	f.updatedEmbedding = embedding
	return &storage.Memory{ID: id, Content: content, Embedding: embedding}, nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64, opts *storage.DeleteOptions) error {
	return nil
}

func (f *fakeStore) GetAll(ctx context.Context, opts *storage.GetAllOptions) ([]*storage.Memory, error) {
	return nil, nil
}

func (f *fakeStore) DeleteAll(ctx context.Context, opts *storage.DeleteAllOptions) error { return nil }
func (f *fakeStore) Touch(ctx context.Context, id int64, retention float64) error        { return nil }
func (f *fakeStore) Close() error                                                        { return nil }

func TestCheckDuplicate(t *testing.T) {
	store := &fakeStore{searchResults: []*storage.Memory{
		{ID: 1, Content: "likes espresso", Score: 0.97},
		{ID: 2, Content: "lives in Berlin", Score: 0.4},
	}}
	dedup := intelligence.NewDedupManager(store, 0.95)

	isDup, existingID, err := dedup.CheckDuplicate(context.Background(), []float64{1, 0}, "alice", "")
	require.NoError(t, err)
	assert.True(t, isDup)
	assert.Equal(t, int64(1), existingID)
}

func TestCheckDuplicateBelowThreshold(t *testing.T) {
	store := &fakeStore{searchResults: []*storage.Memory{
		{ID: 1, Content: "likes espresso", Score: 0.9},
	}}
	dedup := intelligence.NewDedupManager(store, 0.95)

	isDup, _, err := dedup.CheckDuplicate(context.Background(), []float64{1, 0}, "alice", "")
	require.NoError(t, err)
	assert.False(t, isDup)
}

func TestMergeMemories(t *testing.T) {
	store := &fakeStore{
		byID: map[int64]*storage.Memory{
			1: {ID: 1, Content: "likes espresso", Embedding: []float64{1, 0}},
		},
	}
	dedup := intelligence.NewDedupManager(store, 0.95)

	merged, err := dedup.MergeMemories(context.Background(), 1, "drinks it every morning", []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, "likes espresso drinks it every morning", merged.Content)
	assert.Equal(t, int64(1), store.updatedID)

	// Averaged then renormalized to unit length.
	var norm float64
	for _, v := range store.updatedEmbedding {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestMergeMemoriesMissing(t *testing.T) {
	dedup := intelligence.NewDedupManager(&fakeStore{byID: map[int64]*storage.Memory{}}, 0.95)
	_, err := dedup.MergeMemories(context.Background(), 42, "new", []float64{1})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
