package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// fakeEmbedder returns a fixed vector for any text.
type fakeEmbedder struct {
	vector []float64
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }
func (f *fakeEmbedder) Close() error    { return nil }

// fakeVectorStore serves a fixed result set for Search and records
// the options it saw.
type fakeVectorStore struct {
	results    []*storage.Memory
	lastSearch *storage.SearchOptions
}

func (f *fakeVectorStore) Insert(ctx context.Context, memory *storage.Memory) error { return nil }

func (f *fakeVectorStore) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	f.lastSearch = opts
	results := f.results
	if opts != nil && opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (f *fakeVectorStore) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Memory, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeVectorStore) Update(ctx context.Context, id int64, content string, embedding []float64, opts *storage.UpdateOptions) (*storage.Memory, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeVectorStore) Delete(ctx context.Context, id int64, opts *storage.DeleteOptions) error {
	return nil
}

func (f *fakeVectorStore) GetAll(ctx context.Context, opts *storage.GetAllOptions) ([]*storage.Memory, error) {
	return f.results, nil
}

func (f *fakeVectorStore) DeleteAll(ctx context.Context, opts *storage.DeleteAllOptions) error {
	return nil
}

func (f *fakeVectorStore) Touch(ctx context.Context, id int64, retention float64) error { return nil }
func (f *fakeVectorStore) Close() error                                                 { return nil }

func memories(n int) []*storage.Memory {
	out := make([]*storage.Memory, n)
	for i := range out {
		out[i] = &storage.Memory{ID: int64(i + 1), Content: "memory", Score: 0.9}
	}
	return out
}

func TestConditionEmptyAlwaysHolds(t *testing.T) {
	checker := NewConditionChecker(&fakeVectorStore{}, &fakeEmbedder{vector: []float64{1}})
	met, reason, err := checker.Evaluate(context.Background(), &ScheduledIntent{})
	require.NoError(t, err)
	assert.True(t, met)
	assert.Empty(t, reason)
}

func TestConditionMinMatches(t *testing.T) {
	store := &fakeVectorStore{results: memories(3)}
	checker := NewConditionChecker(store, &fakeEmbedder{vector: []float64{1}})

	intent := &ScheduledIntent{
		UserID:    "alice",
		Condition: "min_matches:3:coffee preferences",
	}
	met, _, err := checker.Evaluate(context.Background(), intent)
	require.NoError(t, err)
	assert.True(t, met)
	require.NotNil(t, store.lastSearch)
	assert.Equal(t, "alice", store.lastSearch.UserID, "condition search should scope to the intent's user")
	assert.Equal(t, 3, store.lastSearch.Limit)
}

func TestConditionMinMatchesNotMet(t *testing.T) {
	store := &fakeVectorStore{results: memories(1)}
	checker := NewConditionChecker(store, &fakeEmbedder{vector: []float64{1}})

	intent := &ScheduledIntent{Condition: "min_matches:3:coffee preferences"}
	met, reason, err := checker.Evaluate(context.Background(), intent)
	require.NoError(t, err)
	assert.False(t, met)
	assert.Contains(t, reason, "found 1 of 3")
}

func TestConditionHasMemory(t *testing.T) {
	checker := NewConditionChecker(&fakeVectorStore{results: memories(1)}, &fakeEmbedder{vector: []float64{1}})
	met, _, err := checker.Evaluate(context.Background(), &ScheduledIntent{Condition: "has_memory:project deadline"})
	require.NoError(t, err)
	assert.True(t, met)

	checker = NewConditionChecker(&fakeVectorStore{}, &fakeEmbedder{vector: []float64{1}})
	met, reason, err := checker.Evaluate(context.Background(), &ScheduledIntent{Condition: "has_memory:project deadline"})
	require.NoError(t, err)
	assert.False(t, met)
	assert.Contains(t, reason, "project deadline")
}

func TestConditionMalformed(t *testing.T) {
	checker := NewConditionChecker(&fakeVectorStore{}, &fakeEmbedder{vector: []float64{1}})
	for _, cond := range []string{
		"min_matches",
		"min_matches:zero:query",
		"min_matches:0:query",
		"unknown:query",
	} {
		_, _, err := checker.Evaluate(context.Background(), &ScheduledIntent{Condition: cond})
		assert.Error(t, err, "condition %q should be rejected", cond)
	}
}
