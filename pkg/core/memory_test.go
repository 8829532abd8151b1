package core

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticmem/agenticmem-go/pkg/cache"
	"github.com/agenticmem/agenticmem-go/pkg/llm"
	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// stubEmbedder returns scripted vectors per text, counting calls.
type stubEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	s.calls++
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Close() error    { return nil }

// stubLLM serves scripted responses in order for either generate call.
type stubLLM struct {
	responses []string
	calls     int
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return s.next()
}

func (s *stubLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	return s.next()
}

func (s *stubLLM) Close() error { return nil }

func (s *stubLLM) next() (string, error) {
	if s.calls >= len(s.responses) {
		return "", errors.New("stub llm: no response scripted")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

// stubStore is an in-memory storage.VectorStore.
type stubStore struct {
	memories map[int64]*storage.Memory
}

func newStubStore() *stubStore {
	return &stubStore{memories: map[int64]*storage.Memory{}}
}

func (s *stubStore) Insert(ctx context.Context, memory *storage.Memory) error {
	clone := *memory
	s.memories[memory.ID] = &clone
	return nil
}

func (s *stubStore) matches(m *storage.Memory, userID, agentID string) bool {
	if userID != "" && m.UserID != userID {
		return false
	}
	if agentID != "" && m.AgentID != agentID {
		return false
	}
	return true
}

func (s *stubStore) Search(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.SearchOptions{}
	}
	var out []*storage.Memory
	for _, m := range s.memories {
		if s.matches(m, opts.UserID, opts.AgentID) {
			clone := *m
			clone.Score = 0.9
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *stubStore) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Memory, error) {
	m, ok := s.memories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if opts != nil && !s.matches(m, opts.UserID, opts.AgentID) {
		return nil, storage.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (s *stubStore) Update(ctx context.Context, id int64, content string, embedding []float64, opts *storage.UpdateOptions) (*storage.Memory, error) {
	m, ok := s.memories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if opts != nil && !s.matches(m, opts.UserID, opts.AgentID) {
		return nil, storage.ErrNotFound
	}
	m.Content = content
	m.Embedding = embedding
	m.UpdatedAt = time.Now().UTC()
	clone := *m
	return &clone, nil
}

func (s *stubStore) Delete(ctx context.Context, id int64, opts *storage.DeleteOptions) error {
	m, ok := s.memories[id]
	if !ok {
		return storage.ErrNotFound
	}
	if opts != nil && !s.matches(m, opts.UserID, opts.AgentID) {
		return storage.ErrNotFound
	}
	delete(s.memories, id)
	return nil
}

func (s *stubStore) GetAll(ctx context.Context, opts *storage.GetAllOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.GetAllOptions{}
	}
	var out []*storage.Memory
	for _, m := range s.memories {
		if s.matches(m, opts.UserID, opts.AgentID) {
			clone := *m
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) DeleteAll(ctx context.Context, opts *storage.DeleteAllOptions) error {
	if opts == nil {
		opts = &storage.DeleteAllOptions{}
	}
	for id, m := range s.memories {
		if s.matches(m, opts.UserID, opts.AgentID) {
			delete(s.memories, id)
		}
	}
	return nil
}

func (s *stubStore) Touch(ctx context.Context, id int64, retention float64) error {
	m, ok := s.memories[id]
	if !ok {
		return storage.ErrNotFound
	}
	now := time.Now().UTC()
	m.LastAccessedAt = &now
	m.RetentionStrength = retention
	return nil
}

func (s *stubStore) Close() error { return nil }

func testConfig() *Config {
	return &Config{
		LLM:         LLMConfig{Provider: "openai", APIKey: "test"},
		Embedder:    EmbedderConfig{Provider: "openai", APIKey: "test", Dimensions: 3},
		VectorStore: VectorStoreConfig{Provider: "sqlite", Config: map[string]interface{}{"db_path": ":memory:"}},
	}
}

func newTestClient(t *testing.T, cfg *Config, store *stubStore, provider *stubLLM, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{
		WithVectorStore(store),
		WithLLMProvider(provider),
		WithEmbedderProvider(&stubEmbedder{}),
	}, opts...)
	client, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAdd(t *testing.T) {
	store := newStubStore()
	client := newTestClient(t, testConfig(), store, &stubLLM{})

	memory, err := client.Add(context.Background(), "User prefers oat milk",
		WithUserID("alice"),
		WithRunID("run_1"),
		WithMetadata(map[string]interface{}{"source": "chat"}),
	)
	require.NoError(t, err)
	assert.NotZero(t, memory.ID)
	assert.Equal(t, "alice", memory.UserID)
	assert.Equal(t, 1.0, memory.RetentionStrength)
	assert.Equal(t, "chat", memory.Metadata["source"])
	assert.Equal(t, "run_1", memory.Metadata["run_id"])

	stored, err := store.Get(context.Background(), memory.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "User prefers oat milk", stored.Content)
}

func TestAddEmptyContent(t *testing.T) {
	client := newTestClient(t, testConfig(), newStubStore(), &stubLLM{})
	_, err := client.Add(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddCancelledContext(t *testing.T) {
	client := newTestClient(t, testConfig(), newStubStore(), &stubLLM{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Add(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetNotFound(t *testing.T) {
	client := newTestClient(t, testConfig(), newStubStore(), &stubLLM{})
	_, err := client.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAccessControl(t *testing.T) {
	store := newStubStore()
	client := newTestClient(t, testConfig(), store, &stubLLM{})

	memory, err := client.Add(context.Background(), "private fact", WithUserID("alice"))
	require.NoError(t, err)

	_, err = client.Get(context.Background(), memory.ID, WithUserIDForGet("bob"))
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := client.Get(context.Background(), memory.ID, WithUserIDForGet("alice"))
	require.NoError(t, err)
	assert.Equal(t, "private fact", got.Content)
}

func TestSearch(t *testing.T) {
	store := newStubStore()
	client := newTestClient(t, testConfig(), store, &stubLLM{})
	ctx := context.Background()

	_, err := client.Add(ctx, "likes espresso", WithUserID("alice"))
	require.NoError(t, err)
	_, err = client.Add(ctx, "bob's fact", WithUserID("bob"))
	require.NoError(t, err)

	results, err := client.Search(ctx, "coffee", WithUserIDForSearch("alice"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "likes espresso", results[0].Content)
}

func TestSearchCacheHitSkipsEmbedding(t *testing.T) {
	store := newStubStore()
	embedder := &stubEmbedder{}
	client, err := NewClient(testConfig(),
		WithVectorStore(store),
		WithLLMProvider(&stubLLM{}),
		WithEmbedderProvider(embedder),
		WithClientCache(cache.NewMemoryCache(time.Minute)),
	)
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	_, err = client.Add(ctx, "likes espresso", WithUserID("alice"))
	require.NoError(t, err)

	first, err := client.Search(ctx, "coffee", WithUserIDForSearch("alice"))
	require.NoError(t, err)
	embedsAfterFirst := embedder.calls

	second, err := client.Search(ctx, "coffee", WithUserIDForSearch("alice"))
	require.NoError(t, err)
	assert.Equal(t, embedsAfterFirst, embedder.calls, "a cache hit must not embed the query again")
	assert.Equal(t, first, second)
}

func TestAddInvalidatesSearchCache(t *testing.T) {
	store := newStubStore()
	client, err := NewClient(testConfig(),
		WithVectorStore(store),
		WithLLMProvider(&stubLLM{}),
		WithEmbedderProvider(&stubEmbedder{}),
		WithClientCache(cache.NewMemoryCache(time.Minute)),
	)
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	_, err = client.Add(ctx, "likes espresso", WithUserID("alice"))
	require.NoError(t, err)

	results, err := client.Search(ctx, "coffee", WithUserIDForSearch("alice"))
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = client.Add(ctx, "also likes flat whites", WithUserID("alice"))
	require.NoError(t, err)

	results, err = client.Search(ctx, "coffee", WithUserIDForSearch("alice"))
	require.NoError(t, err)
	assert.Len(t, results, 2, "a write must invalidate the user's cached searches")
}

func TestUpdate(t *testing.T) {
	store := newStubStore()
	client := newTestClient(t, testConfig(), store, &stubLLM{})
	ctx := context.Background()

	memory, err := client.Add(ctx, "old content", WithUserID("alice"))
	require.NoError(t, err)

	updated, err := client.Update(ctx, memory.ID, "new content", WithUserIDForUpdate("alice"))
	require.NoError(t, err)
	assert.Equal(t, "new content", updated.Content)

	_, err = client.Update(ctx, memory.ID, "hijack", WithUserIDForUpdate("bob"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := newStubStore()
	client := newTestClient(t, testConfig(), store, &stubLLM{})
	ctx := context.Background()

	memory, err := client.Add(ctx, "to remove", WithUserID("alice"))
	require.NoError(t, err)

	require.NoError(t, client.Delete(ctx, memory.ID, WithUserIDForDelete("alice")))
	_, err = client.Get(ctx, memory.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAllAndDeleteAll(t *testing.T) {
	store := newStubStore()
	client := newTestClient(t, testConfig(), store, &stubLLM{})
	ctx := context.Background()

	for _, content := range []string{"first", "second"} {
		_, err := client.Add(ctx, content, WithUserID("alice"))
		require.NoError(t, err)
	}
	_, err := client.Add(ctx, "other", WithUserID("bob"))
	require.NoError(t, err)

	all, err := client.GetAll(ctx, WithUserIDForGetAll("alice"))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, client.DeleteAll(ctx, WithUserIDForDeleteAll("alice")))
	all, err = client.GetAll(ctx, WithUserIDForGetAll("alice"))
	require.NoError(t, err)
	assert.Empty(t, all)

	bobs, err := client.GetAll(ctx, WithUserIDForGetAll("bob"))
	require.NoError(t, err)
	assert.Len(t, bobs, 1)
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewClient(&Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func intelligentConfig() *Config {
	cfg := testConfig()
	cfg.Intelligence = &IntelligenceConfig{
		Enabled:             true,
		DecayRate:           0.1,
		ReinforcementFactor: 0.3,
		DuplicateThreshold:  0.95,
	}
	return cfg
}

func TestIntelligentAdd(t *testing.T) {
	store := newStubStore()
	provider := &stubLLM{responses: []string{
		// Extraction, then decisions, then importance for the ADD.
		`{"facts": ["User is vegetarian"]}`,
		`{"memory": [{"id": "0", "text": "User is vegetarian", "event": "ADD"}]}`,
		`{"importance_score": 0.8}`,
	}}
	client := newTestClient(t, intelligentConfig(), store, provider)

	result, err := client.IntelligentAdd(context.Background(), "I'm vegetarian", WithUserID("alice"))
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "ADD", result.Results[0].Event)
	assert.Equal(t, "User is vegetarian", result.Results[0].Memory)
	assert.Empty(t, result.DiscardedTruisms)

	stored, err := store.Get(context.Background(), result.Results[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "User is vegetarian", stored.Content)
	assert.Equal(t, 0.8, stored.ImportanceScore)
}

func TestIntelligentAddDiscardsTruisms(t *testing.T) {
	store := newStubStore()
	provider := &stubLLM{responses: []string{
		`{"facts": ["User values efficiency"]}`,
	}}
	client := newTestClient(t, intelligentConfig(), store, provider)

	result, err := client.IntelligentAdd(context.Background(), "I value efficiency", WithUserID("alice"))
	require.NoError(t, err)
	assert.Empty(t, result.Results, "a pure truism stores nothing")
	assert.Equal(t, []string{"User values efficiency"}, result.DiscardedTruisms)
	assert.Empty(t, store.memories)
}

func TestIntelligentAddFallback(t *testing.T) {
	store := newStubStore()
	// No scripted responses: extraction fails, the fallback stores
	// the raw content instead.
	cfg := intelligentConfig()
	cfg.Intelligence.FallbackToSimpleAdd = true
	client := newTestClient(t, cfg, store, &stubLLM{})

	result, err := client.IntelligentAdd(context.Background(), "raw note", WithUserID("alice"))
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "ADD", result.Results[0].Event)

	stored, err := store.Get(context.Background(), result.Results[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "raw note", stored.Content)
}

func TestAddWithInferUsesPipeline(t *testing.T) {
	store := newStubStore()
	provider := &stubLLM{responses: []string{
		`{"facts": ["User is vegetarian"]}`,
		`{"memory": [{"id": "0", "text": "User is vegetarian", "event": "ADD"}]}`,
		`{"importance_score": 0.6}`,
	}}
	client := newTestClient(t, intelligentConfig(), store, provider)

	memory, err := client.Add(context.Background(), "I'm vegetarian",
		WithUserID("alice"), WithInfer(true))
	require.NoError(t, err)
	assert.Equal(t, "User is vegetarian", memory.Content,
		"infer mode stores the extracted fact, not the raw message")
}
