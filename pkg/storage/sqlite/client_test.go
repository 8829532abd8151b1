package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
	"github.com/agenticmem/agenticmem-go/pkg/storage/sqlite"
)

func newTestClient(t *testing.T) *sqlite.Client {
	t.Helper()
	client, err := sqlite.NewClient(&sqlite.Config{
		Path: filepath.Join(t.TempDir(), "memories.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func insertMemory(t *testing.T, client *sqlite.Client, id int64, userID, content string, embedding []float64) *storage.Memory {
	t.Helper()
	memory := &storage.Memory{
		ID:                id,
		UserID:            userID,
		Content:           content,
		Embedding:         embedding,
		Metadata:          map[string]interface{}{"source": "test"},
		RetentionStrength: 1.0,
	}
	require.NoError(t, client.Insert(context.Background(), memory))
	return memory
}

func TestInsertAndGet(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "User prefers oat milk", []float64{1, 0, 0})

	got, err := client.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "User prefers oat milk", got.Content)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, []float64{1, 0, 0}, got.Embedding)
	assert.Equal(t, "test", got.Metadata["source"])
	assert.Equal(t, 1.0, got.RetentionStrength)
	assert.Nil(t, got.LastAccessedAt)
}

func TestGetNotFound(t *testing.T) {
	client := newTestClient(t)
	_, err := client.Get(context.Background(), 42, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetAccessControl(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "private fact", []float64{1, 0, 0})

	_, err := client.Get(context.Background(), 1, &storage.GetOptions{UserID: "bob"})
	assert.ErrorIs(t, err, storage.ErrNotFound, "another user's memory must be invisible")

	got, err := client.Get(context.Background(), 1, &storage.GetOptions{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "private fact", got.Content)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "exact match", []float64{1, 0, 0})
	insertMemory(t, client, 2, "alice", "close match", []float64{0.9, 0.1, 0})
	insertMemory(t, client, 3, "alice", "orthogonal", []float64{0, 1, 0})

	results, err := client.Search(context.Background(), []float64{1, 0, 0}, &storage.SearchOptions{
		UserID: "alice",
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact match", results[0].Content)
	assert.Equal(t, "close match", results[1].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchMinScore(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "exact match", []float64{1, 0, 0})
	insertMemory(t, client, 2, "alice", "orthogonal", []float64{0, 1, 0})

	results, err := client.Search(context.Background(), []float64{1, 0, 0}, &storage.SearchOptions{
		UserID:   "alice",
		Limit:    10,
		MinScore: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "exact match", results[0].Content)
}

func TestSearchScopedToUser(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "alice memory", []float64{1, 0, 0})
	insertMemory(t, client, 2, "bob", "bob memory", []float64{1, 0, 0})

	results, err := client.Search(context.Background(), []float64{1, 0, 0}, &storage.SearchOptions{
		UserID: "alice",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice memory", results[0].Content)
}

func TestUpdate(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "old content", []float64{1, 0, 0})

	updated, err := client.Update(context.Background(), 1, "new content", []float64{0, 1, 0}, &storage.UpdateOptions{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "new content", updated.Content)
	assert.Equal(t, []float64{0, 1, 0}, updated.Embedding)

	_, err = client.Update(context.Background(), 1, "hijack", []float64{1, 1, 1}, &storage.UpdateOptions{UserID: "bob"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "to remove", []float64{1, 0, 0})

	require.NoError(t, client.Delete(context.Background(), 1, &storage.DeleteOptions{UserID: "alice"}))
	_, err := client.Get(context.Background(), 1, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetAllAndDeleteAll(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "first", []float64{1, 0, 0})
	insertMemory(t, client, 2, "alice", "second", []float64{0, 1, 0})
	insertMemory(t, client, 3, "bob", "other", []float64{0, 0, 1})

	all, err := client.GetAll(context.Background(), &storage.GetAllOptions{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, client.DeleteAll(context.Background(), &storage.DeleteAllOptions{UserID: "alice"}))

	all, err = client.GetAll(context.Background(), &storage.GetAllOptions{UserID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, all)

	bobs, err := client.GetAll(context.Background(), &storage.GetAllOptions{UserID: "bob"})
	require.NoError(t, err)
	assert.Len(t, bobs, 1, "other users' memories must survive a scoped wipe")
}

func TestTouch(t *testing.T) {
	client := newTestClient(t)
	insertMemory(t, client, 1, "alice", "accessed fact", []float64{1, 0, 0})

	require.NoError(t, client.Touch(context.Background(), 1, 0.7))

	got, err := client.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.RetentionStrength)
	require.NotNil(t, got.LastAccessedAt, "a touched memory records its access time")

	assert.ErrorIs(t, client.Touch(context.Background(), 42, 0.5), storage.ErrNotFound)
}
