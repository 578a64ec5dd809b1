package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/listenupapp/readup/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "state"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEntity_CreateGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	notes := store.NewEntity[note](s, "note:")

	require.NoError(t, notes.Create(ctx, "1", &note{ID: "1", Body: "first"}))

	got, err := notes.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Body)
}

func TestEntity_CreateDuplicate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	notes := store.NewEntity[note](s, "note:")

	require.NoError(t, notes.Create(ctx, "1", &note{ID: "1"}))
	err := notes.Create(ctx, "1", &note{ID: "1"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_GetMissing(t *testing.T) {
	s := setupTestStore(t)
	notes := store.NewEntity[note](s, "note:")

	_, err := notes.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_PutOverwritesAndDeleteIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	notes := store.NewEntity[note](s, "note:")

	require.NoError(t, notes.Put(ctx, "1", &note{ID: "1", Body: "a"}))
	require.NoError(t, notes.Put(ctx, "1", &note{ID: "1", Body: "b"}))

	got, err := notes.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Body)

	require.NoError(t, notes.Delete(ctx, "1"))
	require.NoError(t, notes.Delete(ctx, "1"))

	_, err = notes.Get(ctx, "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_ListStaysInsidePrefix(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	notes := store.NewEntity[note](s, "note:")
	others := store.NewEntity[note](s, "other:")

	require.NoError(t, notes.Put(ctx, "b", &note{ID: "b"}))
	require.NoError(t, notes.Put(ctx, "a", &note{ID: "a"}))
	require.NoError(t, others.Put(ctx, "c", &note{ID: "c"}))

	var ids []string
	for n, err := range notes.List(ctx) {
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestEntity_CancelledContext(t *testing.T) {
	s := setupTestStore(t)
	notes := store.NewEntity[note](s, "note:")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, notes.Put(ctx, "1", &note{ID: "1"}), context.Canceled)
}
