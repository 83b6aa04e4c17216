package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
	pkgerrors "palantir-backend/pkg/errors"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.json")
	return NewStore(path, zap.NewNop()), path
}

func newItem(t *testing.T, ownerID, paperID, text string, vector []float64) *entities.MemoryItem {
	t.Helper()
	item, err := entities.NewMemoryItem(
		ownerID, paperID, text, entities.SourceClip, "", valueobjects.NewEmbedding(vector),
	)
	require.NoError(t, err)
	return item
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	items, err := store.ListItems(context.Background(), "demo-user")
	require.NoError(t, err)
	assert.Empty(t, items)

	edges, err := store.ListEdges(context.Background(), "demo-user")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestStore_RoundTripSurvivesReopen(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	item := newItem(t, "demo-user", "paper-1", "persisted text", []float64{0.1, 0.2, 0.3})
	item.AttachNote("a note")
	require.NoError(t, store.SaveItem(ctx, item))

	// A fresh store over the same file sees everything
	reopened := NewStore(path, zap.NewNop())
	got, err := reopened.GetItem(ctx, item.ID())
	require.NoError(t, err)

	assert.Equal(t, item.ID().String(), got.ID().String())
	assert.Equal(t, "persisted text", got.Text())
	assert.Equal(t, "a note", got.Note())
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, got.Embedding().Values())
	assert.True(t, item.CreatedAt().Equal(got.CreatedAt()))
}

func TestStore_GetItemNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetItem(context.Background(), valueobjects.NewItemID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_SaveItemReplacesExisting(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	item := newItem(t, "demo-user", "paper-1", "original", nil)
	require.NoError(t, store.SaveItem(ctx, item))

	item.AttachNote("updated note")
	require.NoError(t, store.SaveItem(ctx, item))

	items, err := store.ListItems(ctx, "demo-user")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "updated note", items[0].Note())
}

func TestStore_FindDuplicate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	item := newItem(t, "demo-user", "paper-1", "The Transformer Architecture", nil)
	require.NoError(t, store.SaveItem(ctx, item))

	found, err := store.FindDuplicate(ctx, "demo-user", "paper-1",
		entities.NormalizeText("  the transformer architecture "))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, item.ID().String(), found.ID().String())

	// Different paper, same text: not a duplicate
	found, err = store.FindDuplicate(ctx, "demo-user", "paper-2",
		entities.NormalizeText("the transformer architecture"))
	require.NoError(t, err)
	assert.Nil(t, found)

	// Different owner: not a duplicate
	found, err = store.FindDuplicate(ctx, "other-user", "paper-1",
		entities.NormalizeText("the transformer architecture"))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestStore_DeleteItemCascadesEdges(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := newItem(t, "demo-user", "paper-1", "item a", []float64{1, 0})
	b := newItem(t, "demo-user", "paper-1", "item b", []float64{0.9, 0.1})
	c := newItem(t, "demo-user", "paper-1", "item c", []float64{0.8, 0.2})
	for _, item := range []*entities.MemoryItem{a, b, c} {
		require.NoError(t, store.SaveItem(ctx, item))
	}

	ab, err := entities.NewEdge(a.ID(), b.ID(), 0.9)
	require.NoError(t, err)
	bc, err := entities.NewEdge(b.ID(), c.ID(), 0.8)
	require.NoError(t, err)
	require.NoError(t, store.UpsertEdge(ctx, ab))
	require.NoError(t, store.UpsertEdge(ctx, bc))

	require.NoError(t, store.DeleteItem(ctx, b.ID()))

	items, err := store.ListItems(ctx, "demo-user")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	edges, err := store.ListEdges(ctx, "demo-user")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestStore_DeleteItemNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.DeleteItem(context.Background(), valueobjects.NewItemID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_UpsertEdgeIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := newItem(t, "demo-user", "paper-1", "item a", []float64{1, 0})
	b := newItem(t, "demo-user", "paper-1", "item b", []float64{0.9, 0.1})
	require.NoError(t, store.SaveItem(ctx, a))
	require.NoError(t, store.SaveItem(ctx, b))

	first, err := entities.NewEdge(a.ID(), b.ID(), 0.7)
	require.NoError(t, err)
	require.NoError(t, store.UpsertEdge(ctx, first))

	// Same pair again with an updated weight
	second, err := entities.NewEdge(b.ID(), a.ID(), 0.75)
	require.NoError(t, err)
	require.NoError(t, store.UpsertEdge(ctx, second))

	edges, err := store.ListEdges(ctx, "demo-user")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.InDelta(t, 0.75, edges[0].Weight(), 1e-9)
}

func TestStore_ListEdgesRequiresBothEndpointsOwned(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	mine := newItem(t, "demo-user", "paper-1", "mine", []float64{1, 0})
	theirs := newItem(t, "other-user", "paper-1", "theirs", []float64{1, 0})
	require.NoError(t, store.SaveItem(ctx, mine))
	require.NoError(t, store.SaveItem(ctx, theirs))

	cross, err := entities.NewEdge(mine.ID(), theirs.ID(), 0.9)
	require.NoError(t, err)
	require.NoError(t, store.UpsertEdge(ctx, cross))

	edges, err := store.ListEdges(ctx, "demo-user")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestStore_ReplaceEdges(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := newItem(t, "demo-user", "paper-1", "item a", []float64{1, 0})
	b := newItem(t, "demo-user", "paper-1", "item b", []float64{0.9, 0.1})
	c := newItem(t, "demo-user", "paper-1", "item c", []float64{0.8, 0.2})
	for _, item := range []*entities.MemoryItem{a, b, c} {
		require.NoError(t, store.SaveItem(ctx, item))
	}

	ab, err := entities.NewEdge(a.ID(), b.ID(), 0.9)
	require.NoError(t, err)
	require.NoError(t, store.UpsertEdge(ctx, ab))

	bc, err := entities.NewEdge(b.ID(), c.ID(), 0.6)
	require.NoError(t, err)
	require.NoError(t, store.ReplaceEdges(ctx, "demo-user", []*entities.Edge{bc}))

	edges, err := store.ListEdges(ctx, "demo-user")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, bc.ID(), edges[0].ID())
}

func TestStore_CorruptFileDegradesReads(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	// Reads degrade to empty rather than failing
	items, err := store.ListItems(ctx, "demo-user")
	require.NoError(t, err)
	assert.Empty(t, items)

	edges, err := store.ListEdges(ctx, "demo-user")
	require.NoError(t, err)
	assert.Empty(t, edges)

	// Writes refuse to clobber a file they cannot parse
	err = store.SaveItem(ctx, newItem(t, "demo-user", "paper-1", "text", nil))
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeDatabase, appErr.Type)
}
