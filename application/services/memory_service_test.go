package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
	memorystore "palantir-backend/infrastructure/persistence/memory"
	pkgerrors "palantir-backend/pkg/errors"
)

// stubEmbedder returns canned vectors per text, or fails on demand
type stubEmbedder struct {
	vectors map[string][]float64
	fail    bool
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if s.fail {
		return nil, errors.New("provider unavailable")
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return nil, errors.New("no vector for text")
}

func (s *stubEmbedder) Dimensions() int { return 2 }

func newTestService(embedder *stubEmbedder) (*MemoryService, *memorystore.Store) {
	store := memorystore.NewStore()
	logger := zap.NewNop()
	graph := NewGraphService(store, logger)
	return NewMemoryService(store, embedder, graph, 0.5, logger), store
}

// unitVectorAt returns a 2D unit vector whose cosine against (1,0) is c
func unitVectorAt(c float64) []float64 {
	return []float64{c, math.Sqrt(1 - c*c)}
}

func TestCreateItem_ConnectsSimilarItems(t *testing.T) {
	// Scenario: two clips whose embeddings have cosine 0.82, threshold 0.5
	svc, _ := newTestService(&stubEmbedder{})
	ctx := context.Background()

	e1 := unitVectorAt(1.0) // (1, 0)
	e2 := unitVectorAt(0.82)

	first, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "Attention is a mechanism",
		Embedding: e1,
	})
	require.NoError(t, err)
	assert.Empty(t, first.NewEdges)
	assert.True(t, first.HasEmbedding)

	second, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "Attention allows weighting of inputs",
		Embedding: e2,
	})
	require.NoError(t, err)
	require.Len(t, second.NewEdges, 1)
	assert.InDelta(t, 0.82, second.NewEdges[0].Weight(), 1e-9)
	assert.Equal(t,
		entities.CanonicalEdgeID(first.Item.ID(), second.Item.ID()),
		second.NewEdges[0].ID(),
	)
}

func TestCreateItem_ThresholdExcludesWeakPairs(t *testing.T) {
	// Same embeddings, threshold 0.9: no edge, both items still listed
	svc, _ := newTestService(&stubEmbedder{})
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "Attention is a mechanism",
		Embedding: unitVectorAt(1.0),
		Threshold: 0.9,
	})
	require.NoError(t, err)

	second, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "Attention allows weighting of inputs",
		Embedding: unitVectorAt(0.82),
		Threshold: 0.9,
	})
	require.NoError(t, err)
	assert.Empty(t, second.NewEdges)

	items, err := svc.ListItems(ctx, "demo-user")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCreateItem_NoEmbedding(t *testing.T) {
	// Provider failure degrades to an item without a vector and no edges
	svc, _ := newTestService(&stubEmbedder{fail: true})
	ctx := context.Background()

	result, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-1",
		Text:    "Graph neural networks learn molecular structure",
	})
	require.NoError(t, err)
	assert.False(t, result.HasEmbedding)
	assert.Empty(t, result.NewEdges)
	assert.False(t, result.Deduplicated)

	items, err := svc.ListItems(ctx, "demo-user")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].HasEmbedding())
}

func TestCreateItem_UsesProviderWhenNoVectorSupplied(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"transformers changed NLP": unitVectorAt(0.7),
	}}
	svc, _ := newTestService(embedder)

	result, err := svc.CreateItem(context.Background(), CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-1",
		Text:    "transformers changed NLP",
	})
	require.NoError(t, err)
	assert.True(t, result.HasEmbedding)
}

func TestCreateItem_DuplicateGuard(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{fail: true})
	ctx := context.Background()

	first, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-1",
		Text:    "The Transformer architecture revolutionized NLP",
	})
	require.NoError(t, err)

	second, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-1",
		Text:    "  the transformer ARCHITECTURE revolutionized nlp ",
	})
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Item.ID().String(), second.Item.ID().String())

	items, err := svc.ListItems(ctx, "demo-user")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCreateItem_DuplicateGuardScopedToPaper(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{fail: true})
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-1",
		Text:    "same text",
	})
	require.NoError(t, err)

	other, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-2",
		Text:    "same text",
	})
	require.NoError(t, err)
	assert.False(t, other.Deduplicated)
}

func TestCreateItem_RejectsOutOfRangeThreshold(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{fail: true})

	for _, threshold := range []float64{-0.1, 1.0, 1.5} {
		_, err := svc.CreateItem(context.Background(), CreateItemInput{
			OwnerID:   "demo-user",
			PaperID:   "paper-1",
			Text:      "some text",
			Threshold: threshold,
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	}
}

func TestDeleteItem_CascadesEdges(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{})
	ctx := context.Background()

	first, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "first clip",
		Embedding: unitVectorAt(1.0),
	})
	require.NoError(t, err)

	second, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "second clip",
		Embedding: unitVectorAt(0.95),
	})
	require.NoError(t, err)
	require.Len(t, second.NewEdges, 1)

	require.NoError(t, svc.DeleteItem(ctx, first.Item.ID()))

	graph, err := svc.GetGraph(ctx, "demo-user")
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 1)
	assert.Empty(t, graph.Edges)
}

func TestDeleteItem_NotFound(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{})

	_, err := svc.CreateItem(context.Background(), CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "a clip",
		Embedding: unitVectorAt(1.0),
	})
	require.NoError(t, err)

	err = svc.DeleteItem(context.Background(), valueobjects.NewItemID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestListItems_NewestFirst(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{fail: true})
	ctx := context.Background()

	for _, text := range []string{"oldest", "middle", "newest"} {
		_, err := svc.CreateItem(ctx, CreateItemInput{
			OwnerID: "demo-user",
			PaperID: "paper-1",
			Text:    text,
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	items, err := svc.ListItems(ctx, "demo-user")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "newest", items[0].Text())
	assert.Equal(t, "oldest", items[2].Text())
}

func TestGetGraph_ScopedToOwner(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{})
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "alice",
		PaperID:   "paper-1",
		Text:      "alice clip",
		Embedding: unitVectorAt(1.0),
	})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "bob",
		PaperID:   "paper-1",
		Text:      "bob clip",
		Embedding: unitVectorAt(1.0),
	})
	require.NoError(t, err)

	graph, err := svc.GetGraph(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "alice clip", graph.Nodes[0].Text())
	assert.Empty(t, graph.Edges)
}

func TestAttachNote(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{fail: true})
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-1",
		Text:    "clip with a note",
	})
	require.NoError(t, err)

	item, err := svc.AttachNote(ctx, created.Item.ID(), "remember this for the related-work section")
	require.NoError(t, err)
	assert.Equal(t, "remember this for the related-work section", item.Note())

	items, err := svc.ListItems(ctx, "demo-user")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "remember this for the related-work section", items[0].Note())
}

func TestBackfillEmbedding_ConnectsItem(t *testing.T) {
	embedder := &stubEmbedder{fail: true}
	svc, _ := newTestService(embedder)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "anchor clip",
		Embedding: unitVectorAt(1.0),
	})
	require.NoError(t, err)

	// Provider is down during creation
	orphan, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-1",
		Text:    "orphan clip",
	})
	require.NoError(t, err)
	assert.False(t, orphan.HasEmbedding)

	// Provider recovers
	embedder.fail = false
	embedder.vectors = map[string][]float64{"orphan clip": unitVectorAt(0.8)}

	result, err := svc.BackfillEmbedding(ctx, orphan.Item.ID(), 0)
	require.NoError(t, err)
	assert.True(t, result.HasEmbedding)
	require.Len(t, result.NewEdges, 1)
	assert.InDelta(t, 0.8, result.NewEdges[0].Weight(), 1e-9)
}

func TestBackfillEmbedding_AlreadyEmbedded(t *testing.T) {
	svc, _ := newTestService(&stubEmbedder{})
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID:   "demo-user",
		PaperID:   "paper-1",
		Text:      "already has a vector",
		Embedding: unitVectorAt(1.0),
	})
	require.NoError(t, err)

	_, err = svc.BackfillEmbedding(ctx, created.Item.ID(), 0)
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeConflict, appErr.Type)
}

func TestBackfillEmbedding_SurfacesProviderFailure(t *testing.T) {
	embedder := &stubEmbedder{fail: true}
	svc, _ := newTestService(embedder)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, CreateItemInput{
		OwnerID: "demo-user",
		PaperID: "paper-1",
		Text:    "still no vector",
	})
	require.NoError(t, err)

	_, err = svc.BackfillEmbedding(ctx, created.Item.ID(), 0)
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeExternal, appErr.Type)
}
