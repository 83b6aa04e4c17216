package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palantir-backend/domain/core/valueobjects"
)

func TestCanonicalEdgeID_OrderIndependent(t *testing.T) {
	a := valueobjects.NewItemID()
	b := valueobjects.NewItemID()

	assert.Equal(t, CanonicalEdgeID(a, b), CanonicalEdgeID(b, a))
}

func TestNewEdge_CanonicalEndpoints(t *testing.T) {
	a := valueobjects.NewItemID()
	b := valueobjects.NewItemID()

	ab, err := NewEdge(a, b, 0.7)
	require.NoError(t, err)

	ba, err := NewEdge(b, a, 0.7)
	require.NoError(t, err)

	assert.Equal(t, ab.ID(), ba.ID())
	assert.True(t, ab.SourceID().Equals(ba.SourceID()))
	assert.True(t, ab.TargetID().Equals(ba.TargetID()))
	assert.True(t, ab.SourceID().String() < ab.TargetID().String())
}

func TestNewEdge_RejectsSelfLoop(t *testing.T) {
	a := valueobjects.NewItemID()

	_, err := NewEdge(a, a, 0.9)
	require.Error(t, err)
}

func TestNewEdge_RejectsOutOfRangeWeight(t *testing.T) {
	a := valueobjects.NewItemID()
	b := valueobjects.NewItemID()

	_, err := NewEdge(a, b, 1.5)
	require.Error(t, err)

	_, err = NewEdge(a, b, -1.5)
	require.Error(t, err)
}

func TestEdge_Touches(t *testing.T) {
	a := valueobjects.NewItemID()
	b := valueobjects.NewItemID()
	c := valueobjects.NewItemID()

	edge, err := NewEdge(a, b, 0.5)
	require.NoError(t, err)

	assert.True(t, edge.Touches(a))
	assert.True(t, edge.Touches(b))
	assert.False(t, edge.Touches(c))
}

func TestMemoryItem_Validation(t *testing.T) {
	_, err := NewMemoryItem("", "paper-1", "some text", SourceClip, "", valueobjects.Embedding{})
	require.Error(t, err)

	_, err = NewMemoryItem("owner-1", "paper-1", "   ", SourceClip, "", valueobjects.Embedding{})
	require.Error(t, err)

	item, err := NewMemoryItem("owner-1", "paper-1", "  attention is a mechanism  ", SourceClip, "", valueobjects.Embedding{})
	require.NoError(t, err)
	assert.Equal(t, "attention is a mechanism", item.Text())
	assert.Equal(t, SourceClip, item.Source())
	assert.False(t, item.HasEmbedding())
}

func TestMemoryItem_NormalizedText(t *testing.T) {
	item, err := NewMemoryItem("owner-1", "paper-1", "Attention IS a Mechanism", SourceClip, "", valueobjects.Embedding{})
	require.NoError(t, err)

	assert.Equal(t, "attention is a mechanism", item.NormalizedText())
	assert.Equal(t, item.NormalizedText(), NormalizeText("  ATTENTION is a mechanism "))
}

func TestMemoryItem_SetEmbedding(t *testing.T) {
	item, err := NewMemoryItem("owner-1", "paper-1", "graph neural networks", SourceClip, "", valueobjects.Embedding{})
	require.NoError(t, err)

	err = item.SetEmbedding(valueobjects.Embedding{})
	require.Error(t, err)

	err = item.SetEmbedding(valueobjects.NewEmbedding([]float64{0.1, 0.2}))
	require.NoError(t, err)
	assert.True(t, item.HasEmbedding())
	assert.Equal(t, []float64{0.1, 0.2}, item.Embedding().Values())
}
