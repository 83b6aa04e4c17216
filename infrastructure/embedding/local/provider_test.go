package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_Deterministic(t *testing.T) {
	provider := NewProvider(64)
	ctx := context.Background()

	first, err := provider.Embed(ctx, "attention is all you need")
	require.NoError(t, err)
	second, err := provider.Embed(ctx, "attention is all you need")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEmbed_DifferentTextDifferentVector(t *testing.T) {
	provider := NewProvider(64)
	ctx := context.Background()

	a, err := provider.Embed(ctx, "first text")
	require.NoError(t, err)
	b, err := provider.Embed(ctx, "second text")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEmbed_UnitNorm(t *testing.T) {
	provider := NewProvider(128)

	vector, err := provider.Embed(context.Background(), "some clip text")
	require.NoError(t, err)
	require.Len(t, vector, 128)

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestNewProvider_DefaultDimensions(t *testing.T) {
	provider := NewProvider(0)
	assert.Equal(t, 384, provider.Dimensions())

	vector, err := provider.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vector, 384)
}
