package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicIsStableAndDimensioned(t *testing.T) {
	e := NewDeterministic(16)
	ctx := context.Background()

	out1, err := e.Embed(ctx, []string{"hello world"})
	require.NoError(t, err)
	require.Len(t, out1, 1)
	assert.Len(t, out1[0], 16)

	out2, err := e.Embed(ctx, []string{"hello world"})
	require.NoError(t, err)
	assert.Equal(t, out1[0], out2[0], "same text must produce the same vector")

	out3, err := e.Embed(ctx, []string{"a different string"})
	require.NoError(t, err)
	assert.NotEqual(t, out1[0], out3[0])
}

func TestDeterministicDefaultsDimension(t *testing.T) {
	e := NewDeterministic(0)
	assert.Equal(t, 384, e.Dimension())
}
