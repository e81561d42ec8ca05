package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmw/qualcoder/pkg/llm"
)

func TestNewEmbedder(t *testing.T) {
	e, err := llm.NewEmbedder(llm.EmbedderConfig{
		Model:   "nomic-embed-text:latest",
		BaseURL: "http://localhost:11434",
	}, nil)

	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestEmbedder_Embed_EmptyInput(t *testing.T) {
	e, err := llm.NewEmbedder(llm.EmbedderConfig{}, nil)
	require.NoError(t, err)

	vectors, err := e.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestNoopEmbedder(t *testing.T) {
	var e llm.NoopEmbedder

	vectors, err := e.Embed(context.Background(), []string{"anything"})
	assert.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, 0, e.Dimension())
}
