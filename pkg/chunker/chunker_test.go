package chunker_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/pkg/chunker"
)

func TestSplitSentences(t *testing.T) {
	sentences := chunker.SplitSentences("First one. Second one! Third one?")
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?"}, sentences)
}

func TestSplitSentences_TrailingTextWithoutTerminator(t *testing.T) {
	sentences := chunker.SplitSentences("Done here. And this trails off")
	assert.Equal(t, []string{"Done here.", "And this trails off"}, sentences)
}

func TestSplitSentences_Empty(t *testing.T) {
	assert.Empty(t, chunker.SplitSentences("   "))
}

func TestChunker_Chunk_RespectsBoundAndOverlap(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		MaxChunkSize:     60,
		OverlapSentences: 1,
		MinSentences:     1,
	}, nil)

	var sentences []string
	for i := 0; i < 6; i++ {
		sentences = append(sentences, fmt.Sprintf("This is sentence number %d.", i))
	}
	chunks := c.Chunk(strings.Join(sentences, " "), 0)

	require.Len(t, chunks, 5)
	assert.Equal(t, "This is sentence number 0. This is sentence number 1.", chunks[0].Content)

	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.Length, 60)
		assert.Equal(t, len(ch.Content), ch.Length)
		assert.Equal(t, 0, ch.Source)
	}

	// Each chunk starts with the last sentence of the previous one.
	for i := 1; i < len(chunks); i++ {
		prev := chunker.SplitSentences(chunks[i-1].Content)
		assert.True(t, strings.HasPrefix(chunks[i].Content, prev[len(prev)-1]))
	}
}

func TestChunker_Chunk_OversizedSentenceEmittedAlone(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		MaxChunkSize:     30,
		OverlapSentences: 2,
		MinSentences:     1,
	}, nil)

	long := strings.Repeat("word ", 16) + "end." // far beyond the bound
	chunks := c.Chunk("Short one. "+long+" Short two.", 0)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Short one.", chunks[0].Content)
	assert.Greater(t, chunks[1].Length, 30)
	assert.Equal(t, "Short two.", chunks[2].Content)
}

func TestChunker_Chunk_NoSentenceBoundaries(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{MaxChunkSize: 100}, nil)

	chunks := c.Chunk("no terminator at all", 3)
	require.Len(t, chunks, 1)
	assert.Equal(t, "no terminator at all", chunks[0].Content)
	assert.Equal(t, 3, chunks[0].Source)
}

func TestChunker_Chunk_EmptyInput(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{}, nil)
	assert.Empty(t, c.Chunk("   ", 0))
}

func TestChunker_ChunkMany_TracksSources(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{MaxChunkSize: 512}, nil)

	chunks := c.ChunkMany([]string{"First text here.", "Second text here."})
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Source)
	assert.Equal(t, 1, chunks[1].Source)
}

func TestInfo(t *testing.T) {
	chunks := []models.TextChunk{
		{Content: "aaaa", Length: 4},
		{Content: "aaaaaaaa", Length: 8},
	}

	info := chunker.Info(chunks)
	assert.Equal(t, 2, info.TotalChunks)
	assert.Equal(t, 4, info.MinLength)
	assert.Equal(t, 8, info.MaxLength)
	assert.Equal(t, 12, info.TotalChars)
	assert.InDelta(t, 6.0, info.AvgLength, 0.001)
}

func TestInfo_Empty(t *testing.T) {
	assert.Equal(t, models.ChunkInfo{}, chunker.Info(nil))
}
