package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "abc123-0000", ChunkID("abc123", 0))
	assert.Equal(t, "abc123-0042", ChunkID("abc123", 42))
}

func TestChunkID_LexicalOrderMatchesSequence(t *testing.T) {
	prev := ChunkID("doc", 0)
	for seq := 1; seq < 120; seq++ {
		id := ChunkID("doc", seq)
		assert.Less(t, prev, id)
		prev = id
	}
}

func TestSplitChunks_ShortTextSingleChunk(t *testing.T) {
	chunks := SplitChunks("doc1", "short text", 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "doc1-0000", chunks[0].ID)
	assert.Equal(t, "doc1", chunks[0].DocumentID)
	assert.Equal(t, 0, chunks[0].Sequence)
	assert.Equal(t, "short text", chunks[0].Content)
	assert.Equal(t, 2, chunks[0].TokenCount)
}

func TestSplitChunks_ExactSizeSingleChunk(t *testing.T) {
	text := strings.Repeat("a", 1000)
	chunks := SplitChunks("doc1", text, 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
}

func TestSplitChunks_OverlapAndCoverage(t *testing.T) {
	text := strings.Repeat("abcdefghij", 250) // 2500 chars
	chunks := SplitChunks("doc1", text, 1000, 200)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Sequence)
		assert.Equal(t, ChunkID("doc1", i), c.ID)
	}

	// Consecutive chunks share the overlap region.
	assert.Equal(t, chunks[0].Content[800:], chunks[1].Content[:200])
	assert.Equal(t, chunks[1].Content[800:], chunks[2].Content[:200])

	// Reassembling with the overlap removed reproduces the text.
	var b strings.Builder
	b.WriteString(chunks[0].Content)
	for _, c := range chunks[1:] {
		b.WriteString(c.Content[200:])
	}
	assert.Equal(t, text, b.String())
}

func TestSplitChunks_Empty(t *testing.T) {
	assert.Nil(t, SplitChunks("doc1", "", 1000, 200))
}

func TestSplitChunks_MultibyteRunesNotSplit(t *testing.T) {
	text := strings.Repeat("日本語の文書です。", 100)
	chunks := SplitChunks("doc1", text, 100, 20)
	require.NotEmpty(t, chunks)

	var b strings.Builder
	b.WriteString(chunks[0].Content)
	for _, c := range chunks[1:] {
		runes := []rune(c.Content)
		b.WriteString(string(runes[20:]))
	}
	assert.Equal(t, text, b.String())
}

func TestSplitChunks_DegenerateOverlap(t *testing.T) {
	// overlap >= size would never advance; it is clamped instead.
	text := strings.Repeat("x", 500)
	chunks := SplitChunks("doc1", text, 100, 100)
	assert.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	assert.Equal(t, len(chunks)-1, last.Sequence)
}
