package keyword

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases", "Settlement AGREEMENT", []string{"settlement", "agreement"}},
		{"splits on punctuation", "breach-of-contract, damages.", []string{"breach", "of", "contract", "damages"}},
		{"keeps digits", "section 12b", []string{"section", "12b"}},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndex_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Add(ctx, "a-0000", "the payment was overdue"))
	require.NoError(t, idx.Add(ctx, "b-0000", "the meeting was rescheduled"))

	hits, err := idx.Search(ctx, "payment", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a-0000", hits[0].ChunkID)
	assert.Equal(t, []string{"payment"}, hits[0].MatchedTerms)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestIndex_Search_RareTermOutscoresCommon(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Add(ctx, "a-0000", "contract contract contract"))
	require.NoError(t, idx.Add(ctx, "b-0000", "contract"))
	require.NoError(t, idx.Add(ctx, "c-0000", "indemnification clause"))

	hits, err := idx.Search(ctx, "contract indemnification", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// "indemnification" appears in one chunk of three; its IDF beats the
	// common term's.
	assert.Equal(t, "c-0000", hits[0].ChunkID)
}

func TestIndex_Search_TieBreaksOnChunkID(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Add(ctx, "b-0000", "deposition transcript"))
	require.NoError(t, idx.Add(ctx, "a-0000", "deposition transcript"))

	hits, err := idx.Search(ctx, "deposition", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "a-0000", hits[0].ChunkID)
	assert.Equal(t, "b-0000", hits[1].ChunkID)
}

func TestIndex_Add_ReplacesPreviousEntry(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Add(ctx, "a-0000", "old wording about damages"))
	require.NoError(t, idx.Add(ctx, "a-0000", "new wording about remedies"))

	hits, err := idx.Search(ctx, "damages", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, "remedies", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, idx.Len())
}

func TestIndex_Remove(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Add(ctx, "a-0000", "notice of deposition"))
	require.NoError(t, idx.Remove(ctx, "a-0000"))

	hits, err := idx.Search(ctx, "deposition", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, idx.Len())

	assert.NoError(t, idx.Remove(ctx, "never-there"))
}

func TestIndex_Search_EmptyQueryAndIndex(t *testing.T) {
	ctx := context.Background()
	idx := New()

	hits, err := idx.Search(ctx, "...", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Add(ctx, "a-0000", "something"))
	hits, err = idx.Search(ctx, "something", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_Rebuild(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Add(ctx, "stale-0000", "obsolete content"))

	entries := []driven.KeywordEntry{
		{ChunkID: "a-0000", Text: "complaint for breach"},
		{ChunkID: "b-0000", Text: "answer to complaint"},
	}
	require.NoError(t, idx.Rebuild(ctx, entries))

	assert.Equal(t, 2, idx.Len())
	hits, err := idx.Search(ctx, "obsolete", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, "complaint", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}
