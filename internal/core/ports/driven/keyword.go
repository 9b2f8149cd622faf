package driven

import "context"

// KeywordEntry is one chunk text for bulk rebuilds.
type KeywordEntry struct {
	ChunkID string
	Text    string
}

// KeywordIndex provides lexical search over chunk tokens.
// Tokenisation lowercases and splits on word boundaries; scoring is term
// frequency weighted by inverse document frequency over the live chunk set.
type KeywordIndex interface {
	// Add tokenises text and indexes it under the chunk ID, replacing any
	// previous entry for that ID.
	Add(ctx context.Context, chunkID string, text string) error

	// Remove deletes a chunk from the index. Removing an absent ID is
	// not an error.
	Remove(ctx context.Context, chunkID string) error

	// Search returns up to k chunks ranked by TF-IDF relevance, ties
	// broken by chunk ID.
	Search(ctx context.Context, query string, k int) ([]KeywordHit, error)

	// Rebuild discards the index contents and reloads it from entries.
	Rebuild(ctx context.Context, entries []KeywordEntry) error

	// Len returns the number of indexed chunks.
	Len() int

	// Close releases resources.
	Close() error
}

// KeywordHit is a lexical search result.
type KeywordHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the raw TF-IDF relevance score; higher is better.
	Score float64

	// MatchedTerms are the query terms present in the chunk.
	MatchedTerms []string
}
