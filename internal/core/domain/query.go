package domain

import "time"

// QueryMode selects the retrieval strategy.
type QueryMode string

const (
	// ModeSemantic searches by embedding similarity only.
	ModeSemantic QueryMode = "semantic"

	// ModeKeyword searches the lexical index only.
	ModeKeyword QueryMode = "keyword"

	// ModeHybrid combines semantic and keyword scores.
	ModeHybrid QueryMode = "hybrid"
)

// Valid reports whether m is a known query mode.
func (m QueryMode) Valid() bool {
	switch m {
	case ModeSemantic, ModeKeyword, ModeHybrid:
		return true
	}
	return false
}

// QueryFilter restricts query results after scoring.
// Filtering never changes relative ranking among surviving results.
type QueryFilter struct {
	// DocTypes restricts to documents of the given types. Empty means all.
	DocTypes []DocType

	// Party restricts to documents whose metadata mentions this party.
	Party string

	// DateFrom and DateTo restrict to documents with at least one extracted
	// date inside the inclusive range. Zero values disable the bound.
	DateFrom time.Time
	DateTo   time.Time
}

// Empty reports whether the filter places no restrictions.
func (f QueryFilter) Empty() bool {
	return len(f.DocTypes) == 0 && f.Party == "" && f.DateFrom.IsZero() && f.DateTo.IsZero()
}

// QueryHit is one ranked retrieval result.
type QueryHit struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Document is the chunk's owning document.
	Document Document

	// Score is the normalised relevance score in [0,1].
	Score float64

	// MatchedTerms are the query terms matched by the keyword index,
	// empty for purely semantic hits.
	MatchedTerms []string
}

// QueryResult is the ephemeral outcome of one query. Not persisted.
type QueryResult struct {
	// Hits are ranked best-first.
	Hits []QueryHit

	// Mode is the mode the query actually ran in.
	Mode QueryMode

	// Degraded is set when a semantic or hybrid query fell back to
	// keyword-only results because the embedding provider failed.
	Degraded bool
}
