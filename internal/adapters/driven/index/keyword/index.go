// Package keyword provides an incremental in-memory inverted index with
// TF-IDF scoring. It implements the driven.KeywordIndex contract.
package keyword

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.KeywordIndex = (*Index)(nil)

// postings maps chunk ID to the term's frequency in that chunk.
type postings map[string]int

// Index is an inverted index over chunk tokens. Adds and removes are
// incremental; no full rebuild is needed for normal traffic.
type Index struct {
	mu sync.RWMutex

	// terms maps token -> chunkID -> term frequency.
	terms map[string]postings

	// lengths maps chunkID -> token count, for TF normalisation.
	lengths map[string]int

	// chunkTerms remembers each chunk's tokens so Remove can unwind
	// its postings without the original text.
	chunkTerms map[string][]string
}

// New creates an empty keyword index.
func New() *Index {
	return &Index{
		terms:      make(map[string]postings),
		lengths:    make(map[string]int),
		chunkTerms: make(map[string][]string),
	}
}

// Tokenize lowercases text and splits on non-letter, non-digit
// boundaries.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Add tokenises text and indexes it under the chunk ID, replacing any
// previous entry for that ID.
func (idx *Index) Add(ctx context.Context, chunkID string, text string) error {
	tokens := Tokenize(text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(chunkID)

	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}

	uniq := make([]string, 0, len(freq))
	for tok, n := range freq {
		p, ok := idx.terms[tok]
		if !ok {
			p = make(postings)
			idx.terms[tok] = p
		}
		p[chunkID] = n
		uniq = append(uniq, tok)
	}

	idx.lengths[chunkID] = len(tokens)
	idx.chunkTerms[chunkID] = uniq
	return nil
}

// Remove deletes a chunk from the index. Removing an absent ID is not
// an error.
func (idx *Index) Remove(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)
	return nil
}

func (idx *Index) removeLocked(chunkID string) {
	tokens, ok := idx.chunkTerms[chunkID]
	if !ok {
		return
	}
	for _, tok := range tokens {
		if p, ok := idx.terms[tok]; ok {
			delete(p, chunkID)
			if len(p) == 0 {
				delete(idx.terms, tok)
			}
		}
	}
	delete(idx.chunkTerms, chunkID)
	delete(idx.lengths, chunkID)
}

// Search scores chunks by term frequency weighted by inverse document
// frequency across the current chunk set. Results are ordered by
// descending score, ties broken by chunk ID.
func (idx *Index) Search(_ context.Context, query string, k int) ([]driven.KeywordHit, error) {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 || k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	total := len(idx.chunkTerms)
	if total == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	matched := make(map[string][]string)

	seen := make(map[string]struct{}, len(queryTerms))
	for _, term := range queryTerms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		p, ok := idx.terms[term]
		if !ok {
			continue
		}
		// Smoothed IDF keeps terms present in every chunk from scoring
		// exactly zero.
		idf := math.Log(1 + float64(total)/float64(len(p)))
		for chunkID, freq := range p {
			tf := float64(freq) / float64(idx.lengths[chunkID])
			scores[chunkID] += tf * idf
			matched[chunkID] = append(matched[chunkID], term)
		}
	}

	hits := make([]driven.KeywordHit, 0, len(scores))
	for chunkID, score := range scores {
		terms := matched[chunkID]
		sort.Strings(terms)
		hits = append(hits, driven.KeywordHit{ChunkID: chunkID, Score: score, MatchedTerms: terms})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Rebuild discards the contents and reloads from entries.
func (idx *Index) Rebuild(ctx context.Context, entries []driven.KeywordEntry) error {
	fresh := New()
	for _, e := range entries {
		if err := fresh.Add(ctx, e.ChunkID, e.Text); err != nil {
			return err
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.terms = fresh.terms
	idx.lengths = fresh.lengths
	idx.chunkTerms = fresh.chunkTerms
	return nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunkTerms)
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.terms = make(map[string]postings)
	idx.lengths = make(map[string]int)
	idx.chunkTerms = make(map[string][]string)
	return nil
}
