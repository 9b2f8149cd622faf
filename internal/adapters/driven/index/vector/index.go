// Package vector provides an exact-scan vector index.
//
// The index implements the driven.VectorIndex contract so an
// approximate-nearest-neighbour structure can be swapped in without
// changing caller semantics. Exact scan keeps results deterministic and
// is adequate for corpora in the tens of thousands of chunks.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory exact-scan vector index.
// Reads take a shared lock, so retrieval never blocks on other readers.
type Index struct {
	mu        sync.RWMutex
	metric    driven.Metric
	dimension int
	vectors   map[string][]float32
}

// New creates a vector index with the given metric and dimension.
// Both are fixed for the lifetime of the index.
func New(metric driven.Metric, dimension int) (*Index, error) {
	switch metric {
	case driven.MetricCosine, driven.MetricEuclidean:
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	return &Index{
		metric:    metric,
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}, nil
}

// Add inserts or replaces the vector for the given chunk ID.
func (idx *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	if len(embedding) != idx.dimension {
		return fmt.Errorf("embedding has %d dimensions, index fixed at %d", len(embedding), idx.dimension)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[chunkID] = vec
	return nil
}

// Remove deletes a vector. Removing an absent ID is not an error.
func (idx *Index) Remove(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, chunkID)
	return nil
}

// Search scans all vectors and returns the k nearest, ordered by
// ascending distance with ties broken by chunk ID.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query has %d dimensions, index fixed at %d", len(query), idx.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		hits = append(hits, driven.VectorHit{ChunkID: id, Distance: idx.distance(query, vec)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Rebuild discards the contents and reloads from entries.
func (idx *Index) Rebuild(_ context.Context, entries []driven.VectorEntry) error {
	fresh := make(map[string][]float32, len(entries))
	for _, e := range entries {
		if len(e.Embedding) != idx.dimension {
			return fmt.Errorf("entry %s has %d dimensions, index fixed at %d", e.ChunkID, len(e.Embedding), idx.dimension)
		}
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		fresh[e.ChunkID] = vec
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = fresh
	return nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = make(map[string][]float32)
	return nil
}

func (idx *Index) distance(a, b []float32) float64 {
	if idx.metric == driven.MetricEuclidean {
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	}
	return cosineDistance(a, b)
}

// cosineDistance is 1 - cosine similarity, in [0,2].
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 1
	}
	return 1 - dot/denom
}
