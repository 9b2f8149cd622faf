package driven

import "context"

// Metric selects the distance function of a vector index.
// It is fixed at initialisation and must match the embedding provider's
// intended metric.
type Metric string

const (
	// MetricCosine uses cosine distance (1 - cosine similarity).
	MetricCosine Metric = "cosine"

	// MetricEuclidean uses Euclidean (L2) distance.
	MetricEuclidean Metric = "euclidean"
)

// VectorEntry is one chunk embedding for bulk rebuilds.
type VectorEntry struct {
	ChunkID   string
	Embedding []float32
}

// VectorIndex provides similarity search over chunk embeddings.
// The current implementation is an exact scan; the contract tolerates
// swapping in an approximate-nearest-neighbour structure without changing
// caller semantics.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given chunk ID.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Remove deletes a vector from the index. Removing an absent ID is
	// not an error.
	Remove(ctx context.Context, chunkID string) error

	// Search finds the k nearest neighbours to the query vector, ordered
	// by ascending distance with ties broken by chunk ID.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Rebuild discards the index contents and reloads it from entries.
	// This is the recovery path when the index is out of sync with the store.
	Rebuild(ctx context.Context, entries []VectorEntry) error

	// Len returns the number of indexed vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Distance is the raw distance under the index metric; lower is closer.
	Distance float64
}
