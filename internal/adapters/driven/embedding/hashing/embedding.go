// Package hashing provides a deterministic, offline embedding service.
// Vectors are derived from token hashes, so equal texts always embed to
// equal vectors without any network dependency. Retrieval quality is
// far below a learned model; this exists for air-gapped installs and
// tests.
package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions matches the small local models we otherwise use.
const DefaultDimensions = 384

// EmbeddingService maps token hashes into a fixed-size vector.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder with the given vector
// size. Non-positive sizes fall back to DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed folds each token's hash into the vector and L2-normalizes the
// result. Tokens contribute position-independently, so this is a bag of
// hashed words.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, s.dimensions)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		sum := sha256.Sum256([]byte(tok))
		// Each 8-byte window contributes to one slot with a signed weight.
		for i := 0; i+8 <= len(sum); i += 8 {
			v := binary.LittleEndian.Uint64(sum[i : i+8])
			slot := int(v % uint64(s.dimensions))
			weight := 1.0
			if v&(1<<63) != 0 {
				weight = -1.0
			}
			vec[slot] += weight
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return "hashing"
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
