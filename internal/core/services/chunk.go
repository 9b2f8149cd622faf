package services

import (
	"fmt"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// DefaultChunkSize is the default chunk window in characters.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap between consecutive chunks.
const DefaultChunkOverlap = 200

// ChunkID derives the deterministic identifier of a chunk from its owning
// document and sequence index. Lexical ordering of chunk IDs matches
// sequence order, which keeps ranking tie-breaks reproducible.
func ChunkID(documentID string, sequence int) string {
	return fmt.Sprintf("%s-%04d", documentID, sequence)
}

// SplitChunks splits normalised text into overlapping chunks of at most
// size characters, with overlap characters shared between consecutive
// chunks. The chunks cover the full text with no gaps and Sequence is
// contiguous from 0. Text at or below size forms exactly one chunk.
func SplitChunks(documentID, text string, size, overlap int) []domain.Chunk {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}

	runes := []rune(text)
	stride := size - overlap
	chunks := make([]domain.Chunk, 0, len(runes)/stride+1)

	seq := 0
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		content := string(runes[start:end])
		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(documentID, seq),
			DocumentID: documentID,
			Sequence:   seq,
			Content:    content,
			TokenCount: CountTokens(content),
		})
		seq++
		if end == len(runes) {
			break
		}
	}

	return chunks
}
