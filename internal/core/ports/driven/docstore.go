package driven

import (
	"context"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// DocumentFilter narrows ListDocuments.
type DocumentFilter struct {
	// DocType restricts to one document type when non-empty.
	DocType domain.DocType
}

// ChunkRecord pairs a chunk with its stored embedding for full scans.
type ChunkRecord struct {
	Chunk domain.Chunk
}

// DocumentStore persists documents and chunks.
// It is the source of truth: both indexes must be rebuildable from it.
type DocumentStore interface {
	// SaveDocument stores a document together with all of its chunks in a
	// single atomic commit. A partially applied save is never observable.
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// FindByContentHash returns the document with the given content hash,
	// or domain.ErrNotFound. This backs the deduplication guarantee.
	FindByContentHash(ctx context.Context, hash string) (*domain.Document, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document, ordered by sequence.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteDocument removes a document and cascades to its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns documents matching the filter.
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]domain.Document, error)

	// ScanChunks streams every stored chunk through fn. Used to rebuild
	// the indexes from scratch. Returning an error from fn stops the scan.
	ScanChunks(ctx context.Context, fn func(ChunkRecord) error) error

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// Close releases resources.
	Close() error
}
