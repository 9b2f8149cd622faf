package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExtractionFailed indicates the content extractor rejected the
	// input. Recoverable: the file is skipped, batches continue.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrEmbedFailed indicates the embedding provider failed or timed out.
	// The affected document's ingestion is rolled back in full.
	ErrEmbedFailed = errors.New("embedding failed")

	// ErrStorage indicates a durable-storage I/O failure. It aborts the
	// enclosing operation and is never partially applied.
	ErrStorage = errors.New("storage error")

	// ErrInvalidQuery indicates a caller error (e.g. empty query text).
	// No state change occurs.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrDimensionMismatch indicates the embedding provider returned a
	// vector whose dimension differs from the one fixed at knowledge base
	// initialisation. This is a fatal configuration error, not a
	// per-document failure.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnsupportedType indicates no extractor handles the file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic and hybrid queries degrade to keyword-only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrClosed indicates the knowledge base has been closed.
	ErrClosed = errors.New("knowledge base closed")
)
