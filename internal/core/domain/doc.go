// Package domain defines the core business entities for the case
// knowledge base.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested case document with extracted metadata
//   - Chunk: A searchable unit within a document
//   - RawFile: Opaque bytes handed to the ingestion boundary
//   - QueryResult: A ranked retrieval result
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
