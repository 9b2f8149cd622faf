// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the knowledge base to function:
//
//   - DocumentStore: Document and chunk persistence (source of truth)
//   - OriginalsStore: Timestamped copies of the original files
//   - Extractor / ExtractorRegistry: Format-specific text extraction
//   - KeywordIndex: Lexical TF-IDF search. Always required.
//   - VectorIndex: Embedding similarity search
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, semantic
//     and hybrid queries fall back to keyword-only, flagged as degraded.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
