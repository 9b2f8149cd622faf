package driving

import (
	"context"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// Ingestor is the write boundary of the knowledge base.
type Ingestor interface {
	// Ingest processes one file through the full pipeline and returns an
	// explicit outcome. Errors wrap one of domain.ErrExtractionFailed,
	// domain.ErrEmbedFailed or domain.ErrStorage.
	Ingest(ctx context.Context, raw domain.RawFile) (domain.IngestOutcome, error)

	// IngestBatch processes files with bounded concurrency, reporting each
	// file's outcome independently. A failing file never aborts the batch.
	IngestBatch(ctx context.Context, raws []domain.RawFile) domain.BatchOutcome

	// Delete removes a document, its chunks and all index entries
	// atomically with respect to other writes.
	Delete(ctx context.Context, documentID string) error

	// Rebuild reconstructs both indexes from a full store scan.
	Rebuild(ctx context.Context) error

	// RetryPending re-attempts index insertion for documents stored
	// durably but not yet searchable, returning the IDs still pending.
	RetryPending(ctx context.Context) []string

	// Verify checks the 1:1 chunk/index correspondence invariant.
	Verify(ctx context.Context) (*domain.ConsistencyReport, error)
}
