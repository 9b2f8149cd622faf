package driving

import (
	"context"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// Querier is the read boundary of the knowledge base. Derived analyses
// consume only this interface plus the document accessor; they never touch
// the indexes directly.
type Querier interface {
	// Query runs a retrieval in the given mode. Empty query text yields
	// domain.ErrInvalidQuery. Embedding failures in semantic or hybrid
	// mode degrade to keyword-only results with the Degraded flag set.
	Query(ctx context.Context, text string, mode domain.QueryMode, k int, filter domain.QueryFilter) (*domain.QueryResult, error)

	// GetDocument exposes stored document metadata to consumers.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns stored documents matching an optional doc type.
	ListDocuments(ctx context.Context, docType domain.DocType) ([]domain.Document, error)
}
