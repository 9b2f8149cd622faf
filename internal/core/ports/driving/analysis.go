package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// Analyzer runs derived legal-analysis passes on top of retrieval.
// Implementations are read-only consumers of the Querier contract.
type Analyzer interface {
	// Timeline builds a chronological event list for a query, optionally
	// bounded to [from, to]. Zero times disable the bound.
	Timeline(ctx context.Context, query string, from, to time.Time) ([]domain.TimelineEvent, error)

	// DetectPatterns scans retrieved documents for coordinated-activity
	// indicators.
	DetectPatterns(ctx context.Context, query string) (*domain.PatternReport, error)

	// FindContradictions pairs opposing statements across documents.
	FindContradictions(ctx context.Context, query string) ([]domain.Contradiction, error)

	// AnalyzeRelationships maps co-occurrence of the given entities.
	AnalyzeRelationships(ctx context.Context, entities []string) ([]domain.Relationship, error)

	// Summarize produces an extractive summary of the given documents.
	Summarize(ctx context.Context, documentIDs []string) (string, error)
}
