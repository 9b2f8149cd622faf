package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// stubQuerier returns a single canned hit for any query.
type stubQuerier struct {
	degraded bool
	err      error
}

func (s *stubQuerier) Query(_ context.Context, _ string, mode domain.QueryMode, _ int, _ domain.QueryFilter) (*domain.QueryResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.QueryResult{
		Mode:     mode,
		Degraded: s.degraded,
		Hits: []domain.QueryHit{
			{
				Document: domain.Document{
					ID:               "abcdef0123456789",
					OriginalFilename: "complaint.txt",
					DocType:          domain.DocTypeFiling,
					IngestedAt:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
				},
				Chunk:        domain.Chunk{ID: "abcdef0123456789-0000", Content: "the complaint alleges breach"},
				Score:        0.87,
				MatchedTerms: []string{"complaint"},
			},
		},
	}, nil
}

func (s *stubQuerier) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Document{
		ID:               id,
		OriginalFilename: "complaint.txt",
		DocType:          domain.DocTypeFiling,
		ContentHash:      "deadbeef",
		Content:          "the complaint alleges breach",
		IngestedAt:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubQuerier) ListDocuments(context.Context, domain.DocType) ([]domain.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Document{
		{ID: "abcdef0123456789", OriginalFilename: "complaint.txt", DocType: domain.DocTypeFiling},
	}, nil
}

// setupTestServices installs stub services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() func() {
	prevQuery := queryService
	queryService = &stubQuerier{}
	return func() {
		queryService = prevQuery
	}
}
