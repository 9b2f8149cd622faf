package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// stubQuerier serves canned hits to the analysis passes.
type stubQuerier struct {
	hits []domain.QueryHit
	docs map[string]*domain.Document
	err  error
}

func (q *stubQuerier) Query(context.Context, string, domain.QueryMode, int, domain.QueryFilter) (*domain.QueryResult, error) {
	if q.err != nil {
		return nil, q.err
	}
	return &domain.QueryResult{Hits: q.hits, Mode: domain.ModeSemantic}, nil
}

func (q *stubQuerier) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := q.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (q *stubQuerier) ListDocuments(context.Context, domain.DocType) ([]domain.Document, error) {
	return nil, nil
}

func hitFor(doc domain.Document, chunkContent string, score float64) domain.QueryHit {
	return domain.QueryHit{
		Chunk:    domain.Chunk{ID: ChunkID(doc.ID, 0), DocumentID: doc.ID, Content: chunkContent},
		Document: doc,
		Score:    score,
	}
}

func TestTimeline(t *testing.T) {
	docA := domain.Document{
		ID:               "aaa1",
		OriginalFilename: "invoice.txt",
		DocType:          domain.DocTypeFinancial,
		Metadata: domain.Metadata{
			Dates:   []time.Time{time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			Parties: []string{"Acme Corp"},
		},
	}
	docB := domain.Document{
		ID:               "bbb1",
		OriginalFilename: "complaint.txt",
		DocType:          domain.DocTypeFiling,
		Metadata: domain.Metadata{
			Dates: []time.Time{
				time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	querier := &stubQuerier{hits: []domain.QueryHit{
		hitFor(docA, "invoice for services", 0.9),
		hitFor(docB, "complaint filed", 0.8),
	}}
	service := NewAnalysisService(querier)

	events, err := service.Timeline(context.Background(), "payments", time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "bbb1", events[0].DocumentID)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), events[0].Date)
	assert.Equal(t, "aaa1", events[1].DocumentID)
	assert.Equal(t, "bbb1", events[2].DocumentID)
	assert.Equal(t, "invoice for services", events[1].Excerpt)
	assert.Equal(t, []string{"Acme Corp"}, events[1].Parties)
}

func TestTimeline_DateRange(t *testing.T) {
	doc := domain.Document{
		ID: "aaa1",
		Metadata: domain.Metadata{Dates: []time.Time{
			time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	service := NewAnalysisService(&stubQuerier{hits: []domain.QueryHit{hitFor(doc, "x", 1)}})

	events, err := service.Timeline(context.Background(), "anything",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), events[0].Date)
}

func TestTimeline_DeduplicatesDocumentsAcrossChunks(t *testing.T) {
	doc := domain.Document{
		ID:       "aaa1",
		Metadata: domain.Metadata{Dates: []time.Time{time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)}},
	}
	// Two chunk hits from the same document.
	service := NewAnalysisService(&stubQuerier{hits: []domain.QueryHit{
		hitFor(doc, "first chunk", 0.9),
		hitFor(doc, "second chunk", 0.7),
	}})

	events, err := service.Timeline(context.Background(), "anything", time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, events, 1)
	// The best chunk's excerpt is kept.
	assert.Equal(t, "first chunk", events[0].Excerpt)
}

func TestDetectPatterns(t *testing.T) {
	docA := domain.Document{ID: "aaa1", Content: "The enterprise made repeated payments through the company."}
	docB := domain.Document{ID: "bbb1", Content: "They would coordinate each transfer by email."}
	docC := domain.Document{ID: "ccc1", Content: "Completely unrelated gardening notes."}

	service := NewAnalysisService(&stubQuerier{hits: []domain.QueryHit{
		hitFor(docA, "a", 0.9), hitFor(docB, "b", 0.8), hitFor(docC, "c", 0.7),
	}})

	report, err := service.DetectPatterns(context.Background(), "racketeering")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Analyzed)
	require.NotEmpty(t, report.Indicators)

	byName := make(map[string]domain.PatternIndicator)
	for _, ind := range report.Indicators {
		byName[ind.Name] = ind
	}

	require.Contains(t, byName, "enterprise")
	assert.Equal(t, []string{"aaa1"}, byName["enterprise"].DocumentIDs)

	require.Contains(t, byName, "coordination")
	assert.Equal(t, []string{"bbb1"}, byName["coordination"].DocumentIDs)

	require.Contains(t, byName, "transactions")
	assert.ElementsMatch(t, []string{"aaa1", "bbb1"}, byName["transactions"].DocumentIDs)

	// No indicator names the unrelated document.
	for _, ind := range report.Indicators {
		assert.NotContains(t, ind.DocumentIDs, "ccc1")
	}
}

func TestFindContradictions(t *testing.T) {
	docA := domain.Document{
		ID:       "aaa1",
		Content:  "The settlement was signed by both parties on Friday.",
		Metadata: domain.Metadata{Topics: []string{"settlement"}},
	}
	docB := domain.Document{
		ID:       "bbb1",
		Content:  "Our client never agreed to the settlement terms.",
		Metadata: domain.Metadata{Topics: []string{"settlement"}},
	}

	service := NewAnalysisService(&stubQuerier{hits: []domain.QueryHit{
		hitFor(docA, "a", 0.9), hitFor(docB, "b", 0.8),
	}})

	found, err := service.FindContradictions(context.Background(), "settlement")
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, "settlement", found[0].Topic)
	assert.Equal(t, "aaa1", found[0].DocumentA)
	assert.Equal(t, "bbb1", found[0].DocumentB)
	assert.Contains(t, found[0].StatementB, "never")
}

func TestFindContradictions_SameDocumentNeverPaired(t *testing.T) {
	doc := domain.Document{
		ID:       "aaa1",
		Content:  "The contract was valid. The contract was never signed.",
		Metadata: domain.Metadata{Topics: []string{"contract"}},
	}
	service := NewAnalysisService(&stubQuerier{hits: []domain.QueryHit{hitFor(doc, "a", 0.9)}})

	found, err := service.FindContradictions(context.Background(), "contract")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAnalyzeRelationships(t *testing.T) {
	docA := domain.Document{ID: "aaa1", Content: "Smith wired the funds to Jones last March."}
	docB := domain.Document{ID: "bbb1", Content: "Jones met with Brown; Smith was not present."}
	docC := domain.Document{ID: "ccc1", Content: "Brown acted alone."}

	service := NewAnalysisService(&stubQuerier{hits: []domain.QueryHit{
		hitFor(docA, "a", 0.9), hitFor(docB, "b", 0.8), hitFor(docC, "c", 0.7),
	}})

	rels, err := service.AnalyzeRelationships(context.Background(), []string{"Smith", "Jones", "Brown"})
	require.NoError(t, err)

	require.Len(t, rels, 3)
	// Pairs come back in stable lexical order.
	assert.Equal(t, "Brown", rels[0].EntityA)
	assert.Equal(t, "Jones", rels[0].EntityB)
	assert.Equal(t, []string{"bbb1"}, rels[0].DocumentIDs)

	assert.Equal(t, "Brown", rels[1].EntityA)
	assert.Equal(t, "Smith", rels[1].EntityB)
	assert.Equal(t, []string{"bbb1"}, rels[1].DocumentIDs)

	assert.Equal(t, "Jones", rels[2].EntityA)
	assert.Equal(t, "Smith", rels[2].EntityB)
	assert.ElementsMatch(t, []string{"aaa1", "bbb1"}, rels[2].DocumentIDs)
}

func TestAnalyzeRelationships_RequiresTwoEntities(t *testing.T) {
	service := NewAnalysisService(&stubQuerier{})
	_, err := service.AnalyzeRelationships(context.Background(), []string{"Smith"})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestSummarize(t *testing.T) {
	querier := &stubQuerier{docs: map[string]*domain.Document{
		"aaa1": {
			ID:               "aaa1",
			OriginalFilename: "agreement.txt",
			DocType:          domain.DocTypeContract,
			Content:          "The parties agree to the following terms.",
			Metadata:         domain.Metadata{Parties: []string{"Acme Corp", "Widget LLC"}},
		},
	}}
	service := NewAnalysisService(querier)

	summary, err := service.Summarize(context.Background(), []string{"aaa1", "missing"})
	require.NoError(t, err)

	assert.Contains(t, summary, "agreement.txt")
	assert.Contains(t, summary, "The parties agree")
	assert.Contains(t, summary, "Acme Corp, Widget LLC")
}

func TestSummarize_EdgeCases(t *testing.T) {
	service := NewAnalysisService(&stubQuerier{docs: map[string]*domain.Document{}})

	_, err := service.Summarize(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = service.Summarize(context.Background(), []string{"missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First sentence. Second one! Third? trailing fragment")
	assert.Equal(t, []string{"First sentence.", "Second one!", "Third?", "trailing fragment"}, got)
}
