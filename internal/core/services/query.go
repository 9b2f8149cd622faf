package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
	"github.com/custodia-labs/casekb/internal/core/ports/driving"
	"github.com/custodia-labs/casekb/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.Querier = (*QueryService)(nil)

// DefaultHybridWeight is the semantic share of the hybrid combination.
// Equal weighting unless configured otherwise.
const DefaultHybridWeight = 0.5

// DefaultK is the result count when the caller passes k <= 0.
const DefaultK = 10

// scoredChunk holds intermediate results before hydration.
type scoredChunk struct {
	chunkID string
	score   float64
	terms   []string
}

// QueryService implements the three retrieval modes against the two
// indexes plus the document store. It is a read-only consumer of all
// three and may run with unbounded concurrency.
type QueryService struct {
	store        driven.DocumentStore
	keyword      driven.KeywordIndex
	vector       driven.VectorIndex
	embedder     driven.EmbeddingService
	hybridWeight float64
}

// QueryOption configures the query service.
type QueryOption func(*QueryService)

// WithHybridWeight sets the semantic share w of the hybrid combination
// w*semantic + (1-w)*keyword. Values outside (0,1) are ignored.
func WithHybridWeight(w float64) QueryOption {
	return func(s *QueryService) {
		if w > 0 && w < 1 {
			s.hybridWeight = w
		}
	}
}

// NewQueryService creates a new retrieval engine.
// The embedder is optional; without it semantic and hybrid queries
// degrade to keyword-only results.
func NewQueryService(
	store driven.DocumentStore,
	keyword driven.KeywordIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
	opts ...QueryOption,
) *QueryService {
	s := &QueryService{
		store:        store,
		keyword:      keyword,
		vector:       vector,
		embedder:     embedder,
		hybridWeight: DefaultHybridWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query runs a retrieval in the given mode.
func (s *QueryService) Query(
	ctx context.Context, text string, mode domain.QueryMode, k int, filter domain.QueryFilter,
) (*domain.QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrInvalidQuery
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidQuery, mode)
	}
	if k <= 0 {
		k = DefaultK
	}

	logger.Section("Query Execution")
	logger.Debug("Query: %q mode=%s k=%d", text, mode, k)

	// Fetch more than k internally so post-filtering does not starve
	// the final result set.
	internalK := k * 3

	var chunks []scoredChunk
	var degraded bool
	var err error

	switch mode {
	case domain.ModeSemantic:
		chunks, degraded, err = s.semanticOrDegraded(ctx, text, internalK)
	case domain.ModeKeyword:
		chunks, err = s.keywordSearch(ctx, text, internalK)
	case domain.ModeHybrid:
		chunks, degraded, err = s.hybridSearch(ctx, text, internalK)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	hits, err := s.hydrate(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	sortHits(hits)

	// Filters are a post-filter applied before truncation to k, never
	// before scoring: filtering must not change relative ranking among
	// surviving results.
	hits = applyFilter(hits, filter)
	if len(hits) > k {
		hits = hits[:k]
	}

	logger.Info("Query returned %d hits (degraded=%t)", len(hits), degraded)
	return &domain.QueryResult{Hits: hits, Mode: mode, Degraded: degraded}, nil
}

// GetDocument exposes stored document metadata to consumers.
func (s *QueryService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// ListDocuments returns stored documents, optionally restricted by type.
func (s *QueryService) ListDocuments(ctx context.Context, docType domain.DocType) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx, driven.DocumentFilter{DocType: docType})
}

// semanticOrDegraded runs a semantic search, falling back to keyword-only
// results with the degraded flag when the embedding provider fails.
// Lexical search has no dependency on the external provider.
func (s *QueryService) semanticOrDegraded(ctx context.Context, text string, k int) ([]scoredChunk, bool, error) {
	chunks, err := s.semanticSearch(ctx, text, k)
	if err == nil {
		return chunks, false, nil
	}
	logger.Warn("Semantic search degraded to keyword-only: %v", err)
	chunks, kwErr := s.keywordSearch(ctx, text, k)
	if kwErr != nil {
		return nil, false, fmt.Errorf("semantic failed (%v), keyword fallback: %w", err, kwErr)
	}
	return chunks, true, nil
}

// semanticSearch embeds the query and maps vector distances to a
// similarity score in (0,1]: closer distance, higher score.
func (s *QueryService) semanticSearch(ctx context.Context, text string, k int) ([]scoredChunk, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vector.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]scoredChunk, len(hits))
	for i, hit := range hits {
		results[i] = scoredChunk{
			chunkID: hit.ChunkID,
			score:   1.0 / (1.0 + hit.Distance),
		}
	}
	return results, nil
}

// keywordSearch normalises the index's TF-IDF scores to [0,1] by the top
// score for cross-mode comparability.
func (s *QueryService) keywordSearch(ctx context.Context, text string, k int) ([]scoredChunk, error) {
	hits, err := s.keyword.Search(ctx, text, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	top := hits[0].Score
	for _, hit := range hits {
		if hit.Score > top {
			top = hit.Score
		}
	}

	results := make([]scoredChunk, len(hits))
	for i, hit := range hits {
		score := 0.0
		if top > 0 {
			score = hit.Score / top
		}
		results[i] = scoredChunk{
			chunkID: hit.ChunkID,
			score:   score,
			terms:   hit.MatchedTerms,
		}
	}
	return results, nil
}

// hybridSearch runs both modes in parallel and merges by a fixed linear
// combination of normalised scores. A chunk present in only one list
// contributes that list's score times its weight; absence in the other
// list is a weighted partial score, not a drowning zero.
func (s *QueryService) hybridSearch(ctx context.Context, text string, k int) ([]scoredChunk, bool, error) {
	var semantic, keyword []scoredChunk
	var semErr, kwErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		semantic, semErr = s.semanticSearch(ctx, text, k)
	}()
	go func() {
		defer wg.Done()
		keyword, kwErr = s.keywordSearch(ctx, text, k)
	}()
	wg.Wait()

	if kwErr != nil && semErr != nil {
		return nil, false, fmt.Errorf("hybrid: semantic=%w, keyword=%w", semErr, kwErr)
	}
	if semErr != nil {
		// Keyword-only fallback, flagged as degraded.
		logger.Warn("Hybrid search degraded to keyword-only: %v", semErr)
		return keyword, true, nil
	}
	if kwErr != nil {
		logger.Warn("Hybrid search: keyword side failed, using semantic only: %v", kwErr)
		return semantic, false, nil
	}

	w := s.hybridWeight
	combined := make(map[string]*scoredChunk)
	for _, sc := range semantic {
		combined[sc.chunkID] = &scoredChunk{chunkID: sc.chunkID, score: w * sc.score}
	}
	for _, sc := range keyword {
		if existing, ok := combined[sc.chunkID]; ok {
			existing.score += (1 - w) * sc.score
			existing.terms = sc.terms
		} else {
			combined[sc.chunkID] = &scoredChunk{chunkID: sc.chunkID, score: (1 - w) * sc.score, terms: sc.terms}
		}
	}

	merged := make([]scoredChunk, 0, len(combined))
	for _, sc := range combined {
		merged = append(merged, *sc)
	}
	return merged, false, nil
}

// hydrate resolves chunk IDs to full hits with document attribution.
// Chunks deleted since the index snapshot are skipped.
func (s *QueryService) hydrate(ctx context.Context, chunks []scoredChunk) ([]domain.QueryHit, error) {
	hits := make([]domain.QueryHit, 0, len(chunks))
	for _, sc := range chunks {
		chunk, err := s.store.GetChunk(ctx, sc.chunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", sc.chunkID, err)
		}
		doc, err := s.store.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
		}
		hits = append(hits, domain.QueryHit{
			Chunk:        *chunk,
			Document:     *doc,
			Score:        sc.score,
			MatchedTerms: sc.terms,
		})
	}
	return hits, nil
}

// sortHits orders hits best-first with deterministic tie-breaking:
// higher score, then shorter document, then earlier ingestion time,
// then lexical chunk ID.
func sortHits(hits []domain.QueryHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		li, lj := len(hits[i].Document.Content), len(hits[j].Document.Content)
		if li != lj {
			return li < lj
		}
		if !hits[i].Document.IngestedAt.Equal(hits[j].Document.IngestedAt) {
			return hits[i].Document.IngestedAt.Before(hits[j].Document.IngestedAt)
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
}

// applyFilter drops hits that fail the filter, preserving order.
func applyFilter(hits []domain.QueryHit, filter domain.QueryFilter) []domain.QueryHit {
	if filter.Empty() {
		return hits
	}

	types := make(map[domain.DocType]struct{}, len(filter.DocTypes))
	for _, t := range filter.DocTypes {
		types[t] = struct{}{}
	}

	filtered := hits[:0]
	for _, hit := range hits {
		if len(types) > 0 {
			if _, ok := types[hit.Document.DocType]; !ok {
				continue
			}
		}
		if filter.Party != "" && !mentionsParty(hit.Document, filter.Party) {
			continue
		}
		if (!filter.DateFrom.IsZero() || !filter.DateTo.IsZero()) && !hasDateInRange(hit.Document, filter.DateFrom, filter.DateTo) {
			continue
		}
		filtered = append(filtered, hit)
	}
	return filtered
}

func mentionsParty(doc domain.Document, party string) bool {
	needle := strings.ToLower(party)
	for _, p := range doc.Metadata.Parties {
		if strings.Contains(strings.ToLower(p), needle) {
			return true
		}
	}
	return false
}

func hasDateInRange(doc domain.Document, from, to time.Time) bool {
	for _, d := range doc.Metadata.Dates {
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		return true
	}
	return false
}
