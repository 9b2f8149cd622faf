package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
	"github.com/custodia-labs/casekb/internal/core/ports/driving"
	"github.com/custodia-labs/casekb/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// DefaultBatchConcurrency bounds parallel extraction/embedding during
// batch ingestion. The commit step is serialised regardless.
const DefaultBatchConcurrency = 4

// IngestService is the sole writer to the document store and both
// indexes. It orchestrates extraction, deduplication, classification,
// chunking, embedding and the atomic commit per document.
type IngestService struct {
	store      driven.DocumentStore
	originals  driven.OriginalsStore
	extractors driven.ExtractorRegistry
	embedder   driven.EmbeddingService
	vector     driven.VectorIndex
	keyword    driven.KeywordIndex

	// dimensions is the embedding size fixed at knowledge base
	// initialisation. A provider mismatch is fatal, not per-document.
	dimensions int

	chunkSize    int
	chunkOverlap int
	concurrency  int

	// writeMu serialises the store/index commit path. Extraction and
	// embedding run outside it so retrieval latency stays low during
	// bulk uploads.
	writeMu sync.Mutex

	// inflight collapses concurrent ingestions of identical content so
	// the dedup check and commit are effectively atomic per hash.
	inflight singleflight.Group

	// pending tracks documents committed to the store whose index
	// insertion has not succeeded yet (IndexPending).
	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// IngestOption configures the ingest service.
type IngestOption func(*IngestService)

// WithChunking overrides the chunk window and overlap, in characters.
func WithChunking(size, overlap int) IngestOption {
	return func(s *IngestService) {
		if size > 0 {
			s.chunkSize = size
		}
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithBatchConcurrency bounds parallel work during batch ingestion.
func WithBatchConcurrency(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewIngestService creates the ingestion pipeline. The embedding
// dimension is fixed here for the lifetime of the knowledge base.
func NewIngestService(
	store driven.DocumentStore,
	originals driven.OriginalsStore,
	extractors driven.ExtractorRegistry,
	embedder driven.EmbeddingService,
	vector driven.VectorIndex,
	keyword driven.KeywordIndex,
	dimensions int,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		store:        store,
		originals:    originals,
		extractors:   extractors,
		embedder:     embedder,
		vector:       vector,
		keyword:      keyword,
		dimensions:   dimensions,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		concurrency:  DefaultBatchConcurrency,
		pending:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest processes one file through the pipeline.
func (s *IngestService) Ingest(ctx context.Context, raw domain.RawFile) (domain.IngestOutcome, error) {
	// 1. EXTRACT (off the write lock; nothing is written on failure)
	content, err := s.readContent(&raw)
	if err != nil {
		return domain.IngestOutcome{}, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	raw.Content = content

	text, err := s.extractors.Extract(ctx, &raw)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) {
			return domain.IngestOutcome{}, err
		}
		return domain.IngestOutcome{}, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	// 2. NORMALISE + HASH
	normalized := NormalizeText(text)
	if normalized == "" {
		return domain.IngestOutcome{}, fmt.Errorf("%w: no extractable text in %s", domain.ErrExtractionFailed, raw.DeclaredFilename)
	}
	hash := ContentHash(normalized)

	// Concurrent ingestions of identical content share one execution.
	v, err, _ := s.inflight.Do(hash, func() (any, error) {
		out, err := s.ingestContent(ctx, raw, normalized, hash)
		return out, err
	})
	if err != nil {
		return domain.IngestOutcome{}, err
	}
	outcome := v.(domain.IngestOutcome)
	outcome.Filename = raw.DeclaredFilename
	return outcome, nil
}

// ingestContent runs steps 3-8 for content that passed extraction.
// It executes at most once per content hash at a time.
func (s *IngestService) ingestContent(
	ctx context.Context, raw domain.RawFile, normalized, hash string,
) (domain.IngestOutcome, error) {
	// DEDUP: at most one stored document per distinct normalised content.
	if existing, err := s.store.FindByContentHash(ctx, hash); err == nil {
		logger.Debug("Duplicate content %s already stored as %s", hash[:12], existing.ID)
		return domain.IngestOutcome{DocumentID: existing.ID, Status: domain.StatusDuplicateSkipped}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.IngestOutcome{}, fmt.Errorf("%w: dedup lookup: %w", domain.ErrStorage, err)
	}

	// 3. COPY ORIGINAL to permanent storage (timestamped, never overwrites)
	storedPath, err := s.originals.Store(ctx, raw.DeclaredFilename, raw.Content)
	if err != nil {
		return domain.IngestOutcome{}, fmt.Errorf("%w: store original: %w", domain.ErrStorage, err)
	}

	// 4. CLASSIFY (never fails) and 5. EXTRACT METADATA
	docID := DocumentID(hash)
	doc := &domain.Document{
		ID:               docID,
		OriginalFilename: raw.DeclaredFilename,
		StoredPath:       storedPath,
		ContentHash:      hash,
		DocType:          Classify(raw.DeclaredFilename, normalized),
		Metadata:         ExtractMetadata(normalized),
		Content:          normalized,
		IngestedAt:       time.Now().UTC(),
	}

	// 6. CHUNK
	chunks := SplitChunks(docID, normalized, s.chunkSize, s.chunkOverlap)

	// 7. EMBED (off the write lock). Any failure or cancellation rolls
	// back the original copy; partial indexing is never observable.
	if err := s.embedChunks(ctx, chunks); err != nil {
		s.rollbackOriginal(storedPath)
		return domain.IngestOutcome{}, err
	}
	if err := ctx.Err(); err != nil {
		s.rollbackOriginal(storedPath)
		return domain.IngestOutcome{}, err
	}

	// 8. COMMIT: store first, indexes second.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Compare-and-commit: re-check the hash under the write lock.
	if existing, err := s.store.FindByContentHash(ctx, hash); err == nil {
		s.rollbackOriginal(storedPath)
		return domain.IngestOutcome{DocumentID: existing.ID, Status: domain.StatusDuplicateSkipped}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.rollbackOriginal(storedPath)
		return domain.IngestOutcome{}, fmt.Errorf("%w: dedup recheck: %w", domain.ErrStorage, err)
	}

	if err := s.store.SaveDocument(ctx, doc, chunks); err != nil {
		s.rollbackOriginal(storedPath)
		return domain.IngestOutcome{}, fmt.Errorf("%w: save document: %w", domain.ErrStorage, err)
	}

	// The store is the source of truth; if index insertion fails the
	// document is queued for retry rather than left silently unsearchable.
	if err := s.indexChunks(ctx, chunks); err != nil {
		logger.Warn("Index insertion failed for %s, queued for retry: %v", docID, err)
		s.markPending(docID)
		return domain.IngestOutcome{DocumentID: docID, Status: domain.StatusIndexPending}, nil
	}

	logger.Info("Ingested %s as %s (%d chunks, type=%s)", raw.DeclaredFilename, docID, len(chunks), doc.DocType)
	return domain.IngestOutcome{DocumentID: docID, Status: domain.StatusIngested}, nil
}

// IngestBatch processes files with bounded concurrency. Each file's
// outcome is reported independently; failures never abort the batch.
func (s *IngestService) IngestBatch(ctx context.Context, raws []domain.RawFile) domain.BatchOutcome {
	batch := domain.BatchOutcome{
		JobID:    uuid.New().String(),
		Outcomes: make([]domain.IngestOutcome, len(raws)),
		Failures: make(map[string]error),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range raws {
		g.Go(func() error {
			out, err := s.Ingest(gctx, raws[i])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Failures[raws[i].DeclaredFilename] = err
				return nil
			}
			batch.Outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; per-file failures are recorded

	// Compact out slots left empty by failures.
	outcomes := batch.Outcomes[:0]
	for _, out := range batch.Outcomes {
		if out.Status != "" {
			outcomes = append(outcomes, out)
		}
	}
	batch.Outcomes = outcomes
	return batch
}

// Delete removes a document, its chunks, and all index entries.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: get document: %w", domain.ErrStorage, err)
	}

	chunks, err := s.store.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("%w: get chunks: %w", domain.ErrStorage, err)
	}

	for _, chunk := range chunks {
		if err := s.vector.Remove(ctx, chunk.ID); err != nil {
			logger.Warn("Failed to remove vector entry %s: %v", chunk.ID, err)
		}
		if err := s.keyword.Remove(ctx, chunk.ID); err != nil {
			logger.Warn("Failed to remove keyword entry %s: %v", chunk.ID, err)
		}
	}

	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("%w: delete document: %w", domain.ErrStorage, err)
	}

	if doc.StoredPath != "" {
		if err := s.originals.Remove(ctx, doc.StoredPath); err != nil {
			logger.Warn("Failed to remove original copy %s: %v", doc.StoredPath, err)
		}
	}

	s.clearPending(documentID)
	logger.Info("Deleted document %s (%d chunks)", documentID, len(chunks))
	return nil
}

// Rebuild reconstructs both indexes from a full store scan. This is the
// recovery path for index corruption or store/index divergence.
func (s *IngestService) Rebuild(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var vectors []driven.VectorEntry
	var keywords []driven.KeywordEntry

	err := s.store.ScanChunks(ctx, func(rec driven.ChunkRecord) error {
		if len(rec.Chunk.Embedding) > 0 {
			vectors = append(vectors, driven.VectorEntry{ChunkID: rec.Chunk.ID, Embedding: rec.Chunk.Embedding})
		}
		keywords = append(keywords, driven.KeywordEntry{ChunkID: rec.Chunk.ID, Text: rec.Chunk.Content})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: scan chunks: %w", domain.ErrStorage, err)
	}

	if err := s.vector.Rebuild(ctx, vectors); err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}
	if err := s.keyword.Rebuild(ctx, keywords); err != nil {
		return fmt.Errorf("rebuild keyword index: %w", err)
	}

	s.pendingMu.Lock()
	s.pending = make(map[string]struct{})
	s.pendingMu.Unlock()

	logger.Info("Rebuilt indexes: %d vectors, %d keyword entries", len(vectors), len(keywords))
	return nil
}

// RetryPending re-attempts index insertion for stored-but-unsearchable
// documents. Index adds are idempotent, so a partial earlier attempt is
// simply redone in full.
func (s *IngestService) RetryPending(ctx context.Context) []string {
	s.pendingMu.Lock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.pendingMu.Unlock()

	var still []string
	for _, id := range ids {
		chunks, err := s.store.GetChunks(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.clearPending(id)
				continue
			}
			still = append(still, id)
			continue
		}

		s.writeMu.Lock()
		err = s.indexChunks(ctx, chunks)
		s.writeMu.Unlock()

		if err != nil {
			logger.Warn("Index retry failed for %s: %v", id, err)
			still = append(still, id)
			continue
		}
		s.clearPending(id)
		logger.Info("Index retry succeeded for %s", id)
	}
	return still
}

// Verify counts index entries against stored chunks.
func (s *IngestService) Verify(ctx context.Context) (*domain.ConsistencyReport, error) {
	total := 0
	err := s.store.ScanChunks(ctx, func(driven.ChunkRecord) error {
		total++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan chunks: %w", domain.ErrStorage, err)
	}

	s.pendingMu.Lock()
	pending := len(s.pending)
	s.pendingMu.Unlock()

	return &domain.ConsistencyReport{
		Chunks:         total,
		VectorEntries:  s.vector.Len(),
		KeywordEntries: s.keyword.Len(),
		PendingDocs:    pending,
	}, nil
}

// embedChunks fills in each chunk's embedding, enforcing the fixed
// dimension. A timeout from the provider is treated as EmbedFailed.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if s.embedder == nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbedFailed, domain.ErrEmbeddingUnavailable)
	}
	for i := range chunks {
		vec, err := s.embedder.Embed(ctx, chunks[i].Content)
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %w", domain.ErrEmbedFailed, chunks[i].Sequence, err)
		}
		if len(vec) != s.dimensions {
			return fmt.Errorf("%w: provider returned %d, knowledge base fixed at %d",
				domain.ErrDimensionMismatch, len(vec), s.dimensions)
		}
		chunks[i].Embedding = vec
	}
	return nil
}

// indexChunks inserts all entries for a committed document into both
// indexes. Must be called with writeMu held.
func (s *IngestService) indexChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, chunk := range chunks {
		if err := s.keyword.Add(ctx, chunk.ID, chunk.Content); err != nil {
			return fmt.Errorf("keyword index: %w", err)
		}
		if err := s.vector.Add(ctx, chunk.ID, chunk.Embedding); err != nil {
			return fmt.Errorf("vector index: %w", err)
		}
	}
	return nil
}

func (s *IngestService) readContent(raw *domain.RawFile) ([]byte, error) {
	if raw.Content != nil {
		return raw.Content, nil
	}
	if raw.Path == "" {
		return nil, errors.New("no content or path provided")
	}
	return os.ReadFile(raw.Path)
}

// rollbackOriginal best-effort removes a stored original copy after a
// failed ingestion so no partial state remains.
func (s *IngestService) rollbackOriginal(storedPath string) {
	if err := s.originals.Remove(context.Background(), storedPath); err != nil {
		logger.Warn("Failed to roll back original copy %s: %v", storedPath, err)
	}
}

func (s *IngestService) markPending(docID string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending[docID] = struct{}{}
}

func (s *IngestService) clearPending(docID string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pending, docID)
}
