package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casekb/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/casekb/internal/adapters/driven/extractor"
	"github.com/custodia-labs/casekb/internal/adapters/driven/index/keyword"
	"github.com/custodia-labs/casekb/internal/adapters/driven/index/vector"
	"github.com/custodia-labs/casekb/internal/adapters/driven/originals"
	"github.com/custodia-labs/casekb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

const testDimensions = 16

type ingestFixture struct {
	service      *IngestService
	store        *memory.DocumentStore
	vectorIndex  *vector.Index
	keywordIndex *keyword.Index
	originalsDir string
}

func newIngestFixture(t *testing.T, opts ...IngestOption) *ingestFixture {
	t.Helper()

	store := memory.NewDocumentStore()
	vectorIndex, err := vector.New(driven.MetricCosine, testDimensions)
	require.NoError(t, err)
	keywordIndex := keyword.New()

	dir := t.TempDir()
	originalsStore, err := originals.NewStore(dir)
	require.NoError(t, err)

	service := NewIngestService(
		store,
		originalsStore,
		extractor.NewDefaultRegistry(),
		hashing.NewEmbeddingService(testDimensions),
		vectorIndex,
		keywordIndex,
		testDimensions,
		opts...,
	)

	return &ingestFixture{
		service:      service,
		store:        store,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		originalsDir: dir,
	}
}

func rawText(filename, content string) domain.RawFile {
	return domain.RawFile{DeclaredFilename: filename, Content: []byte(content)}
}

func originalCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestIngest_Success(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	outcome, err := f.service.Ingest(ctx, rawText("complaint.txt",
		"The plaintiff filed a complaint alleging breach of contract and seeking damages."))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusIngested, outcome.Status)
	assert.Len(t, outcome.DocumentID, 16)
	assert.Equal(t, "complaint.txt", outcome.Filename)

	doc, err := f.store.GetDocument(ctx, outcome.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocTypeFiling, doc.DocType)
	assert.NotEmpty(t, doc.StoredPath)
	assert.Contains(t, doc.Metadata.Topics, "breach")

	chunks, err := f.store.GetChunks(ctx, outcome.DocumentID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Every chunk has entries in both indexes.
	assert.Equal(t, len(chunks), f.vectorIndex.Len())
	assert.Equal(t, len(chunks), f.keywordIndex.Len())

	assert.Equal(t, 1, originalCount(t, f.originalsDir))
}

func TestIngest_DuplicateSkipped(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	first, err := f.service.Ingest(ctx, rawText("original.txt", "The settlement agreement was executed."))
	require.NoError(t, err)
	require.Equal(t, domain.StatusIngested, first.Status)

	// Same content under another name, with different whitespace.
	second, err := f.service.Ingest(ctx, rawText("copy.txt", "The  settlement\nagreement was executed."))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDuplicateSkipped, second.Status)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, "copy.txt", second.Filename)

	docs, err := f.store.ListDocuments(ctx, driven.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	// The duplicate never stored a second original copy.
	assert.Equal(t, 1, originalCount(t, f.originalsDir))
}

func TestIngest_ExtractionFailureWritesNothing(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.service.Ingest(ctx, rawText("image.png", "binary junk"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	docs, listErr := f.store.ListDocuments(ctx, driven.DocumentFilter{})
	require.NoError(t, listErr)
	assert.Empty(t, docs)
	assert.Equal(t, 0, f.vectorIndex.Len())
	assert.Equal(t, 0, f.keywordIndex.Len())
	assert.Equal(t, 0, originalCount(t, f.originalsDir))
}

type failingEmbedder struct {
	dims int
	err  error
	vec  []float32
}

func (e *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

func (e *failingEmbedder) Dimensions() int   { return e.dims }
func (e *failingEmbedder) ModelName() string { return "failing" }
func (e *failingEmbedder) Close() error      { return nil }

func TestIngest_EmbedFailureRollsBackOriginal(t *testing.T) {
	f := newIngestFixture(t)
	f.service.embedder = &failingEmbedder{dims: testDimensions, err: errors.New("provider down")}
	ctx := context.Background()

	_, err := f.service.Ingest(ctx, rawText("doc.txt", "Some perfectly extractable text."))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedFailed)

	docs, listErr := f.store.ListDocuments(ctx, driven.DocumentFilter{})
	require.NoError(t, listErr)
	assert.Empty(t, docs)
	assert.Equal(t, 0, originalCount(t, f.originalsDir))
}

func TestIngest_DimensionMismatchIsFatal(t *testing.T) {
	f := newIngestFixture(t)
	f.service.embedder = &failingEmbedder{dims: testDimensions, vec: make([]float32, testDimensions+1)}
	ctx := context.Background()

	_, err := f.service.Ingest(ctx, rawText("doc.txt", "Some perfectly extractable text."))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

// flakyVectorIndex fails Add until healed.
type flakyVectorIndex struct {
	*vector.Index
	failing bool
}

func (f *flakyVectorIndex) Add(ctx context.Context, chunkID string, embedding []float32) error {
	if f.failing {
		return errors.New("index unavailable")
	}
	return f.Index.Add(ctx, chunkID, embedding)
}

func TestIngest_IndexFailureLeavesDocumentPending(t *testing.T) {
	f := newIngestFixture(t)
	flaky := &flakyVectorIndex{Index: f.vectorIndex, failing: true}
	f.service.vector = flaky
	ctx := context.Background()

	outcome, err := f.service.Ingest(ctx, rawText("doc.txt", "The deposition transcript was sealed."))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIndexPending, outcome.Status)

	// The document is durably stored despite the index failure.
	_, err = f.store.GetDocument(ctx, outcome.DocumentID)
	require.NoError(t, err)

	report, err := f.service.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, 1, report.PendingDocs)

	// Heal the index; retry drains the pending set.
	flaky.failing = false
	still := f.service.RetryPending(ctx)
	assert.Empty(t, still)

	report, err = f.service.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
}

func TestIngest_RetryPendingKeepsFailingDocuments(t *testing.T) {
	f := newIngestFixture(t)
	flaky := &flakyVectorIndex{Index: f.vectorIndex, failing: true}
	f.service.vector = flaky
	ctx := context.Background()

	outcome, err := f.service.Ingest(ctx, rawText("doc.txt", "Exhibit list for trial."))
	require.NoError(t, err)
	require.Equal(t, domain.StatusIndexPending, outcome.Status)

	still := f.service.RetryPending(ctx)
	assert.Equal(t, []string{outcome.DocumentID}, still)
}

func TestIngestBatch(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	raws := []domain.RawFile{
		rawText("a.txt", "The first motion was denied."),
		rawText("broken.png", "not extractable"),
		rawText("b.txt", "The second motion was granted."),
	}

	batch := f.service.IngestBatch(ctx, raws)

	assert.NotEmpty(t, batch.JobID)
	assert.Len(t, batch.Outcomes, 2)
	require.Len(t, batch.Failures, 1)
	assert.ErrorIs(t, batch.Failures["broken.png"], domain.ErrExtractionFailed)

	docs, err := f.store.ListDocuments(ctx, driven.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIngestBatch_ConcurrentIdenticalContent(t *testing.T) {
	f := newIngestFixture(t, WithBatchConcurrency(8))
	ctx := context.Background()

	raws := make([]domain.RawFile, 8)
	for i := range raws {
		raws[i] = rawText("same.txt", "Identical content uploaded many times at once.")
	}

	batch := f.service.IngestBatch(ctx, raws)
	require.Empty(t, batch.Failures)
	require.Len(t, batch.Outcomes, 8)

	// Concurrent identical uploads may share one execution, so several
	// callers can observe the ingested status. What must hold is a single
	// stored document and a single original copy.
	for _, out := range batch.Outcomes {
		assert.Contains(t,
			[]domain.IngestStatus{domain.StatusIngested, domain.StatusDuplicateSkipped}, out.Status)
	}

	docs, err := f.store.ListDocuments(ctx, driven.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, originalCount(t, f.originalsDir))
}

func TestDelete(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	outcome, err := f.service.Ingest(ctx, rawText("doc.txt", "A document headed for deletion."))
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, outcome.DocumentID))

	_, err = f.store.GetDocument(ctx, outcome.DocumentID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, f.vectorIndex.Len())
	assert.Equal(t, 0, f.keywordIndex.Len())
	assert.Equal(t, 0, originalCount(t, f.originalsDir))
}

func TestDelete_NotFound(t *testing.T) {
	f := newIngestFixture(t)
	err := f.service.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRebuild_RestoresIndexesFromStore(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.service.Ingest(ctx, rawText("a.txt", "Discovery requests were served."))
	require.NoError(t, err)
	_, err = f.service.Ingest(ctx, rawText("b.txt", "The injunction remains in force."))
	require.NoError(t, err)

	// Simulate index loss.
	require.NoError(t, f.vectorIndex.Rebuild(ctx, nil))
	require.NoError(t, f.keywordIndex.Rebuild(ctx, nil))
	report, err := f.service.Verify(ctx)
	require.NoError(t, err)
	require.False(t, report.Consistent())

	require.NoError(t, f.service.Rebuild(ctx))

	report, err = f.service.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, report.Chunks, f.vectorIndex.Len())
	assert.Equal(t, report.Chunks, f.keywordIndex.Len())
}

func TestIngest_NoEmbedderFailsWithEmbeddingUnavailable(t *testing.T) {
	f := newIngestFixture(t)
	f.service.embedder = nil

	_, err := f.service.Ingest(context.Background(), rawText("doc.txt", "text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedFailed)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
