package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

// testDocument builds a document with predictable fields for tests.
func testDocument(id string) *domain.Document {
	return &domain.Document{
		ID:               id,
		OriginalFilename: id + ".txt",
		StoredPath:       "/data/originals/" + id + ".txt",
		ContentHash:      "hash-" + id,
		DocType:          domain.DocTypeContract,
		Metadata: domain.Metadata{
			Parties: []string{"Acme Corp", "Jane Doe"},
			Dates:   []time.Time{time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
			Topics:  []string{"payment", "breach"},
		},
		Content:    "This agreement is entered into by Acme Corp and Jane Doe.",
		IngestedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// testChunks builds n sequential chunks for a document.
func testChunks(docID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-%04d", docID, i),
			DocumentID: docID,
			Sequence:   i,
			Content:    fmt.Sprintf("chunk %d of %s", i, docID),
			TokenCount: 4,
			Embedding:  []float32{float32(i), 0.5, -1.25},
		}
	}
	return chunks
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "knowledge.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)

	err = store.db.Ping()
	assert.NoError(t, err)
}

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Reopen(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)

	ctx := context.Background()
	doc := testDocument("doc1")
	require.NoError(t, store.SaveDocument(ctx, doc, testChunks("doc1", 2)))
	require.NoError(t, store.Close())

	// Reopening must re-run migrations idempotently and keep data.
	store2, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
}

func TestSaveDocument_Roundtrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := testDocument("doc1")
	chunks := testChunks("doc1", 3)
	require.NoError(t, store.SaveDocument(ctx, doc, chunks))

	got, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, doc.OriginalFilename, got.OriginalFilename)
	assert.Equal(t, doc.StoredPath, got.StoredPath)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, domain.DocTypeContract, got.DocType)
	assert.Equal(t, doc.Metadata.Parties, got.Metadata.Parties)
	assert.Equal(t, doc.Metadata.Topics, got.Metadata.Topics)
	require.Len(t, got.Metadata.Dates, 1)
	assert.True(t, doc.Metadata.Dates[0].Equal(got.Metadata.Dates[0]))
	assert.Equal(t, doc.Content, got.Content)
	assert.True(t, doc.IngestedAt.Equal(got.IngestedAt))

	gotChunks, err := store.GetChunks(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, gotChunks, 3)
	for i, chunk := range gotChunks {
		assert.Equal(t, i, chunk.Sequence)
		assert.Equal(t, chunks[i].Content, chunk.Content)
		assert.Equal(t, chunks[i].Embedding, chunk.Embedding)
	}
}

func TestSaveDocument_ReplacesChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := testDocument("doc1")
	require.NoError(t, store.SaveDocument(ctx, doc, testChunks("doc1", 5)))
	require.NoError(t, store.SaveDocument(ctx, doc, testChunks("doc1", 2)))

	count, err := store.CountChunks(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetDocument_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindByContentHash(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := testDocument("doc1")
	require.NoError(t, store.SaveDocument(ctx, doc, testChunks("doc1", 1)))

	got, err := store.FindByContentHash(ctx, doc.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, "doc1", got.ID)

	_, err = store.FindByContentHash(ctx, "no-such-hash")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetChunk(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("doc1"), testChunks("doc1", 2)))

	chunk, err := store.GetChunk(ctx, "doc1-0001")
	require.NoError(t, err)
	assert.Equal(t, "doc1", chunk.DocumentID)
	assert.Equal(t, 1, chunk.Sequence)
	assert.Equal(t, []float32{1, 0.5, -1.25}, chunk.Embedding)

	_, err = store.GetChunk(ctx, "doc1-9999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("doc1"), testChunks("doc1", 3)))
	require.NoError(t, store.DeleteDocument(ctx, "doc1"))

	_, err := store.GetDocument(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := store.CountChunks(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDeleteDocument_NotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.DeleteDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDocuments_FilterAndOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	older := testDocument("older")
	older.DocType = domain.DocTypeEmail
	older.ContentHash = "hash-older"
	older.IngestedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newer := testDocument("newer")
	newer.ContentHash = "hash-newer"
	newer.IngestedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveDocument(ctx, newer, nil))
	require.NoError(t, store.SaveDocument(ctx, older, nil))

	all, err := store.ListDocuments(ctx, driven.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "older", all[0].ID)
	assert.Equal(t, "newer", all[1].ID)

	emails, err := store.ListDocuments(ctx, driven.DocumentFilter{DocType: domain.DocTypeEmail})
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "older", emails[0].ID)
}

func TestScanChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("doc1"), testChunks("doc1", 2)))

	doc2 := testDocument("doc2")
	doc2.ContentHash = "hash-doc2"
	require.NoError(t, store.SaveDocument(ctx, doc2, testChunks("doc2", 1)))

	var ids []string
	err := store.ScanChunks(ctx, func(rec driven.ChunkRecord) error {
		ids = append(ids, rec.Chunk.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1-0000", "doc1-0001", "doc2-0000"}, ids)
}

func TestScanChunks_StopsOnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("doc1"), testChunks("doc1", 3)))

	seen := 0
	err := store.ScanChunks(ctx, func(driven.ChunkRecord) error {
		seen++
		return os.ErrClosed
	})
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Equal(t, 1, seen)
}

func TestEmbeddingBlobRoundtrip(t *testing.T) {
	in := []float32{0, -0, 1.5, -2.25, 3.402823e38}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	assert.Equal(t, in, out)

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
