package originals

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_StoreAndRemove(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Store(ctx, "complaint.pdf", []byte("original bytes"))
	require.NoError(t, err)
	assert.Equal(t, store.Dir(), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("original bytes"), data)

	require.NoError(t, store.Remove(ctx, path))
	assert.NoFileExists(t, path)

	// Removing an already-removed copy is not an error.
	assert.NoError(t, store.Remove(ctx, path))
}

func TestStore_SameNameNeverOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		ts = ts.Add(time.Nanosecond)
		return ts
	}

	first, err := store.Store(ctx, "notes.txt", []byte("v1"))
	require.NoError(t, err)
	second, err := store.Store(ctx, "notes.txt", []byte("v2"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	v1, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v1)
}

func TestStore_RejectsOutsidePaths(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	err = store.Remove(context.Background(), "/etc/passwd")
	assert.Error(t, err)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "complaint.pdf", safeFilename("complaint.pdf"))
	assert.Equal(t, "report.txt", safeFilename("../../report.txt"))
	assert.Equal(t, "exhibit_A_final_.docx", safeFilename("exhibit A<final>.docx"))
	assert.Equal(t, "unnamed", safeFilename(""))
}
