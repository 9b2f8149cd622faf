package driven

import "context"

// OriginalsStore keeps a permanent copy of every ingested original file.
// Stored names embed an ingestion timestamp so same-named uploads never
// overwrite earlier copies.
type OriginalsStore interface {
	// Store copies the given content under a name derived from
	// declaredFilename plus a timestamp, and returns the stored path.
	Store(ctx context.Context, declaredFilename string, content []byte) (string, error)

	// Remove deletes a stored original by its path.
	Remove(ctx context.Context, storedPath string) error
}
