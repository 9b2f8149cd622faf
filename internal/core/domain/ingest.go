package domain

// IngestStatus is the outcome category of one ingestion attempt.
type IngestStatus string

const (
	// StatusIngested means the document was stored and fully indexed.
	StatusIngested IngestStatus = "ingested"

	// StatusDuplicateSkipped means identical content was already present;
	// no new state was written.
	StatusDuplicateSkipped IngestStatus = "duplicate_skipped"

	// StatusIndexPending means the document is stored durably but index
	// insertion has not completed yet; it is retried automatically.
	StatusIndexPending IngestStatus = "index_pending"
)

// IngestOutcome reports the result of ingesting a single file.
// Every ingestion call returns an explicit outcome; there are no
// silent no-ops.
type IngestOutcome struct {
	// DocumentID identifies the stored (or pre-existing) document.
	DocumentID string

	// Status is the outcome category.
	Status IngestStatus

	// Filename is the declared filename the outcome refers to.
	Filename string
}

// ConsistencyReport describes how the index entry counts compare to the
// live chunk set. Consistent means both indexes are in exact 1:1
// correspondence with stored chunks.
type ConsistencyReport struct {
	Chunks         int
	VectorEntries  int
	KeywordEntries int
	PendingDocs    int
}

// Consistent reports whether the correspondence invariant holds.
func (r ConsistencyReport) Consistent() bool {
	return r.VectorEntries == r.Chunks && r.KeywordEntries == r.Chunks && r.PendingDocs == 0
}

// BatchOutcome reports per-file results of a batch ingestion.
// A failing file never aborts the batch.
type BatchOutcome struct {
	// JobID identifies the batch run.
	JobID string

	// Outcomes holds the result for each successfully processed file,
	// in input order.
	Outcomes []IngestOutcome

	// Failures maps declared filenames to the error that rejected them.
	Failures map[string]error
}
