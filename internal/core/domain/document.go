package domain

import "time"

// DocType classifies a document into one of a closed set of categories.
// Downstream analyses rely on this set being exhaustive, so it is a
// tagged enum with an explicit Other fallback rather than a free string.
type DocType string

const (
	// DocTypeFiling is a court filing (motion, pleading, order).
	DocTypeFiling DocType = "filing"

	// DocTypeContract is a contract or agreement.
	DocTypeContract DocType = "contract"

	// DocTypeEmail is an email message.
	DocTypeEmail DocType = "email"

	// DocTypeFinancial is a financial record (invoice, ledger, statement).
	DocTypeFinancial DocType = "financial_record"

	// DocTypeOther is the fallback for unrecognised content.
	DocTypeOther DocType = "other"
)

// AllDocTypes lists every valid DocType.
func AllDocTypes() []DocType {
	return []DocType{DocTypeFiling, DocTypeContract, DocTypeEmail, DocTypeFinancial, DocTypeOther}
}

// Valid reports whether t is one of the known document types.
func (t DocType) Valid() bool {
	switch t {
	case DocTypeFiling, DocTypeContract, DocTypeEmail, DocTypeFinancial, DocTypeOther:
		return true
	}
	return false
}

// Metadata holds the structured fields extracted from a document's text.
// Partial extraction (empty fields) is normal, not an error.
type Metadata struct {
	// Parties are person or organisation names mentioned in the document.
	Parties []string

	// Dates are calendar dates found in the text, normalised to UTC midnight.
	Dates []time.Time

	// Topics are recognised subject keywords (e.g. "contract", "fraud").
	Topics []string
}

// Document represents one ingested case file.
// It is the canonical record after extraction and normalisation.
type Document struct {
	// ID is the stable identifier, derived from the content hash.
	ID string

	// OriginalFilename is the name the file was uploaded under.
	OriginalFilename string

	// StoredPath is the location of the timestamped original copy.
	StoredPath string

	// ContentHash is the SHA-256 digest of the normalised text, hex encoded.
	ContentHash string

	// DocType is the classified document category.
	DocType DocType

	// Metadata contains the extracted parties, dates and topics.
	Metadata Metadata

	// Content is the full normalised text.
	Content string

	// IngestedAt is when the document was committed to the knowledge base.
	IngestedAt time.Time
}

// Chunk represents a searchable unit within a document.
// Documents are split into overlapping chunks so no semantic unit is cut
// at a boundary without shared context.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Sequence is the ordinal position within the document, contiguous from 0.
	Sequence int

	// Content is the text span of this chunk.
	Content string

	// TokenCount is the approximate token count of Content.
	TokenCount int

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// RawFile represents opaque input handed to the ingestion boundary.
// Either Path or Content is set; when both are set Content wins.
type RawFile struct {
	// DeclaredFilename is the name the caller uploaded the file under.
	DeclaredFilename string

	// Path is the filesystem location of the input, if file-backed.
	Path string

	// Content is the raw bytes, if already in memory.
	Content []byte
}
