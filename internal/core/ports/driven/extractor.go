package driven

import (
	"context"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// Extractor turns one file format into plain text.
// Each extractor handles specific filename extensions.
type Extractor interface {
	// SupportedExtensions returns lowercase extensions including the dot
	// (e.g. ".pdf", ".txt").
	SupportedExtensions() []string

	// Extract returns the plain text of the raw file. Failure is reported
	// as an error wrapping domain.ErrExtractionFailed.
	Extract(ctx context.Context, raw *domain.RawFile) (string, error)
}

// ExtractorRegistry selects the extractor for a declared filename.
type ExtractorRegistry interface {
	// Extract dispatches to the extractor registered for the filename's
	// extension. Unknown extensions yield domain.ErrUnsupportedType
	// wrapped in domain.ErrExtractionFailed.
	Extract(ctx context.Context, raw *domain.RawFile) (string, error)

	// Register adds an extractor for its supported extensions.
	Register(e Extractor)
}
