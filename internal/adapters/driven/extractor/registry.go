// Package extractor converts supported file formats into plain text for
// the ingestion pipeline.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches raw files to the extractor registered for their
// filename extension.
type Registry struct {
	byExt map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Extractor)}
}

// NewDefaultRegistry creates a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPlaintext())
	r.Register(NewPDF())
	r.Register(NewXLSX())
	r.Register(NewEmail())
	return r
}

// Register adds an extractor for its supported extensions. Later
// registrations win on extension conflicts.
func (r *Registry) Register(e driven.Extractor) {
	for _, ext := range e.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// SupportedExtensions returns every registered extension.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Extract dispatches to the extractor for the file's extension.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawFile) (string, error) {
	ext := strings.ToLower(filepath.Ext(raw.DeclaredFilename))
	e, ok := r.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: no extractor for %q: %w",
			domain.ErrExtractionFailed, ext, domain.ErrUnsupportedType)
	}
	text, err := e.Extract(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", raw.DeclaredFilename, err)
	}
	return text, nil
}
