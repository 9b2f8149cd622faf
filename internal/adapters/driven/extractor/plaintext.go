package extractor

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

var _ driven.Extractor = (*Plaintext)(nil)

// Plaintext handles formats that are already text on disk.
type Plaintext struct{}

// NewPlaintext creates a plaintext extractor.
func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

// SupportedExtensions returns the text-like extensions.
func (p *Plaintext) SupportedExtensions() []string {
	return []string{".txt", ".md", ".csv", ".log"}
}

// Extract returns the file content as a string. Invalid UTF-8 sequences
// are replaced rather than rejected, since scanned exports often carry
// stray bytes.
func (p *Plaintext) Extract(_ context.Context, raw *domain.RawFile) (string, error) {
	if len(raw.Content) == 0 {
		return "", fmt.Errorf("%w: empty file", domain.ErrExtractionFailed)
	}
	if utf8.Valid(raw.Content) {
		return string(raw.Content), nil
	}
	return string(bytes.ToValidUTF8(raw.Content, []byte("�"))), nil
}
