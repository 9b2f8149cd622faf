package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

var _ driven.Extractor = (*PDF)(nil)

// PDF extracts text from PDF files. When the PDF library cannot decode
// the file, it falls back to scraping printable characters, which is
// enough for text-layer PDFs with broken metadata.
type PDF struct{}

// NewPDF creates a PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// SupportedExtensions returns the PDF extension.
func (p *PDF) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Extract returns the plain text of the PDF.
func (p *PDF) Extract(_ context.Context, raw *domain.RawFile) (string, error) {
	if len(raw.Content) == 0 {
		return "", fmt.Errorf("%w: empty file", domain.ErrExtractionFailed)
	}

	if r, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content))); err == nil {
		if reader, err := r.GetPlainText(); err == nil {
			if out, err := io.ReadAll(reader); err == nil && len(out) > 0 {
				return string(out), nil
			}
		}
	}

	text := extractPrintableText(raw.Content)
	if len(bytes.TrimSpace(text)) == 0 {
		return "", fmt.Errorf("%w: no extractable text in pdf", domain.ErrExtractionFailed)
	}
	return string(text), nil
}

// extractPrintableText keeps printable runes and common whitespace,
// dropping everything else.
func extractPrintableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			b := in[0]
			if isPrintableASCII(b) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if isPrintableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}

func isPrintableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}

func isPrintableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	return r >= 32 && r < 127 || r >= 127 && r <= 0x10FFFF
}
