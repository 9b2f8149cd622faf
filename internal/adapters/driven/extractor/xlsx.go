package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

var _ driven.Extractor = (*XLSX)(nil)

// XLSX extracts cell text from spreadsheet files, one row per line with
// tab-separated cells. Sheet names are kept as section headers so party
// and date extraction can see them.
type XLSX struct{}

// NewXLSX creates a spreadsheet extractor.
func NewXLSX() *XLSX {
	return &XLSX{}
}

// SupportedExtensions returns the spreadsheet extensions.
func (x *XLSX) SupportedExtensions() []string {
	return []string{".xlsx", ".xlsm"}
}

// Extract returns the textual content of every sheet.
func (x *XLSX) Extract(_ context.Context, raw *domain.RawFile) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw.Content))
	if err != nil {
		return "", fmt.Errorf("%w: opening spreadsheet: %w", domain.ErrExtractionFailed, err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: reading sheet %s: %w", domain.ErrExtractionFailed, sheet, err)
		}
		b.WriteString(sheet)
		b.WriteString("\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty spreadsheet", domain.ErrExtractionFailed)
	}
	return text, nil
}
