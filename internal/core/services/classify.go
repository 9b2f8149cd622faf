package services

import (
	"path/filepath"
	"strings"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

// Classification signal keywords per document type. Content signals take
// precedence over the filename extension.
var (
	filingKeywords    = []string{"motion", "pleading", "complaint", "subpoena", "affidavit", "court order", "docket"}
	contractKeywords  = []string{"contract", "agreement", "hereinafter", "party of the first part", "terms and conditions"}
	emailKeywords     = []string{"from:", "to:", "subject:", "cc:", "forwarded message"}
	financialKeywords = []string{"invoice", "payment", "balance", "account statement", "wire transfer", "ledger"}
)

var extensionTypes = map[string]domain.DocType{
	".eml":  domain.DocTypeEmail,
	".msg":  domain.DocTypeEmail,
	".csv":  domain.DocTypeFinancial,
	".xlsx": domain.DocTypeFinancial,
	".xls":  domain.DocTypeFinancial,
}

// Classify assigns exactly one document type based on the declared
// filename extension, content structure signals, and keyword heuristics
// over the normalised text. Classification never fails; unrecognised
// content yields DocTypeOther.
func Classify(filename, normalized string) domain.DocType {
	content := strings.ToLower(normalized)
	ext := strings.ToLower(filepath.Ext(filename))

	if containsAny(content, emailKeywords) && countAny(content, emailKeywords) >= 2 {
		return domain.DocTypeEmail
	}
	if containsAny(content, filingKeywords) {
		return domain.DocTypeFiling
	}
	if containsAny(content, contractKeywords) {
		return domain.DocTypeContract
	}
	if containsAny(content, financialKeywords) {
		return domain.DocTypeFinancial
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return domain.DocTypeOther
}

func containsAny(content string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

func countAny(content string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			n++
		}
	}
	return n
}
