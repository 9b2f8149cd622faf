package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

// documentIDLength is the number of hex digits of the content hash used
// as the document ID. The full digest is kept as ContentHash.
const documentIDLength = 16

// NormalizeText collapses runs of whitespace to single spaces, strips
// invalid UTF-8 and control characters, and trims the result. Two inputs
// differing only in whitespace or encoding noise normalise identically,
// which is what the deduplication hash relies on.
func NormalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}

	return strings.TrimSpace(b.String())
}

// ContentHash returns the hex SHA-256 digest of normalised text.
func ContentHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the stable document identifier from a content hash.
func DocumentID(contentHash string) string {
	if len(contentHash) < documentIDLength {
		return contentHash
	}
	return contentHash[:documentIDLength]
}

// CountTokens approximates the token count of text as its whitespace
// separated word count.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}
