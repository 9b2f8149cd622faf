package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
)

var _ driven.Extractor = (*Email)(nil)

// Email extracts header lines and the text body from RFC 5322 messages.
// Headers are kept in the output because classification and metadata
// extraction rely on From/To/Subject/Date lines.
type Email struct{}

// NewEmail creates an email extractor.
func NewEmail() *Email {
	return &Email{}
}

// SupportedExtensions returns the email extension.
func (e *Email) SupportedExtensions() []string {
	return []string{".eml"}
}

// Extract returns the message headers followed by the plain-text body.
func (e *Email) Extract(_ context.Context, raw *domain.RawFile) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return "", fmt.Errorf("%w: parsing message: %w", domain.ErrExtractionFailed, err)
	}

	var b strings.Builder
	for _, h := range []string{"From", "To", "Cc", "Subject", "Date"} {
		if v := msg.Header.Get(h); v != "" {
			b.WriteString(h)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	body, err := readBody(msg)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", domain.ErrExtractionFailed, err)
	}
	b.WriteString(body)

	return b.String(), nil
}

// readBody returns the plain-text body, descending into multipart
// messages to find the text/plain part.
func readBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		return readPart(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return readPart(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return readPart(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("multipart message without boundary")
	}

	mr := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if partType == "" || partType == "text/plain" {
			return readPart(part, part.Header.Get("Content-Transfer-Encoding"))
		}
	}
	return "", nil
}

// readPart decodes one body part according to its transfer encoding.
func readPart(r io.Reader, encoding string) (string, error) {
	if strings.EqualFold(encoding, "quoted-printable") {
		r = quotedprintable.NewReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
