package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casekb/internal/core/domain"
)

func rawFile(name string, content []byte) *domain.RawFile {
	return &domain.RawFile{DeclaredFilename: name, Content: content}
}

func TestRegistry_DispatchByExtension(t *testing.T) {
	reg := NewDefaultRegistry()
	ctx := context.Background()

	text, err := reg.Extract(ctx, rawFile("notes.txt", []byte("plain content")))
	require.NoError(t, err)
	assert.Equal(t, "plain content", text)

	text, err = reg.Extract(ctx, rawFile("NOTES.TXT", []byte("upper ext")))
	require.NoError(t, err)
	assert.Equal(t, "upper ext", text)
}

func TestRegistry_UnsupportedExtension(t *testing.T) {
	reg := NewDefaultRegistry()

	_, err := reg.Extract(context.Background(), rawFile("image.png", []byte{0x89, 0x50}))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestPlaintext_Extract(t *testing.T) {
	p := NewPlaintext()
	ctx := context.Background()

	text, err := p.Extract(ctx, rawFile("a.csv", []byte("date,amount\n2024-01-01,5000\n")))
	require.NoError(t, err)
	assert.Contains(t, text, "2024-01-01")

	_, err = p.Extract(ctx, rawFile("empty.txt", nil))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestPlaintext_RepairsInvalidUTF8(t *testing.T) {
	p := NewPlaintext()

	text, err := p.Extract(context.Background(), rawFile("a.txt", []byte{'o', 'k', 0xff, '!'}))
	require.NoError(t, err)
	assert.Contains(t, text, "ok")
	assert.Contains(t, text, "!")
}

func TestPDF_PrintableFallback(t *testing.T) {
	p := NewPDF()

	// Not a real PDF; the fallback should still surface the readable text.
	content := append([]byte{0x00, 0x01}, []byte("Settlement Agreement between parties")...)
	text, err := p.Extract(context.Background(), rawFile("scan.pdf", content))
	require.NoError(t, err)
	assert.Contains(t, text, "Settlement Agreement")
}

func TestPDF_NoText(t *testing.T) {
	p := NewPDF()

	_, err := p.Extract(context.Background(), rawFile("blank.pdf", []byte{0x00, 0x01, 0x02}))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)

	_, err = p.Extract(context.Background(), rawFile("empty.pdf", nil))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestXLSX_RejectsGarbage(t *testing.T) {
	x := NewXLSX()

	_, err := x.Extract(context.Background(), rawFile("ledger.xlsx", []byte("not a zip")))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestEmail_Extract(t *testing.T) {
	e := NewEmail()

	msg := strings.Join([]string{
		"From: alice@example.com",
		"To: bob@example.com",
		"Subject: Payment schedule",
		"Date: Mon, 15 Jan 2024 10:00:00 +0000",
		"",
		"Bob, the January payment was never received.",
		"",
	}, "\r\n")

	text, err := e.Extract(context.Background(), rawFile("msg.eml", []byte(msg)))
	require.NoError(t, err)
	assert.Contains(t, text, "From: alice@example.com")
	assert.Contains(t, text, "Subject: Payment schedule")
	assert.Contains(t, text, "January payment was never received")
}

func TestEmail_Multipart(t *testing.T) {
	e := NewEmail()

	msg := strings.Join([]string{
		"From: alice@example.com",
		"Subject: Attached invoice",
		"Content-Type: multipart/mixed; boundary=XYZ",
		"",
		"--XYZ",
		"Content-Type: text/plain",
		"",
		"Invoice attached for review.",
		"--XYZ",
		"Content-Type: application/pdf",
		"",
		"%PDF-binarydata",
		"--XYZ--",
		"",
	}, "\r\n")

	text, err := e.Extract(context.Background(), rawFile("msg.eml", []byte(msg)))
	require.NoError(t, err)
	assert.Contains(t, text, "Invoice attached for review.")
	assert.NotContains(t, text, "%PDF")
}

func TestEmail_Invalid(t *testing.T) {
	e := NewEmail()

	_, err := e.Extract(context.Background(), rawFile("bad.eml", []byte("no headers here")))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
