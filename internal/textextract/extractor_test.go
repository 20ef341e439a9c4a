package textextract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docufield/constants"
)

// stubRunner returns canned outputs keyed by binary name.
type stubRunner struct {
	stdout map[string]string
	errs   map[string]error
	calls  []string
}

func (s *stubRunner) Run(_ context.Context, name string, _ ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	if err := s.errs[name]; err != nil {
		return nil, []byte("boom"), err
	}
	return []byte(s.stdout[name]), nil, nil
}

func TestExtractTextPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("Account No: 123\r\nTotal: 9.99\r\n"), 0o644))

	e := NewExtractor(Config{}, nil)
	res, err := e.ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, constants.TXT, res.SourceType)
	assert.Equal(t, "plain", res.Method)
	assert.Equal(t, "Account No: 123\nTotal: 9.99\n", res.Text, "CRLF is normalized")
	assert.Equal(t, 1, res.Pages)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestExtractTextPDFTextLayer(t *testing.T) {
	pdfText := "TENAGA NASIONAL BERHAD\nAccount No: 1234567890123\nTotal Amount Due: RM 245.67\f"
	runner := &stubRunner{stdout: map[string]string{"pdftotext": pdfText}}

	e := NewExtractor(Config{}, nil).WithRunner(runner)
	res, err := e.ExtractText(context.Background(), writeDummy(t, "bill.pdf"))
	require.NoError(t, err)
	assert.Equal(t, constants.PDF, res.SourceType)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 2, res.Pages, "form feed separates pages")
	assert.Contains(t, res.Text, "1234567890123")
	assert.Equal(t, []string{"pdftotext"}, runner.calls, "a usable text layer skips OCR entirely")
}

func TestExtractTextScannedPDFFallsBackToOCR(t *testing.T) {
	// Short text layer means scanned-only; the rasterize step then fails in
	// this stub, so the whole extraction errors rather than silently
	// returning the stub text.
	runner := &stubRunner{
		stdout: map[string]string{"pdftotext": "  \n "},
		errs:   map[string]error{"pdftoppm": fmt.Errorf("exit status 1")},
	}

	e := NewExtractor(Config{}, nil).WithRunner(runner)
	_, err := e.ExtractText(context.Background(), writeDummy(t, "scan.pdf"))
	require.Error(t, err)
	assert.Equal(t, []string{"pdftotext", "pdftoppm"}, runner.calls)
}

func TestExtractTextImageOCR(t *testing.T) {
	runner := &stubRunner{stdout: map[string]string{"tesseract": "RECEIPT\nTotal: 12.50\n"}}

	e := NewExtractor(Config{}, nil).WithRunner(runner)
	res, err := e.ExtractText(context.Background(), writeDummy(t, "receipt.jpg"))
	require.NoError(t, err)
	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Contains(t, res.Text, "12.50")
}

func TestExtractTextUnsupported(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	_, err := e.ExtractText(context.Background(), "report.docx")
	assert.Error(t, err)
}

func TestIsFormatSupported(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	assert.True(t, e.IsFormatSupported("a.pdf"))
	assert.True(t, e.IsFormatSupported("b.JPG"))
	assert.True(t, e.IsFormatSupported("c.txt"))
	assert.False(t, e.IsFormatSupported("d.docx"))
	assert.False(t, e.IsFormatSupported("noext"))
}

func TestSupportedFormatsSorted(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	formats := e.SupportedFormats()
	require.NotEmpty(t, formats)
	assert.Contains(t, formats, "pdf")
	assert.IsIncreasing(t, formats)
}

func writeDummy(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("dummy"), 0o644))
	return path
}
