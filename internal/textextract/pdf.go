package textextract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/docufield/constants"
)

// minTextLayerChars below which a PDF's text layer is considered scanned-only
// and the rasterize+OCR path is taken instead.
const minTextLayerChars = 32

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	text, pages, warns, err := e.pdfToText(ctx, path)
	method := "pdf-text"
	if err != nil {
		// pdftotext missing or failing; try the in-process text layer reader.
		t, p, inErr := readPDFTextLayer(path)
		if inErr == nil {
			text, pages, method = t, p, "pdf-text-inproc"
			warns = append(warns, fmt.Sprintf("pdftotext unavailable: %v", err))
			err = nil
		}
	}
	if err == nil && len(strings.TrimSpace(text)) >= minTextLayerChars {
		return Result{Text: text, Pages: pages, SourceType: constants.PDF, Method: method, Warnings: warns}, nil
	}

	// No usable text layer: rasterize and OCR.
	text, pages, ocrWarns, ocrErr := e.pdfToOCR(ctx, path)
	warns = append(warns, ocrWarns...)
	if ocrErr != nil {
		e.logger.Error("textextract.pdf.failed", "path", path, "error", ocrErr)
		return Result{SourceType: constants.PDF, Warnings: warns}, ocrErr
	}
	return Result{Text: text, Pages: pages, SourceType: constants.PDF, Method: "pdf-ocr", Warnings: warns}, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(text, "\f")
	return text, pages, nil, nil
}

// readPDFTextLayer pulls the text layer without external binaries.
func readPDFTextLayer(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", 0, err
	}
	var b bytes.Buffer
	if _, err := b.ReadFrom(reader); err != nil {
		return "", 0, err
	}
	return b.String(), r.NumPage(), nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "df-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
		warns = append(warns, w...)
	}
	pages = len(matches)
	return b.String(), pages, warns, nil
}
