package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/docufield/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
}

// Result summarizes one text extraction run.
type Result struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE | constants.TXT
	Method     string // "pdf-text" | "pdf-text-inproc" | "pdf-ocr" | "image-ocr" | "plain"
	Duration   time.Duration
	Warnings   []string
	Confidence float64 // heuristic hint only, never carried into field confidence
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the exec runner; test seam.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// IsFormatSupported reports whether the file name's extension can be processed.
func (e *Extractor) IsFormatSupported(name string) bool {
	return constants.MapExtToFormat(filepath.Ext(name)) != ""
}

// SupportedFormats lists the accepted extensions, sorted.
func (e *Extractor) SupportedFormats() []string {
	out := make([]string, 0, len(constants.AllowedExtensions))
	for ext := range constants.AllowedExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// ExtractText picks a strategy based on file extension.
func (e *Extractor) ExtractText(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("textextract.start", "path", path, "ext", ext)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, path)
		res.Duration = time.Since(start)
		res.Confidence = heuristicConfidence(res.Text)
		return res, err
	case constants.IMAGE:
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		res.Confidence = heuristicConfidence(res.Text)
		return res, err
	case constants.TXT:
		b, err := os.ReadFile(path)
		if err != nil {
			return Result{SourceType: constants.TXT}, err
		}
		text := strings.ReplaceAll(string(b), "\r\n", "\n")
		return Result{
			Text:       text,
			Pages:      1,
			SourceType: constants.TXT,
			Method:     "plain",
			Duration:   time.Since(start),
			Confidence: heuristicConfidence(text),
		}, nil
	default:
		e.logger.Error("textextract.unsupported", "extension", ext)
		return Result{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}
