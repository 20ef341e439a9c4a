// runextract extracts text from a single document and prints it, with the
// classification result. Diagnostic tool for checking OCR quality before
// feeding a directory to docufield-batch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joseph-ayodele/docufield/internal/classifier"
	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/textextract"
)

func main() {
	var (
		path    = flag.String("file", "", "document to extract (required)")
		verbose = flag.Bool("v", false, "debug logging")
		rawOnly = flag.Bool("raw", false, "print raw text only, skip classification")
	)
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	extractor := textextract.NewExtractor(textextract.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	res, err := extractor.ExtractText(ctx, *path)
	if err != nil {
		logger.Error("extraction failed", "path", *path, "error", err)
		os.Exit(1)
	}
	logger.Info("extracted",
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"duration", res.Duration)
	for _, w := range res.Warnings {
		logger.Warn("extraction warning", "warning", w)
	}

	if !*rawOnly {
		cls := classifier.New(cfg.Engine.ClassifierFloor, logger)
		docType, score := cls.ClassifyType(res.Text)
		supplier, supplierConf := cls.DetectSupplier(res.Text, docType)
		logger.Info("classified",
			"type", docType,
			"score", score,
			"supplier", supplier,
			"supplier_confidence", supplierConf)
	}

	fmt.Println(res.Text)
}
