// docufield-batch walks a directory of documents, runs each through the
// processing pipeline, and writes an XLSX summary. With --inmem it needs no
// external database.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/classifier"
	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/export"
	"github.com/joseph-ayodele/docufield/internal/extraction"
	"github.com/joseph-ayodele/docufield/internal/patterns"
	"github.com/joseph-ayodele/docufield/internal/pipeline"
	"github.com/joseph-ayodele/docufield/internal/repository"
	"github.com/joseph-ayodele/docufield/internal/textextract"
	"github.com/joseph-ayodele/docufield/internal/validation"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir   = flag.String("dir", "", "directory to process documents from (required)")
		out   = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "documents.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()

	db, pool, err := openDatabase(ctx, cfg, *inmem, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)

	docsRepo := repository.NewDocumentRepository(db, logger)
	patternsRepo := repository.NewPatternRepository(db, logger)
	templatesRepo := repository.NewTemplateRepository(db, logger)

	store := patterns.NewStore(patternsRepo, logger)
	if err := store.Load(ctx); err != nil {
		logger.Error("failed to load pattern catalog", "error", err)
		os.Exit(1)
	}

	extractor := textextract.NewExtractor(textextract.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	processor := pipeline.NewProcessor(pipeline.Options{
		Extractor:        extractor,
		Classifier:       classifier.New(cfg.Engine.ClassifierFloor, logger),
		Engine:           extraction.NewEngine(store, logger),
		Validator:        validation.NewEngine(logger),
		Documents:        docsRepo,
		ReviewConfidence: cfg.Engine.ReviewConfidence,
		Logger:           logger,
	})

	paths, err := collectFiles(*dir, extractor)
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		logger.Warn("no supported documents found", "dir", *dir)
		os.Exit(0)
	}
	logger.Info("processing batch", "dir", *dir, "documents", len(paths))

	docs := processor.ProcessBatch(ctx, paths)

	var completed, review, failed int
	for _, d := range docs {
		switch d.Status {
		case constants.StatusCompleted:
			completed++
		case constants.StatusNeedsReview:
			review++
		default:
			failed++
		}
	}
	logger.Info("batch done", "completed", completed, "needs_review", review, "failed_or_cancelled", failed)

	svc := export.NewService(docsRepo, templatesRepo, logger)
	data, err := svc.ExportDocumentsXLSX(ctx, "", 0)
	if err != nil {
		logger.Error("failed to build XLSX", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("failed to write XLSX", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("wrote summary", "path", *out)
}

func openDatabase(ctx context.Context, cfg *common.Config, inmem bool, logger *slog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	if inmem {
		d, err := repository.OpenSQLite(ctx, ":memory:", logger)
		return d, nil, err
	}
	if cfg.Database.DSN == "" {
		return nil, nil, fmt.Errorf("DB_URL is required without --inmem")
	}
	return repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
}

// collectFiles returns the supported files under dir, sorted for stable order.
func collectFiles(dir string, extractor *textextract.Extractor) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if extractor.IsFormatSupported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
