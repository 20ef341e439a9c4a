// docufieldd is the long-running HTTP service: document processing, pattern
// learning, and mapping-rule management behind a JSON API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/docufield/internal/classifier"
	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/export"
	"github.com/joseph-ayodele/docufield/internal/extraction"
	"github.com/joseph-ayodele/docufield/internal/patterns"
	"github.com/joseph-ayodele/docufield/internal/pipeline"
	"github.com/joseph-ayodele/docufield/internal/repository"
	"github.com/joseph-ayodele/docufield/internal/rules"
	"github.com/joseph-ayodele/docufield/internal/server"
	"github.com/joseph-ayodele/docufield/internal/textextract"
	"github.com/joseph-ayodele/docufield/internal/validation"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)

	if err := repository.HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	docsRepo := repository.NewDocumentRepository(db, logger)
	patternsRepo := repository.NewPatternRepository(db, logger)
	samplesRepo := repository.NewSampleRepository(db, logger)
	rulesRepo := repository.NewRuleRepository(db, logger)
	templatesRepo := repository.NewTemplateRepository(db, logger)

	store := patterns.NewStore(patternsRepo, logger)
	if err := store.Load(ctx); err != nil {
		logger.Error("failed to load pattern catalog", "error", err)
		os.Exit(1)
	}
	corpus := patterns.NewSampleCorpus(cfg.Engine.CorpusCap, samplesRepo, logger)
	learner := patterns.NewLearner(store, corpus, logger)

	ruleEngine := rules.NewEngine(rulesRepo, cfg.Engine.RuleThreshold, logger)
	if err := ruleEngine.Load(ctx); err != nil {
		logger.Error("failed to load mapping rules", "error", err)
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

	srv := server.New(server.Options{
		Addr:      cfg.Server.HTTPAddr,
		Processor: processor,
		Store:     store,
		Learner:   learner,
		Rules:     ruleEngine,
		Documents: docsRepo,
		Templates: templatesRepo,
		Exporter:  export.NewService(docsRepo, templatesRepo, logger),
		Logger:    logger,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
