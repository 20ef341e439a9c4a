// Package pipeline drives a document through validation, text extraction,
// classification, field extraction, and finalization, emitting progress
// events along the way.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/classifier"
	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/entity"
	"github.com/joseph-ayodele/docufield/internal/extraction"
	"github.com/joseph-ayodele/docufield/internal/repository"
	"github.com/joseph-ayodele/docufield/internal/textextract"
	"github.com/joseph-ayodele/docufield/internal/validation"
)

// TextExtractionPort is the slice of the text extractor the pipeline consumes.
type TextExtractionPort interface {
	IsFormatSupported(name string) bool
	ExtractText(ctx context.Context, path string) (textextract.Result, error)
}

// Processor is the document processing state machine. Each document moves
// Pending -> Processing -> {Completed, NeedsReview, Failed, Cancelled};
// terminal statuses are never rewritten.
type Processor struct {
	extractor        TextExtractionPort
	classifier       *classifier.Classifier
	engine           *extraction.Engine
	validator        *validation.Engine
	docs             repository.DocumentRepository
	notifier         *Notifier
	reviewConfidence float64
	logger           *slog.Logger
}

type Options struct {
	Extractor        TextExtractionPort
	Classifier       *classifier.Classifier
	Engine           *extraction.Engine
	Validator        *validation.Engine
	Documents        repository.DocumentRepository // optional; nil skips persistence
	Notifier         *Notifier                     // optional
	ReviewConfidence float64
	Logger           *slog.Logger
}

func NewProcessor(opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = NewNotifier(opts.Logger)
	}
	return &Processor{
		extractor:        opts.Extractor,
		classifier:       opts.Classifier,
		engine:           opts.Engine,
		validator:        opts.Validator,
		docs:             opts.Documents,
		notifier:         opts.Notifier,
		reviewConfidence: opts.ReviewConfidence,
		logger:           opts.Logger,
	}
}

// Notifier exposes the event stream for subscription.
func (p *Processor) Notifier() *Notifier { return p.notifier }

// ProcessDocument runs one document through the full pipeline. On failure the
// returned document carries StatusFailed and ErrorMessage, and the error is
// also returned; the caller gets a result either way.
func (p *Processor) ProcessDocument(ctx context.Context, path string) (*entity.ExtractedDocument, error) {
	return p.process(ctx, path, 0, 0)
}

// ProcessBatch runs documents sequentially, one result per input in order.
// Cancellation is honored between documents: already-finished results are
// kept and the remainder come back StatusCancelled.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string) []*entity.ExtractedDocument {
	out := make([]*entity.ExtractedDocument, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for _, rest := range paths[i:] {
				out = append(out, p.cancelled(rest))
			}
			p.logger.Warn("pipeline.batch.cancelled", "done", i, "total", len(paths))
			return out
		}
		doc, _ := p.process(ctx, path, i+1, len(paths))
		out = append(out, doc)
	}
	return out
}

func (p *Processor) process(ctx context.Context, path string, index, total int) (*entity.ExtractedDocument, error) {
	start := time.Now()
	now := start.UTC()
	doc := &entity.ExtractedDocument{
		ID:           uuid.New(),
		SourcePath:   path,
		DocumentType: constants.DocTypeUnknown,
		Supplier:     constants.UnknownSupplier,
		Status:       constants.StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	fractions := map[string]float64{
		MilestoneValidate: 0.2,
		MilestoneOCR:      0.4,
		MilestoneClassify: 0.6,
		MilestoneExtract:  0.8,
		MilestoneFinalize: 1.0,
	}
	emit := func(kind, milestone, message string) {
		p.notifier.Publish(Event{
			Kind:       kind,
			DocumentID: doc.ID,
			SourcePath: path,
			Milestone:  milestone,
			Fraction:   fractions[milestone],
			Status:     doc.Status,
			Message:    message,
			Index:      index,
			Total:      total,
		})
	}
	emit(EventStarted, "", "")

	// validate
	if _, err := os.Stat(path); err != nil {
		return doc, p.fail(ctx, doc, start, emit, MilestoneValidate, fmt.Errorf("source file: %w", err))
	}
	if !p.extractor.IsFormatSupported(path) {
		return doc, p.fail(ctx, doc, start, emit, MilestoneValidate, common.ErrUnsupportedFormat)
	}
	emit(EventProgress, MilestoneValidate, "")

	// ocr
	res, err := p.extractor.ExtractText(ctx, path)
	if err != nil {
		return doc, p.fail(ctx, doc, start, emit, MilestoneOCR, err)
	}
	if len(res.Text) == 0 {
		return doc, p.fail(ctx, doc, start, emit, MilestoneOCR, common.ErrEmptyText)
	}
	doc.SourceFormat = res.SourceType
	doc.RawText = res.Text
	emit(EventProgress, MilestoneOCR, res.Method)

	// classify
	docType, score := p.classifier.ClassifyType(res.Text)
	supplier, supplierConf := p.classifier.DetectSupplier(res.Text, docType)
	doc.DocumentType = docType
	doc.Supplier = supplier
	emit(EventProgress, MilestoneClassify, fmt.Sprintf("%s (%.2f), supplier %s (%.2f)", docType, score, supplier, supplierConf))

	// extract + validate fields
	fields := p.engine.ExtractFields(ctx, res.Text, docType, supplier)
	if p.validator != nil && len(fields) > 0 {
		vr := p.validator.ValidateExtractedFields(fields, docType)
		fields = vr.CorrectedFields
		for _, ve := range vr.Errors {
			p.logger.Warn("pipeline.validate.field", "document_id", doc.ID, "field", ve.FieldName, "error", ve.Message)
		}
	}
	doc.Fields = fields
	doc.RecomputeConfidence()
	emit(EventProgress, MilestoneExtract, fmt.Sprintf("%d fields", len(fields)))

	// finalize: zero extracted fields is still a completed run, it just lands
	// in review because confidence is zero.
	doc.Status = constants.StatusCompleted
	if doc.OverallConfidence < p.reviewConfidence || doc.DocumentType == constants.DocTypeUnknown {
		doc.Status = constants.StatusNeedsReview
	}
	doc.Duration = time.Since(start)
	doc.UpdatedAt = time.Now().UTC()
	p.save(ctx, doc)
	emit(EventProgress, MilestoneFinalize, "")
	emit(EventCompleted, "", string(doc.Status))
	p.logger.Info("pipeline.document.done",
		"document_id", doc.ID,
		"status", doc.Status,
		"type", doc.DocumentType,
		"supplier", doc.Supplier,
		"fields", len(doc.Fields),
		"confidence", doc.OverallConfidence,
		"duration", doc.Duration)
	return doc, nil
}

// fail marks the document terminally failed and reports the cause.
func (p *Processor) fail(ctx context.Context, doc *entity.ExtractedDocument, start time.Time, emit func(string, string, string), milestone string, err error) error {
	if errors.Is(err, context.Canceled) {
		doc.Status = constants.StatusCancelled
	} else {
		doc.Status = constants.StatusFailed
	}
	doc.ErrorMessage = err.Error()
	doc.Duration = time.Since(start)
	doc.UpdatedAt = time.Now().UTC()
	p.save(ctx, doc)
	emit(EventFailed, milestone, err.Error())
	p.logger.Error("pipeline.document.failed", "document_id", doc.ID, "path", doc.SourcePath, "milestone", milestone, "error", err)
	return err
}

func (p *Processor) cancelled(path string) *entity.ExtractedDocument {
	now := time.Now().UTC()
	return &entity.ExtractedDocument{
		ID:           uuid.New(),
		SourcePath:   path,
		DocumentType: constants.DocTypeUnknown,
		Supplier:     constants.UnknownSupplier,
		Status:       constants.StatusCancelled,
		ErrorMessage: context.Canceled.Error(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (p *Processor) save(ctx context.Context, doc *entity.ExtractedDocument) {
	if p.docs == nil {
		return
	}
	// persistence must not observe the caller's cancellation mid-write
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.docs.Save(saveCtx, doc); err != nil {
		p.logger.Error("pipeline.document.persist_failed", "document_id", doc.ID, "error", err)
	}
}
