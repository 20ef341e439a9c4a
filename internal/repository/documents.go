package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/entity"
)

type DocumentRepository interface {
	Save(ctx context.Context, doc *entity.ExtractedDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ExtractedDocument, error)
	List(ctx context.Context, status constants.ProcessingStatus, limit int) ([]*entity.ExtractedDocument, error)
}

type documentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentRepository(db *sql.DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) Save(ctx context.Context, doc *entity.ExtractedDocument) error {
	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return common.WrapError(err, "marshal fields")
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, source_path, source_format, document_type, supplier, fields,
			 overall_confidence, status, error_message, raw_text, duration_ms,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			document_type = EXCLUDED.document_type,
			supplier = EXCLUDED.supplier,
			fields = EXCLUDED.fields,
			overall_confidence = EXCLUDED.overall_confidence,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			raw_text = EXCLUDED.raw_text,
			duration_ms = EXCLUDED.duration_ms,
			updated_at = EXCLUDED.updated_at`,
		doc.ID.String(), doc.SourcePath, doc.SourceFormat, string(doc.DocumentType),
		doc.Supplier, string(fields), doc.OverallConfidence, string(doc.Status),
		doc.ErrorMessage, doc.RawText, doc.Duration.Milliseconds(),
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to save document", "document_id", doc.ID, "error", err)
		return common.WrapError(err, "save document")
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ExtractedDocument, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, source_path, source_format, document_type, supplier, fields,
		       overall_confidence, status, error_message, raw_text, duration_ms,
		       created_at, updated_at
		FROM documents WHERE id = $1`, id.String())
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return doc, err
}

// List returns documents newest-first, optionally filtered by status. A limit
// of zero or less returns everything.
func (r *documentRepository) List(ctx context.Context, status constants.ProcessingStatus, limit int) ([]*entity.ExtractedDocument, error) {
	query := `
		SELECT id, source_path, source_format, document_type, supplier, fields,
		       overall_confidence, status, error_message, raw_text, duration_ms,
		       created_at, updated_at
		FROM documents`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.ExtractedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.ExtractedDocument, error) {
	var (
		doc        entity.ExtractedDocument
		id         string
		docType    string
		status     string
		fields     string
		durationMS int64
	)
	err := row.Scan(&id, &doc.SourcePath, &doc.SourceFormat, &docType, &doc.Supplier,
		&fields, &doc.OverallConfidence, &status, &doc.ErrorMessage, &doc.RawText,
		&durationMS, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, common.WrapError(err, "parse document id")
	}
	doc.DocumentType = constants.DocumentType(docType)
	doc.Status = constants.ProcessingStatus(status)
	doc.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
		return nil, common.WrapError(err, "unmarshal fields")
	}
	return &doc, nil
}
