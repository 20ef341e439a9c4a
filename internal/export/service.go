// Package export produces XLSX workbooks from processed documents: a flat
// summary listing, and template-driven placement of mapped field values.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/entity"
	"github.com/joseph-ayodele/docufield/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes.
type Service struct {
	docs      repository.DocumentRepository
	templates repository.TemplateRepository
	logger    *slog.Logger
}

func NewService(docs repository.DocumentRepository, templates repository.TemplateRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, templates: templates, logger: logger}
}

// ExportDocumentsXLSX returns a workbook (as bytes) with one row per stored
// document, optionally filtered by status ("" = all). A limit of zero or less
// exports every document.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, status constants.ProcessingStatus, limit int) ([]byte, error) {
	start := time.Now()

	docs, err := s.docs.List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Processed At",
		"Document Type",
		"Supplier",
		"Status",
		"Confidence",
		"Fields",
		"Error",
		"Source Path",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range docs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, d.UpdatedAt.Format("2006-01-02 15:04"))
		write(2, string(d.DocumentType))
		write(3, d.Supplier)
		write(4, string(d.Status))
		write(5, fmt.Sprintf("%.2f", d.OverallConfidence))
		write(6, summarizeFields(d.Fields))
		write(7, truncate(d.ErrorMessage, 140))
		write(8, d.SourcePath)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18) // timestamp
	_ = f.SetColWidth(sheet, "B", "C", 22) // type, supplier
	_ = f.SetColWidth(sheet, "D", "E", 12) // status, confidence
	_ = f.SetColWidth(sheet, "F", "F", 60) // fields
	_ = f.SetColWidth(sheet, "G", "G", 40) // error
	_ = f.SetColWidth(sheet, "H", "H", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ApplyTemplate writes a document's field values into the template's sheet at
// the locations the mappings dictate and returns the workbook bytes. Mappings
// whose field is absent from the document are skipped; a missing required
// field is an error.
func (s *Service) ApplyTemplate(ctx context.Context, doc *entity.ExtractedDocument, templateID uuid.UUID, mappings []entity.TemplateFieldMapping) ([]byte, error) {
	tpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	sheet := tpl.SheetName
	if sheet == "" {
		sheet = "Sheet1"
	}

	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if sheet != "Sheet1" {
		if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
			_ = f.DeleteSheet("Sheet1")
		}
	}

	written := 0
	for _, m := range mappings {
		field := doc.Field(m.FieldName)
		if field == nil || field.Value == "" {
			if m.Required {
				return nil, fmt.Errorf("required field %q missing from document", m.FieldName)
			}
			continue
		}
		if err := f.SetCellValue(sheet, m.TargetLocation, field.Value); err != nil {
			return nil, fmt.Errorf("write %s to %s: %w", m.FieldName, m.TargetLocation, err)
		}
		written++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.template.ok",
		"template_id", templateID.String(),
		"template", tpl.Name,
		"cells", written,
	)
	return buf.Bytes(), nil
}

func summarizeFields(fields []entity.ExtractedField) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += "; "
		}
		out += f.FieldName + "=" + f.Value
	}
	return truncate(out, 200)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
