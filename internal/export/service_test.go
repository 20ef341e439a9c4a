package export

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/entity"
	"github.com/joseph-ayodele/docufield/internal/repository"
)

func newService(t *testing.T) (*Service, repository.DocumentRepository, repository.TemplateRepository) {
	t.Helper()
	db, err := repository.OpenSQLite(context.Background(), ":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	docs := repository.NewDocumentRepository(db, nil)
	templates := repository.NewTemplateRepository(db, nil)
	return NewService(docs, templates, nil), docs, templates
}

func sampleDocument() *entity.ExtractedDocument {
	return &entity.ExtractedDocument{
		ID:           uuid.New(),
		SourcePath:   "/data/bill.pdf",
		SourceFormat: constants.PDF,
		DocumentType: constants.DocTypeUtilityBill,
		Supplier:     "Tenaga Nasional Berhad",
		Fields: []entity.ExtractedField{
			{FieldName: "TotalAmountDue", Value: "245.67", Confidence: 0.9,
				FieldType: constants.FieldTypeCurrency, Source: constants.SourceGenericRule},
			{FieldName: "DueDate", Value: "2024-01-30", Confidence: 0.85,
				FieldType: constants.FieldTypeDate, Source: constants.SourceGenericRule},
		},
		OverallConfidence: 0.875,
		Status:            constants.StatusCompleted,
	}
}

func TestExportDocumentsXLSX(t *testing.T) {
	ctx := context.Background()
	svc, docs, _ := newService(t)
	require.NoError(t, docs.Save(ctx, sampleDocument()))

	data, err := svc.ExportDocumentsXLSX(ctx, "", 0)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	header, err := f.GetCellValue("Documents", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Document Type", header)

	docType, err := f.GetCellValue("Documents", "B2")
	require.NoError(t, err)
	assert.Equal(t, "UTILITY_BILL", docType)

	supplier, err := f.GetCellValue("Documents", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Tenaga Nasional Berhad", supplier)

	fields, err := f.GetCellValue("Documents", "F2")
	require.NoError(t, err)
	assert.Contains(t, fields, "TotalAmountDue=245.67")
}

func TestApplyTemplateWritesMappedCells(t *testing.T) {
	ctx := context.Background()
	svc, _, templates := newService(t)

	tpl := &entity.Template{
		ID:        uuid.New(),
		Name:      "Monthly Expenses",
		Category:  "monthly-expenses",
		SheetName: "Expenses",
	}
	require.NoError(t, templates.Upsert(ctx, tpl))

	doc := sampleDocument()
	mappings := []entity.TemplateFieldMapping{
		{TemplateID: tpl.ID, FieldName: "TotalAmountDue", TargetLocation: "B2", LocationType: "CELL"},
		{TemplateID: tpl.ID, FieldName: "DueDate", TargetLocation: "C2", LocationType: "CELL"},
		{TemplateID: tpl.ID, FieldName: "ContactPhone", TargetLocation: "D2", LocationType: "CELL"},
	}

	data, err := svc.ApplyTemplate(ctx, doc, tpl.ID, mappings)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	total, err := f.GetCellValue("Expenses", "B2")
	require.NoError(t, err)
	assert.Equal(t, "245.67", total)

	due, err := f.GetCellValue("Expenses", "C2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-30", due)

	// unmapped field leaves its cell empty
	phone, err := f.GetCellValue("Expenses", "D2")
	require.NoError(t, err)
	assert.Empty(t, phone)
}

func TestApplyTemplateRequiredFieldMissing(t *testing.T) {
	ctx := context.Background()
	svc, _, templates := newService(t)

	tpl := &entity.Template{ID: uuid.New(), Name: "T", Category: "c", SheetName: "S"}
	require.NoError(t, templates.Upsert(ctx, tpl))

	_, err := svc.ApplyTemplate(ctx, sampleDocument(), tpl.ID, []entity.TemplateFieldMapping{
		{TemplateID: tpl.ID, FieldName: "InvoiceNumber", TargetLocation: "A1", Required: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvoiceNumber")
}

func TestApplyTemplateUnknownTemplate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	_, err := svc.ApplyTemplate(ctx, sampleDocument(), uuid.New(), nil)
	assert.Error(t, err)
}
