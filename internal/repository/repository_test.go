package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/entity"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDocumentRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testDB(t), nil)

	doc := &entity.ExtractedDocument{
		ID:           uuid.New(),
		SourcePath:   "/data/bill.pdf",
		SourceFormat: constants.PDF,
		DocumentType: constants.DocTypeUtilityBill,
		Supplier:     "Tenaga Nasional Berhad",
		Fields: []entity.ExtractedField{
			{FieldName: "TotalAmountDue", Value: "245.67", Confidence: 0.9,
				FieldType: constants.FieldTypeCurrency, Source: constants.SourceGenericRule},
		},
		OverallConfidence: 0.9,
		Status:            constants.StatusCompleted,
		RawText:           "Total Amount Due: RM 245.67",
		Duration:          1200 * time.Millisecond,
	}
	require.NoError(t, repo.Save(ctx, doc))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.SourcePath, got.SourcePath)
	assert.Equal(t, doc.DocumentType, got.DocumentType)
	assert.Equal(t, doc.Status, got.Status)
	assert.Equal(t, doc.Duration, got.Duration)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "245.67", got.Fields[0].Value)
	assert.Equal(t, constants.SourceGenericRule, got.Fields[0].Source)
}

func TestDocumentRepositorySaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testDB(t), nil)

	doc := &entity.ExtractedDocument{
		ID:           uuid.New(),
		SourcePath:   "/data/bill.pdf",
		DocumentType: constants.DocTypeUnknown,
		Supplier:     constants.UnknownSupplier,
		Status:       constants.StatusProcessing,
	}
	require.NoError(t, repo.Save(ctx, doc))

	doc.Status = constants.StatusCompleted
	doc.Supplier = "Maxis"
	require.NoError(t, repo.Save(ctx, doc))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCompleted, got.Status)
	assert.Equal(t, "Maxis", got.Supplier)

	docs, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "second save must update, not duplicate")
}

func TestDocumentRepositoryGetMissing(t *testing.T) {
	repo := NewDocumentRepository(testDB(t), nil)
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDocumentRepositoryListByStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testDB(t), nil)

	for _, st := range []constants.ProcessingStatus{
		constants.StatusCompleted, constants.StatusFailed, constants.StatusCompleted,
	} {
		require.NoError(t, repo.Save(ctx, &entity.ExtractedDocument{
			ID: uuid.New(), SourcePath: "/x", DocumentType: constants.DocTypeUnknown,
			Supplier: constants.UnknownSupplier, Status: st,
		}))
	}

	completed, err := repo.List(ctx, constants.StatusCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	failed, err := repo.List(ctx, constants.StatusFailed, 10)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestDocumentRepositoryListUnlimited(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testDB(t), nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, &entity.ExtractedDocument{
			ID: uuid.New(), SourcePath: "/x", DocumentType: constants.DocTypeUnknown,
			Supplier: constants.UnknownSupplier, Status: constants.StatusCompleted,
		}))
	}

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "non-positive limit returns every document")

	capped, err := repo.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestPatternRepositoryUpsertByKey(t *testing.T) {
	ctx := context.Background()
	repo := NewPatternRepository(testDB(t), nil)

	p := &entity.LearnedPattern{
		ID:          uuid.New(),
		Supplier:    "TNB",
		FieldName:   "TotalAmountDue",
		Pattern:     `due:\s*(\d+\.\d{2})`,
		Priority:    1,
		SuccessRate: 0.5,
		IsActive:    true,
	}
	require.NoError(t, repo.Upsert(ctx, p))

	p.Priority = 4
	p.SuccessRate = 0.75
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.List(ctx, "TNB")
	require.NoError(t, err)
	require.Len(t, got, 1, "(supplier, field, pattern) is the conflict key")
	assert.Equal(t, 4, got[0].Priority)
	assert.Equal(t, 0.75, got[0].SuccessRate)

	require.NoError(t, repo.Delete(ctx, got[0].ID))
	got, err = repo.List(ctx, "TNB")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSampleRepositoryTrim(t *testing.T) {
	ctx := context.Background()
	repo := NewSampleRepository(testDB(t), nil)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Add(ctx, entity.PatternSample{
			Supplier:      "TNB",
			FieldName:     "TotalAmountDue",
			Text:          "t",
			ExpectedValue: string(rune('a' + i)),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, repo.Trim(ctx, "TNB", "TotalAmountDue", 2))

	got, err := repo.List(ctx, "TNB", "TotalAmountDue")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e", got[0].ExpectedValue, "newest kept, newest first")
	assert.Equal(t, "d", got[1].ExpectedValue)
}

func TestRuleRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(testDB(t), nil)

	rule := &entity.MappingRule{
		ID:   uuid.New(),
		Name: "tnb-monthly",
		Conditions: []entity.RuleCondition{
			{Kind: entity.CondSupplierEquals, Operand: "TNB", Weight: 2},
		},
		Projections: []entity.RuleProjection{
			{FieldName: "TotalAmountDue", TargetLocation: "B2"},
		},
		Priority:    3,
		SuccessRate: 0.8,
		IsActive:    true,
		LastUsedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Upsert(ctx, rule))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rule.Name, got[0].Name)
	require.Len(t, got[0].Conditions, 1)
	assert.Equal(t, entity.CondSupplierEquals, got[0].Conditions[0].Kind)
	require.Len(t, got[0].Projections, 1)
	assert.Equal(t, "B2", got[0].Projections[0].TargetLocation)
}

func TestTemplateRepositoryMappings(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(testDB(t), nil)

	tpl := &entity.Template{
		ID:        uuid.New(),
		Name:      "Monthly Expenses",
		Category:  "monthly-expenses",
		SheetName: "Expenses",
	}
	require.NoError(t, repo.Upsert(ctx, tpl))

	got, err := repo.GetByID(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Expenses", got.SheetName)

	m := entity.TemplateFieldMapping{
		TemplateID:     tpl.ID,
		FieldName:      "TotalAmountDue",
		TargetLocation: "B2",
		LocationType:   "CELL",
		Required:       true,
	}
	require.NoError(t, repo.UpsertFieldMapping(ctx, m))

	// remap the same field to a new cell
	m.TargetLocation = "B5"
	require.NoError(t, repo.UpsertFieldMapping(ctx, m))

	mappings, err := repo.ListFieldMappings(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "B5", mappings[0].TargetLocation)
	assert.True(t, mappings[0].Required)

	require.NoError(t, repo.ClearFieldMapping(ctx, tpl.ID, "TotalAmountDue"))
	mappings, err = repo.ListFieldMappings(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}
