package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/classifier"
	"github.com/joseph-ayodele/docufield/internal/entity"
	"github.com/joseph-ayodele/docufield/internal/export"
	"github.com/joseph-ayodele/docufield/internal/extraction"
	"github.com/joseph-ayodele/docufield/internal/patterns"
	"github.com/joseph-ayodele/docufield/internal/pipeline"
	"github.com/joseph-ayodele/docufield/internal/repository"
	"github.com/joseph-ayodele/docufield/internal/rules"
	"github.com/joseph-ayodele/docufield/internal/textextract"
	"github.com/joseph-ayodele/docufield/internal/validation"
)

// setupTestServer wires a full stack on in-memory SQLite with the real text
// extractor (txt files never shell out).
func setupTestServer(t *testing.T) (*Server, repository.DocumentRepository) {
	t.Helper()
	ctx := context.Background()

	db, err := repository.OpenSQLite(ctx, ":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	docsRepo := repository.NewDocumentRepository(db, nil)
	patternsRepo := repository.NewPatternRepository(db, nil)
	samplesRepo := repository.NewSampleRepository(db, nil)
	rulesRepo := repository.NewRuleRepository(db, nil)
	templatesRepo := repository.NewTemplateRepository(db, nil)

	store := patterns.NewStore(patternsRepo, nil)
	require.NoError(t, store.Load(ctx))
	corpus := patterns.NewSampleCorpus(0, samplesRepo, nil)
	learner := patterns.NewLearner(store, corpus, nil)

	ruleEngine := rules.NewEngine(rulesRepo, 0, nil)
	require.NoError(t, ruleEngine.Load(ctx))

	processor := pipeline.NewProcessor(pipeline.Options{
		Extractor:        textextract.NewExtractor(textextract.Config{}, nil),
		Classifier:       classifier.New(0, nil),
		Engine:           extraction.NewEngine(store, nil),
		Validator:        validation.NewEngine(nil),
		Documents:        docsRepo,
		ReviewConfidence: 0.40,
	})

	srv := New(Options{
		Addr:      ":0",
		Processor: processor,
		Store:     store,
		Learner:   learner,
		Rules:     ruleEngine,
		Documents: docsRepo,
		Templates: templatesRepo,
		Exporter:  export.NewService(docsRepo, templatesRepo, nil),
	})
	return srv, docsRepo
}

func writeBill(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bill.txt")
	text := "TENAGA NASIONAL BERHAD\nAccount No: 1234567890123\nBill Date: 15/01/2024\nUsage: 350 kWh\nTariff: A1\nTotal Amount Due: RM 245.67\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _ := setupTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestProcessAndFetchDocument(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := writeBill(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/documents/process", ProcessRequest{Path: path})
	require.Equal(t, http.StatusOK, rec.Code)

	var docs []entity.ExtractedDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, constants.StatusCompleted, docs[0].Status)
	assert.Equal(t, "Tenaga Nasional Berhad", docs[0].Supplier)

	rec = doJSON(t, srv, http.MethodGet, "/v1/documents/"+docs[0].ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got entity.ExtractedDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, docs[0].ID, got.ID)
	assert.NotEmpty(t, got.Fields)
}

func TestProcessRequiresPath(t *testing.T) {
	srv, _ := setupTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/documents/process", ProcessRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocumentNotFound(t *testing.T) {
	srv, _ := setupTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/documents/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCorrectionLearnsPattern(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := writeBill(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/documents/process", ProcessRequest{Path: path})
	require.Equal(t, http.StatusOK, rec.Code)
	var docs []entity.ExtractedDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)

	rec = doJSON(t, srv, http.MethodPost, "/v1/documents/"+docs[0].ID.String()+"/corrections",
		CorrectionRequest{FieldName: "TotalAmountDue", CorrectValue: "245.67"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Document entity.ExtractedDocument     `json:"document"`
		Learning entity.PatternLearningResult `json:"learning"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Document.Field("TotalAmountDue").IsVerified)
	require.NotNil(t, resp.Learning.Pattern)

	// learned pattern shows up in the catalog
	rec = doJSON(t, srv, http.MethodGet, "/v1/patterns?supplier=Tenaga+Nasional+Berhad", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ps []entity.LearnedPattern
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ps))
	assert.NotEmpty(t, ps)
}

func TestCorrectionUnknownField(t *testing.T) {
	srv, docsRepo := setupTestServer(t)
	doc := &entity.ExtractedDocument{
		ID: uuid.New(), SourcePath: "/x", DocumentType: constants.DocTypeUnknown,
		Supplier: constants.UnknownSupplier, Status: constants.StatusCompleted,
	}
	require.NoError(t, docsRepo.Save(context.Background(), doc))

	rec := doJSON(t, srv, http.MethodPost, "/v1/documents/"+doc.ID.String()+"/corrections",
		CorrectionRequest{FieldName: "Nope", CorrectValue: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatternExportImportEndpoints(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := writeBill(t)
	doJSON(t, srv, http.MethodPost, "/v1/documents/process", ProcessRequest{Path: path})

	rec := doJSON(t, srv, http.MethodGet, "/v1/patterns/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/v1/patterns/import?strategy=SKIP_EXISTING", bytes.NewReader(exported))
	imp := httptest.NewRecorder()
	srv.echo.ServeHTTP(imp, req)
	require.Equal(t, http.StatusOK, imp.Code)

	var summary patterns.ImportSummary
	require.NoError(t, json.Unmarshal(imp.Body.Bytes(), &summary))
	assert.Zero(t, summary.Imported, "re-import of own catalog skips everything")
}

func TestRuleEndpoints(t *testing.T) {
	srv, _ := setupTestServer(t)

	rule := entity.MappingRule{
		Name: "tnb-monthly",
		Conditions: []entity.RuleCondition{
			{Kind: entity.CondSupplierEquals, Operand: "Tenaga Nasional Berhad", Weight: 1},
		},
		Projections: []entity.RuleProjection{
			{FieldName: "TotalAmountDue", TargetLocation: "B2"},
		},
		Priority: 1,
		IsActive: true,
	}
	rec := doJSON(t, srv, http.MethodPost, "/v1/rules", rule)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored entity.MappingRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	require.NotEqual(t, uuid.Nil, stored.ID)

	apply := ApplyRulesRequest{
		Document: entity.DocumentPattern{
			Supplier:        "Tenaga Nasional Berhad",
			DocumentType:    constants.DocTypeUtilityBill,
			AvailableFields: []string{"TotalAmountDue"},
			FieldValues:     map[string]string{"TotalAmountDue": "245.67"},
		},
		TemplateID: uuid.New(),
	}
	rec = doJSON(t, srv, http.MethodPost, "/v1/rules/apply", apply)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ApplyRulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Rule)
	require.Len(t, resp.Mappings, 1)
	assert.Equal(t, "B2", resp.Mappings[0].TargetLocation)

	rec = doJSON(t, srv, http.MethodDelete, "/v1/rules/"+stored.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/rules", nil)
	var remaining []entity.MappingRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &remaining))
	assert.Empty(t, remaining)
}

func TestTemplateEndpoints(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := writeBill(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/documents/process", ProcessRequest{Path: path})
	require.Equal(t, http.StatusOK, rec.Code)
	var docs []entity.ExtractedDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)

	rec = doJSON(t, srv, http.MethodPost, "/v1/templates", entity.Template{
		Name: "Monthly Expenses", Category: "monthly-expenses", SheetName: "Expenses",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var tpl entity.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tpl))
	require.NotEqual(t, uuid.Nil, tpl.ID)

	base := "/v1/templates/" + tpl.ID.String() + "/mappings"
	rec = doJSON(t, srv, http.MethodPut, base, entity.TemplateFieldMapping{
		FieldName: "TotalAmountDue", TargetLocation: "B2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodPut, base, entity.TemplateFieldMapping{
		FieldName: "DueDate", TargetLocation: "C2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mappings []entity.TemplateFieldMapping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mappings))
	assert.Len(t, mappings, 2)

	rec = doJSON(t, srv, http.MethodPost, "/v1/documents/"+docs[0].ID.String()+"/apply-template",
		ApplyTemplateRequest{TemplateID: tpl.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	total, err := f.GetCellValue("Expenses", "B2")
	require.NoError(t, err)
	assert.Equal(t, "245.67", total)

	rec = doJSON(t, srv, http.MethodDelete, base+"/DueDate", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, srv, http.MethodGet, base, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mappings))
	assert.Len(t, mappings, 1)
}

func TestApplyTemplateWithoutMappings(t *testing.T) {
	srv, docsRepo := setupTestServer(t)
	doc := &entity.ExtractedDocument{
		ID: uuid.New(), SourcePath: "/x", DocumentType: constants.DocTypeUnknown,
		Supplier: constants.UnknownSupplier, Status: constants.StatusCompleted,
	}
	require.NoError(t, docsRepo.Save(context.Background(), doc))

	rec := doJSON(t, srv, http.MethodPost, "/v1/documents/"+doc.ID.String()+"/apply-template",
		ApplyTemplateRequest{TemplateID: uuid.New()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuleFromMappingsEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	doc := entity.DocumentPattern{
		Supplier:        "Tenaga Nasional Berhad",
		DocumentType:    constants.DocTypeUtilityBill,
		AvailableFields: []string{"TotalAmountDue", "DueDate"},
		FieldValues:     map[string]string{"TotalAmountDue": "245.67", "DueDate": "2024-01-30"},
	}
	req := RuleFromMappingsRequest{
		Name:     "tnb-from-session",
		Document: doc,
		Mappings: []entity.TemplateFieldMapping{
			{FieldName: "TotalAmountDue", TargetLocation: "B2"},
			{FieldName: "DueDate", TargetLocation: "C2"},
		},
	}
	rec := doJSON(t, srv, http.MethodPost, "/v1/rules/from-mappings", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var rule entity.MappingRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rule))
	require.NotEqual(t, uuid.Nil, rule.ID)
	assert.True(t, rule.IsActive)
	assert.Len(t, rule.Projections, 2)

	// the synthesized rule matches the session it came from
	events, cancelSub := srv.processor.Notifier().Subscribe(8)
	defer cancelSub()

	apply := ApplyRulesRequest{Document: doc, TemplateID: uuid.New()}
	rec = doJSON(t, srv, http.MethodPost, "/v1/rules/apply", apply)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ApplyRulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Rule)
	assert.Equal(t, rule.ID, resp.Rule.ID)
	assert.Len(t, resp.Mappings, 2)

	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, pipeline.EventRuleApplied, ev.Kind)
	assert.Equal(t, "tnb-from-session", ev.Message)
}
