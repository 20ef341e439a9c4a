package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/pipeline"
)

// ProcessRequest is the request body for POST /v1/documents/process.
type ProcessRequest struct {
	Path  string   `json:"path,omitempty"`
	Paths []string `json:"paths,omitempty"`
}

// CorrectionRequest is the request body for POST /v1/documents/:id/corrections.
type CorrectionRequest struct {
	FieldName    string `json:"field_name"`
	CorrectValue string `json:"correct_value"`
}

// handleProcess runs one or more documents through the pipeline. A single
// failed document still yields 200 with its Failed result; only bad requests
// error at the HTTP level.
func (s *Server) handleProcess(c echo.Context) error {
	var req ProcessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	paths := req.Paths
	if req.Path != "" {
		paths = append(paths, req.Path)
	}
	if len(paths) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "path or paths is required")
	}
	docs := s.processor.ProcessBatch(c.Request().Context(), paths)
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	status := constants.ProcessingStatus(c.QueryParam("status"))
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	docs, err := s.docs.List(c.Request().Context(), status, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	doc, err := s.docs.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

// handleCorrection applies a user correction to a stored document and feeds
// it to the learner. The learning result rides along in the response so the
// caller can surface review flags.
func (s *Server) handleCorrection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	var req CorrectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FieldName == "" || req.CorrectValue == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "field_name and correct_value are required")
	}

	ctx := c.Request().Context()
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	field := doc.Field(req.FieldName)
	if field == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "document has no field "+req.FieldName)
	}
	originalValue := field.Value
	if !doc.ApplyCorrection(req.FieldName, req.CorrectValue) {
		return echo.NewHTTPError(http.StatusBadRequest, "correction not applied")
	}
	if err := s.docs.Save(ctx, doc); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	learning, err := s.learner.LearnFromCorrection(ctx, doc.Supplier, req.FieldName, doc.RawText, originalValue, req.CorrectValue)
	if err != nil {
		s.logger.Warn("server.correction.learn_failed", "document_id", id, "field", req.FieldName, "error", err)
	}
	if learning.Pattern != nil {
		kind := pipeline.EventPatternLearned
		if learning.Reinforced {
			kind = pipeline.EventPatternImproved
		}
		s.processor.Notifier().Publish(pipeline.Event{
			Kind:       kind,
			DocumentID: doc.ID,
			Message:    doc.Supplier + "/" + req.FieldName,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"document": doc,
		"learning": learning,
	})
}

func (s *Server) handleExportDocuments(c echo.Context) error {
	status := constants.ProcessingStatus(c.QueryParam("status"))
	data, err := s.exporter.ExportDocumentsXLSX(c.Request().Context(), status, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="documents.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// readBody caps request bodies for the JSON import endpoints.
func readBody(c echo.Context, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request().Body, limit))
}
