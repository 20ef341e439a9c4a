package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/entity"
)

// ApplyTemplateRequest is the request body for POST /v1/documents/:id/apply-template.
type ApplyTemplateRequest struct {
	TemplateID uuid.UUID `json:"template_id"`
}

func (s *Server) handleListTemplates(c echo.Context) error {
	ts, err := s.templates.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ts)
}

func (s *Server) handleUpsertTemplate(c echo.Context) error {
	var tpl entity.Template
	if err := c.Bind(&tpl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if tpl.Name == "" || tpl.SheetName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and sheet_name are required")
	}
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	if err := s.templates.Upsert(c.Request().Context(), &tpl); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tpl)
}

func (s *Server) handleListTemplateMappings(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid template id")
	}
	mappings, err := s.templates.ListFieldMappings(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, mappings)
}

func (s *Server) handleUpsertTemplateMapping(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid template id")
	}
	var m entity.TemplateFieldMapping
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if m.FieldName == "" || m.TargetLocation == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "field_name and target_location are required")
	}
	m.TemplateID = id
	if m.LocationType == "" {
		m.LocationType = "CELL"
	}
	if err := s.templates.UpsertFieldMapping(c.Request().Context(), m); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleClearTemplateMapping(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid template id")
	}
	field := c.Param("field")
	if field == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "field name is required")
	}
	if err := s.templates.ClearFieldMapping(c.Request().Context(), id, field); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// handleApplyTemplate fills a template workbook with one document's extracted
// fields, using the template's stored field mappings.
func (s *Server) handleApplyTemplate(c echo.Context) error {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	var req ApplyTemplateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TemplateID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "template_id is required")
	}

	ctx := c.Request().Context()
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	mappings, err := s.templates.ListFieldMappings(ctx, req.TemplateID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(mappings) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "template has no field mappings")
	}

	data, err := s.exporter.ApplyTemplate(ctx, doc, req.TemplateID, mappings)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="template.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
