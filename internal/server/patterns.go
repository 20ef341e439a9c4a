package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/docufield/internal/entity"
)

const maxImportBody = 4 << 20 // 4 MiB

func (s *Server) handleListPatterns(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.All(c.QueryParam("supplier")))
}

func (s *Server) handleExportPatterns(c echo.Context) error {
	data, err := s.store.Export(c.QueryParam("supplier"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="patterns.json"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// handleImportPatterns merges an exported catalog; strategy comes from the
// "strategy" query parameter, defaulting to SKIP_EXISTING.
func (s *Server) handleImportPatterns(c echo.Context) error {
	strategy := entity.MergeStrategy(c.QueryParam("strategy"))
	if strategy == "" {
		strategy = entity.MergeSkipExisting
	}
	data, err := readBody(c, maxImportBody)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body: "+err.Error())
	}
	summary, err := s.store.Import(c.Request().Context(), data, strategy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}
