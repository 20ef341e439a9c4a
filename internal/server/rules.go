package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/docufield/internal/entity"
	"github.com/joseph-ayodele/docufield/internal/pipeline"
)

// ApplyRulesRequest is the request body for POST /v1/rules/apply.
type ApplyRulesRequest struct {
	Document   entity.DocumentPattern `json:"document"`
	TemplateID uuid.UUID              `json:"template_id"`
}

// ApplyRulesResponse reports the chosen rule and resulting mappings, both
// empty when nothing matched.
type ApplyRulesResponse struct {
	Rule     *entity.MappingRule           `json:"rule,omitempty"`
	Mappings []entity.TemplateFieldMapping `json:"mappings,omitempty"`
}

func (s *Server) handleListRules(c echo.Context) error {
	return c.JSON(http.StatusOK, s.rules.All())
}

func (s *Server) handleUpsertRule(c echo.Context) error {
	var rule entity.MappingRule
	if err := c.Bind(&rule); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if rule.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if len(rule.Projections) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one projection is required")
	}
	stored := s.rules.Upsert(c.Request().Context(), rule)
	return c.JSON(http.StatusOK, stored)
}

func (s *Server) handleDeleteRule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule id")
	}
	s.rules.Delete(c.Request().Context(), id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleApplyRules(c echo.Context) error {
	var req ApplyRulesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	mappings, rule := s.rules.ApplyMappingRules(c.Request().Context(), req.Document, req.TemplateID)
	if rule != nil {
		s.processor.Notifier().Publish(pipeline.Event{
			Kind:    pipeline.EventRuleApplied,
			Message: rule.Name,
		})
	}
	return c.JSON(http.StatusOK, ApplyRulesResponse{Rule: rule, Mappings: mappings})
}

// RuleFromMappingsRequest is the request body for POST /v1/rules/from-mappings:
// a manual mapping session to turn into a reusable rule.
type RuleFromMappingsRequest struct {
	Name     string                        `json:"name"`
	Document entity.DocumentPattern        `json:"document"`
	Mappings []entity.TemplateFieldMapping `json:"mappings"`
}

func (s *Server) handleRuleFromMappings(c echo.Context) error {
	var req RuleFromMappingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if len(req.Mappings) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one mapping is required")
	}
	rule := s.rules.CreateRuleFromMappings(c.Request().Context(), req.Name, req.Document, req.Mappings)
	return c.JSON(http.StatusOK, rule)
}
