// Package server provides the HTTP API for document processing, corrections,
// pattern catalog management, and mapping rules.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joseph-ayodele/docufield/internal/export"
	"github.com/joseph-ayodele/docufield/internal/patterns"
	"github.com/joseph-ayodele/docufield/internal/pipeline"
	"github.com/joseph-ayodele/docufield/internal/repository"
	"github.com/joseph-ayodele/docufield/internal/rules"
)

// Server wires the processing pipeline and catalogs behind an echo instance.
type Server struct {
	echo      *echo.Echo
	processor *pipeline.Processor
	store     *patterns.Store
	learner   *patterns.Learner
	rules     *rules.Engine
	docs      repository.DocumentRepository
	templates repository.TemplateRepository
	exporter  *export.Service
	logger    *slog.Logger
	addr      string
}

type Options struct {
	Addr      string
	Processor *pipeline.Processor
	Store     *patterns.Store
	Learner   *patterns.Learner
	Rules     *rules.Engine
	Documents repository.DocumentRepository
	Templates repository.TemplateRepository
	Exporter  *export.Service
	Logger    *slog.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			opts.Logger.Info("http.request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	})

	s := &Server{
		echo:      e,
		processor: opts.Processor,
		store:     opts.Store,
		learner:   opts.Learner,
		rules:     opts.Rules,
		docs:      opts.Documents,
		templates: opts.Templates,
		exporter:  opts.Exporter,
		logger:    opts.Logger,
		addr:      opts.Addr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)

	v1 := s.echo.Group("/v1")
	v1.POST("/documents/process", s.handleProcess)
	v1.GET("/documents", s.handleListDocuments)
	v1.GET("/documents/:id", s.handleGetDocument)
	v1.POST("/documents/:id/corrections", s.handleCorrection)
	v1.POST("/documents/:id/apply-template", s.handleApplyTemplate)
	v1.GET("/documents/export", s.handleExportDocuments)

	v1.GET("/templates", s.handleListTemplates)
	v1.POST("/templates", s.handleUpsertTemplate)
	v1.GET("/templates/:id/mappings", s.handleListTemplateMappings)
	v1.PUT("/templates/:id/mappings", s.handleUpsertTemplateMapping)
	v1.DELETE("/templates/:id/mappings/:field", s.handleClearTemplateMapping)

	v1.GET("/patterns", s.handleListPatterns)
	v1.GET("/patterns/export", s.handleExportPatterns)
	v1.POST("/patterns/import", s.handleImportPatterns)

	v1.GET("/rules", s.handleListRules)
	v1.POST("/rules", s.handleUpsertRule)
	v1.DELETE("/rules/:id", s.handleDeleteRule)
	v1.POST("/rules/apply", s.handleApplyRules)
	v1.POST("/rules/from-mappings", s.handleRuleFromMappings)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server.starting", "addr", s.addr)
	return s.echo.Start(s.addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server.shutdown")
	return s.echo.Shutdown(ctx)
}
