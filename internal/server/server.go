// Package server exposes trace reconstruction over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ArthurBrioche/Agent-tracing/internal/audit"
	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// HeaderReconstructionID carries the id assigned to each request.
const HeaderReconstructionID = "X-Reconstruction-ID"

// Options configures the server
type Options struct {
	BodyLimit string // echo size syntax, e.g. "32M"; empty means no limit
	Version   string
	Logger    zerolog.Logger
	Engine    []tracetree.Option
}

// Server is the HTTP API
type Server struct {
	echo   *echo.Echo
	opts   Options
	logger zerolog.Logger
}

// New creates the server and registers its routes
func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, opts: opts, logger: opts.Logger}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: HeaderReconstructionID,
	}))
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	s.RegisterRoutes(e)
	return s
}

// RegisterRoutes registers the API routes
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.Health)
	e.POST("/v1/reconstruct", s.Reconstruct)
	e.POST("/v1/reconstruct/mermaid", s.Mermaid)
}

// Handler returns the server as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("HTTP API listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.logger.Info()
			if v.Error != nil {
				ev = s.logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("reconstruction_id", c.Response().Header().Get(HeaderReconstructionID)).
				Msg("request")
			return nil
		},
	})
}

// Health reports liveness.
// GET /health
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.opts.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Reconstruct rebuilds the span forest of a JSONL body.
// POST /v1/reconstruct
func (s *Server) Reconstruct(c echo.Context) error {
	res, err := s.reconstruct(c)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Mermaid renders the span forest of a JSONL body as a Mermaid flowchart.
// POST /v1/reconstruct/mermaid
func (s *Server) Mermaid(c echo.Context) error {
	res, err := s.reconstruct(c)
	if err != nil {
		return s.fail(c, err)
	}
	return c.String(http.StatusOK, audit.GenerateMermaid(res))
}

func (s *Server) reconstruct(c echo.Context) (*tracetree.Result, error) {
	id := c.Response().Header().Get(HeaderReconstructionID)
	logger := s.logger.With().Str("reconstruction_id", id).Logger()

	opts := append([]tracetree.Option{}, s.opts.Engine...)
	opts = append(opts, tracetree.WithLogger(logger))

	res, err := tracetree.ReconstructReader(c.Request().Body, opts...)
	if err != nil {
		return nil, err
	}
	d := res.Diagnostics
	logger.Debug().
		Int("records", d.Records).
		Int("skipped", len(d.SkippedLines)).
		Int("spans", res.SpanCount()).
		Int("heuristic_matches", d.HeuristicMatches).
		Msg("reconstructed")
	return res, nil
}

func (s *Server) fail(c echo.Context, err error) error {
	if errors.Is(err, tracetree.ErrNoValidRecords) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": tracetree.ErrNoValidRecords.Error()})
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	s.logger.Error().Err(err).Msg("failed to read request body")
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
}
