// Package server exposes the HTTP surface: schedule mutation, manual chain
// runs, the event push stream, and the read-only portfolio dump.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockpilot/internal/chain"
	"stockpilot/internal/hub"
	"stockpilot/internal/logger"
	"stockpilot/internal/schedule"
	"stockpilot/internal/stocks"
)

// Config holds server settings.
type Config struct {
	Listen string
}

// Deps carries the components the handlers operate on.
type Deps struct {
	Orchestrator  *chain.Orchestrator
	Trigger       *schedule.Trigger
	ScheduleStore *schedule.Store
	StockStore    *stocks.Store
	Hub           *hub.Hub
	Logger        *logger.Logger
}

// Server is the HTTP front end.
type Server struct {
	echo    *echo.Echo
	config  Config
	deps    Deps
	logger  *logger.Logger
	baseCtx context.Context
}

// New creates the server and registers all routes.
func New(cfg Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		config:  cfg,
		deps:    deps,
		logger:  deps.Logger,
		baseCtx: context.Background(),
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger)
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/schedule", s.updateSchedule)
	e.GET("/schedule-status", s.scheduleStatus)
	e.POST("/run-chain", s.runChain)
	e.GET("/events", s.streamEvents)
	e.GET("/stocks", s.listStocks)

	return s
}

// Start begins serving. ctx becomes the base context for background chain
// runs started over HTTP.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	s.logger.Info("http server starting",
		logger.Field{Key: "listen", Value: s.config.Listen})
	if err := s.echo.Start(s.config.Listen); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		s.logger.InfoCtx(req.Context(), "http request",
			logger.Field{Key: "method", Value: req.Method},
			logger.Field{Key: "path", Value: req.URL.Path},
			logger.Field{Key: "status", Value: c.Response().Status},
			logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
			logger.Field{Key: "remote", Value: c.RealIP()})
		return nil
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if he.Message != nil {
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}
