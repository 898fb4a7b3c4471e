package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/AcceptableTrouble/button-buddy/config"
	"github.com/AcceptableTrouble/button-buddy/internal/metrics"
	"github.com/AcceptableTrouble/button-buddy/internal/resolver"
	"github.com/AcceptableTrouble/button-buddy/session"
)

// Deps are the components the HTTP API serves.
type Deps struct {
	Resolver *resolver.Resolver
	Hints    resolver.HintProvider
	// Sessions is optional; without it sessionId is ignored.
	Sessions    session.Store
	Metrics     *metrics.Metrics
	MetricsPath string
}

// Server is the HTTP front of the resolver.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	deps   Deps
	logger *log.Logger
}

// New wires routes and middleware. It does not start listening.
func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		echo:   echo.New(),
		cfg:    cfg,
		deps:   deps,
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = s.handleError
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, echo.WrapHandler(deps.Metrics.Handler()))
	}

	api := e.Group("/api")
	if cfg.JWTSecret != "" {
		api.Use(AuthMiddleware([]byte(cfg.JWTSecret)))
	}
	h := &handlers{deps: deps, maxCandidates: cfg.MaxCandidates, logger: s.logger}
	h.Register(api)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run listens on cfg.Address until ctx is done, then drains within ShutdownGrace.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.cfg.Address)
		if err := s.echo.Start(s.cfg.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownGrace)
	defer cancel()
	s.logger.Printf("shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
	if c.Response().Committed {
		return
	}
	if req.Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, HTTPError{Error: msg})
}
