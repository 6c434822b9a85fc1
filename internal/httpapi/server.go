// Package httpapi exposes on-demand triggers and run history over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/usecase"
	stdlog "NewsRelay/pkg/logger"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
	shutdownTimeout  = 10 * time.Second
)

// Trigger starts one gated invocation.
type Trigger interface {
	Trigger(ctx context.Context, opts usecase.InvokeOptions) (domain.RunResult, error)
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the handlers.
type Deps struct {
	Runs    Trigger
	Logs    ports.RunLogRepository
	Health  Pinger
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the echo instance plus its listen address.
type Server struct {
	echo   *echo.Echo
	addr   string
	deps   Deps
	logger *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	RunID string `json:"runId,omitempty"`
}

// NewServer registers routes on a fresh echo instance.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.StdLogger = stdlog.New(logger, "http", slog.LevelWarn)

	s := &Server{echo: e, addr: addr, deps: deps, logger: logger}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogError:   true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency_ms", v.Latency.Milliseconds()}
			if v.Error != nil {
				logger.Warn("request failed", append(attrs, "error", v.Error.Error())...)
				return nil
			}
			logger.Debug("request completed", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/healthz", s.health)
	v1 := e.Group("/api/v1")
	v1.POST("/run", s.run)
	v1.GET("/runs", s.runs)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) run(c echo.Context) error {
	force, err := boolParam(c, "force")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "force must be a boolean")
	}
	dryRun, err := boolParam(c, "dryRun")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "dryRun must be a boolean")
	}

	result, err := s.deps.Runs.Trigger(c.Request().Context(), usecase.InvokeOptions{Force: force, DryRun: dryRun})
	if err != nil {
		s.logger.Error("triggered run failed", "run_id", result.RunID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error(), RunID: result.RunID})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) runs(c echo.Context) error {
	limit := defaultRunsLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxRunsLimit)
	}

	logs, err := s.deps.Logs.RecentRunLogs(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	if logs == nil {
		logs = []domain.RunLog{}
	}
	return c.JSON(http.StatusOK, logs)
}

func (s *Server) health(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func boolParam(c echo.Context, name string) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
