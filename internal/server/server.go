package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/limaJavier/seating/pkg/milp"
	"github.com/limaJavier/seating/pkg/model"
	"github.com/rs/zerolog"
)

type Options struct {
	Solver      milp.Solver
	Formulation model.Formulation
	// Limits applied when a request does not set its own
	Limits       milp.Limits
	MaxTimeLimit time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       zerolog.Logger
}

// Server exposes the planning pipeline over HTTP
type Server struct {
	echo   *echo.Echo
	logger zerolog.Logger
}

func New(options Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = options.ReadTimeout
	e.Server.WriteTimeout = options.WriteTimeout
	e.Use(middleware.Recover())
	e.Use(requestLogger(options.Logger))

	handler := &planHandler{
		planner:      model.NewPlanner(options.Solver, options.Formulation, options.Logger),
		limits:       options.Limits,
		maxTimeLimit: options.MaxTimeLimit,
		logger:       options.Logger,
	}
	registerRoutes(e, handler)

	return &Server{echo: e, logger: options.Logger}
}

func registerRoutes(e *echo.Echo, handler *planHandler) {
	e.GET("/healthz", health)

	v1 := e.Group("/v1")
	v1.POST("/plans", handler.createPlan)
}

// ServeHTTP makes the server usable as a plain http.Handler
func (server *Server) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	server.echo.ServeHTTP(writer, request)
}

// Start serves until ctx is cancelled and then shuts down gracefully, letting in-flight plans finish their solve
func (server *Server) Start(ctx context.Context, address string) error {
	errs := make(chan error, 1)
	go func() {
		server.logger.Info().Str("address", address).Msg("listening")
		errs <- server.echo.Start(address)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", values.Method).
				Str("uri", values.URI).
				Int("status", values.Status).
				Dur("latency", values.Latency).
				Msg("request")
			return nil
		},
	})
}
