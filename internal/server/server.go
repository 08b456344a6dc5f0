// Package server exposes report generation over HTTP: the upload form, the
// generate endpoint, form options, health and metrics.
package server

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"go.lorenzomilicia.dev/report-collage/internal/config"
	"go.lorenzomilicia.dev/report-collage/internal/report"
)

// Generator produces one report per call.
type Generator interface {
	Generate(ctx context.Context, req report.Request) (*report.Result, error)
}

type Server struct {
	cfg     config.Config
	service Generator
	tmpl    *template.Template
	gin     *gin.Engine
	metrics *metrics
	tracer  trace.Tracer
}

// New builds the gin engine. templates must contain templates/index.html.
func New(cfg config.Config, service Generator, templates fs.FS) (*Server, error) {
	tmpl, err := template.New("templates").ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// Use zerolog console writer for gin logs
	console := zerolog.ConsoleWriter{Out: os.Stderr}
	r.Use(gin.LoggerWithWriter(console, "/healthz", "/metrics"))
	r.Use(gin.Recovery())

	srv := &Server{
		cfg:     cfg,
		service: service,
		tmpl:    tmpl,
		gin:     r,
		metrics: newMetrics(),
		tracer:  otel.Tracer("report-collage/server"),
	}
	r.Use(srv.withTracing(), srv.metrics.withHTTPMetrics())

	srv.setupRoutes()
	return srv, nil
}

func (s *Server) setupRoutes() {
	s.gin.GET("/", s.handleIndex)
	s.gin.POST("/generate", s.handleGenerate)
	s.gin.GET("/api/options", s.handleOptions)
	s.gin.GET("/healthz", s.handleHealth)
	s.gin.GET("/metrics", gin.WrapH(s.metrics.handler()))
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("address", s.cfg.Server.Addr).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) withTracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := s.tracer.Start(c.Request.Context(), c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", c.Request.URL.Path),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}
