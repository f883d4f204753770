// Package server exposes the assessment service over HTTP: blocking and
// streaming assessment, validation, report lookup and the operational
// endpoints.
package server

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"credit-assessment/internal/common/config"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
	"credit-assessment/internal/service"
)

// Service is the part of the assessment service the transport needs.
type Service interface {
	Assess(ctx context.Context, req models.AssessmentRequest) (*models.AssessmentResponse, error)
	AssessStreaming(ctx context.Context, req models.AssessmentRequest) iter.Seq[models.ProgressEvent]
	Validate(app *models.LoanApplication) models.ValidationResult
	Report(ctx context.Context, reportID string) (*models.CreditAssessmentReport, error)
	Config() service.ConfigView
}

var _ Service = (*service.Service)(nil)

// Check reports whether a dependency is usable; /ready runs all of them.
type Check func(ctx context.Context) error

type Options struct {
	ReadyChecks  map[string]Check
	CheckTimeout time.Duration
	Clock        func() time.Time
}

type Server struct {
	router  chi.Router
	http    *http.Server
	svc     Service
	checks  map[string]Check
	timeout time.Duration
	clock   func() time.Time
	started time.Time
	logger  logger.Logger
}

func New(cfg config.ServerConfig, svc Service, opts Options, log logger.Logger) *Server {
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 2 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Server{
		svc:     svc,
		checks:  opts.ReadyChecks,
		timeout: opts.CheckTimeout,
		clock:   opts.Clock,
		started: opts.Clock(),
		logger:  log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.router = s.routes(cfg.CORSOrigins)
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}
	return s
}

func (s *Server) routes(origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(s.logger))
	r.Use(corsMiddleware(origins))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "credit-assessment",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}))
	})

	r.Get("/", s.handleInfo)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assess", s.handleAssess)
		r.Post("/assess/stream", s.handleAssessStream)
		r.Post("/validate", s.handleValidate)
		r.Get("/config", s.handleConfig)
		r.Get("/reports/{reportID}", s.handleReport)
	})
	return r
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down", nil)
	return s.http.Shutdown(ctx)
}
