// Package service is the assessment facade used by every transport: it
// validates applications, assigns correlation identifiers, drives the
// pipeline and converts every outcome into a response envelope.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/metrics"
	"credit-assessment/internal/common/observability"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
	"credit-assessment/internal/pipeline"
)

const (
	DefaultMinCreditScore = 300
	DefaultMaxCreditScore = 850
	DefaultHighDTIWarning = 0.60
	DefaultSinkTimeout    = 10 * time.Second

	modeBlocking  = "blocking"
	modeStreaming = "streaming"

	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeInvalid = "invalid"
)

// Sink receives every successfully synthesized report. Failures are logged
// and counted; they never change the response.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, report *models.CreditAssessmentReport) error
}

// ReportReader looks reports up by id.
type ReportReader interface {
	Get(ctx context.Context, reportID string) (*models.CreditAssessmentReport, error)
}

type Options struct {
	MinCreditScore   int
	MaxCreditScore   int
	HighDTIWarning   float64
	TracingEnabled   bool
	TraceURLTemplate string // receives the correlation id through %s
	Sinks            []Sink
	SinkTimeout      time.Duration
	Reports          ReportReader
	View             ConfigView
	Observability    *observability.Observability
	Clock            func() time.Time
	NewID            func() string
}

type Service struct {
	orch     *pipeline.Orchestrator
	rules    validationRules
	traceURL string
	sinks    []Sink
	sinkWait time.Duration
	reports  ReportReader
	view     ConfigView
	obs      *observability.Observability
	clock    func() time.Time
	newID    func() string
	logger   logger.Logger
}

func New(orch *pipeline.Orchestrator, opts Options, log logger.Logger) *Service {
	s := &Service{
		orch: orch,
		rules: validationRules{
			minCreditScore: opts.MinCreditScore,
			maxCreditScore: opts.MaxCreditScore,
			highDTIWarning: opts.HighDTIWarning,
		},
		sinks:    opts.Sinks,
		sinkWait: opts.SinkTimeout,
		reports:  opts.Reports,
		view:     opts.View,
		obs:      opts.Observability,
		clock:    opts.Clock,
		newID:    opts.NewID,
		logger:   log.WithFields(map[string]interface{}{"component": "service"}),
	}
	if opts.TracingEnabled {
		s.traceURL = opts.TraceURLTemplate
	}
	if s.rules.minCreditScore == 0 {
		s.rules.minCreditScore = DefaultMinCreditScore
	}
	if s.rules.maxCreditScore == 0 {
		s.rules.maxCreditScore = DefaultMaxCreditScore
	}
	if s.rules.highDTIWarning == 0 {
		s.rules.highDTIWarning = DefaultHighDTIWarning
	}
	if s.sinkWait <= 0 {
		s.sinkWait = DefaultSinkTimeout
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Assess runs one blocking assessment. The only error it returns is a
// *ValidationError, raised before any stage runs; every other outcome is
// reported through the envelope.
func (s *Service) Assess(ctx context.Context, req models.AssessmentRequest) (*models.AssessmentResponse, error) {
	start := s.clock()
	correlationID := s.correlationID(start)
	log := s.logger.WithFields(map[string]interface{}{"correlationId": correlationID})

	app := req.Application
	if validation := s.Validate(&app); !validation.Valid {
		metrics.AssessmentsTotal.WithLabelValues(outcomeInvalid).Inc()
		log.Warn("application rejected", map[string]interface{}{"issues": validation.Issues})
		return nil, newValidationError(validation)
	}
	if app.ApplicationID == "" {
		app.ApplicationID = s.newID()
	}

	ctx, span := observability.Tracer().Start(ctx, "service.assess")
	defer span.End()
	span.SetAttributes(
		attribute.String("correlation.id", correlationID),
		attribute.String("application.id", app.ApplicationID),
	)

	metrics.AssessmentsInFlight.WithLabelValues(modeBlocking).Inc()
	defer metrics.AssessmentsInFlight.WithLabelValues(modeBlocking).Dec()

	log.Info("assessment started", map[string]interface{}{
		"applicationId": app.ApplicationID,
		"fastMode":      req.FastMode,
	})

	report, st, err := s.run(ctx, pipeline.Request{
		Application:    &app,
		CorrelationID:  correlationID,
		FastMode:       req.FastMode,
		DetailedReport: req.DetailedReport(),
	})
	elapsed := s.clock().Sub(start)
	resp := s.envelope(correlationID, elapsed)

	if err != nil {
		s.fillFailure(resp, st, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, resp.ErrorCode)
		s.record(ctx, modeBlocking, outcomeFailed, elapsed)
		log.Error("assessment failed", map[string]interface{}{
			"applicationId": app.ApplicationID,
			"errorCode":     resp.ErrorCode,
			"failedStage":   resp.FailedStage,
			"error":         *resp.Error,
			"durationMs":    elapsed.Milliseconds(),
		})
		return resp, nil
	}

	resp.Success = true
	resp.Report = report
	s.deliver(ctx, report)
	s.record(ctx, modeBlocking, outcomeSuccess, elapsed)
	log.Info("assessment completed", map[string]interface{}{
		"applicationId": app.ApplicationID,
		"reportId":      report.ReportID,
		"decision":      report.CreditDecision.Decision,
		"durationMs":    elapsed.Milliseconds(),
	})
	return resp, nil
}

// Report returns a previously stored report.
func (s *Service) Report(ctx context.Context, reportID string) (*models.CreditAssessmentReport, error) {
	if s.reports == nil || strings.TrimSpace(reportID) == "" {
		return nil, stderrors.NewReportNotFoundError(reportID)
	}
	return s.reports.Get(ctx, reportID)
}

// Config returns the non-secret view of the running configuration.
func (s *Service) Config() ConfigView {
	return s.view
}

// run converts orchestrator panics into a SystemFailure so no fault escapes
// the service boundary.
func (s *Service) run(ctx context.Context, req pipeline.Request) (report *models.CreditAssessmentReport, st *pipeline.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			stage := pipeline.StageStarted
			if st != nil {
				stage = st.Stage
			}
			err = &pipeline.SystemFailure{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.orch.Run(ctx, req)
}

func (s *Service) envelope(correlationID string, elapsed time.Duration) *models.AssessmentResponse {
	resp := &models.AssessmentResponse{
		ProcessingTimeSeconds: finance.RoundTo(elapsed.Seconds(), 3),
		CorrelationReference:  &correlationID,
	}
	if s.traceURL != "" {
		resp.TraceURL = fmt.Sprintf(s.traceURL, correlationID)
	}
	return resp
}

func (s *Service) fillFailure(resp *models.AssessmentResponse, st *pipeline.State, err error) {
	msg := err.Error()
	resp.Success = false
	resp.Report = nil
	resp.Error = &msg
	resp.ErrorCode, resp.FailedStage = classify(st, err)
}

// classify maps a run error onto an error code and the stage it halted in.
func classify(st *pipeline.State, err error) (string, string) {
	var stageErr *pipeline.StageFailure
	var sysErr *pipeline.SystemFailure
	failed := ""
	if st != nil {
		failed = st.FailedStage()
	}
	switch {
	case errors.As(err, &stageErr):
		return string(stderrors.ErrCodeStageFailed), stageErr.Analyzer
	case errors.As(err, &sysErr):
		return string(stderrors.ErrCodeSystemFailure), failed
	}
	if stdErr, ok := stderrors.AsStandardError(err); ok {
		return string(stdErr.Code), failed
	}
	return string(stderrors.ErrCodeSystemFailure), failed
}

func (s *Service) deliver(ctx context.Context, report *models.CreditAssessmentReport) {
	if len(s.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sinkWait)
	defer cancel()

	for _, sink := range s.sinks {
		if err := s.deliverOne(ctx, sink, report); err != nil {
			metrics.ReportSinkFailures.WithLabelValues(sink.Name()).Inc()
			s.logger.Error("report sink failed", map[string]interface{}{
				"sink":     sink.Name(),
				"reportId": report.ReportID,
				"error":    err.Error(),
			})
		}
	}
}

func (s *Service) deliverOne(ctx context.Context, sink Sink, report *models.CreditAssessmentReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return sink.Deliver(ctx, report)
}

func (s *Service) record(ctx context.Context, mode, outcome string, elapsed time.Duration) {
	metrics.AssessmentsTotal.WithLabelValues(outcome).Inc()
	metrics.AssessmentDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	s.obs.RecordAssessment(ctx, outcome, elapsed)
}

// correlationID formats credit-YYYYMMDD-HHMMSS-<8 hex>.
func (s *Service) correlationID(now time.Time) string {
	suffix := strings.ReplaceAll(s.newID(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("credit-%s-%s", now.UTC().Format("20060102-150405"), suffix)
}
