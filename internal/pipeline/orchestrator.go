// Package pipeline sequences the six assessment stages over a single
// accumulating State. Runs are strictly sequential and fail fast: a stage
// failure moves the run to the error state and no later stage executes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"credit-assessment/internal/analyzers"
	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/metrics"
	"credit-assessment/internal/common/observability"
	"credit-assessment/internal/common/validation"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

// DefaultQuoteRate prices the estimated payment when no rate is configured.
const DefaultQuoteRate = 0.05

// Synthesizer turns a completed State into the final report.
type Synthesizer interface {
	Synthesize(st *State, elapsed time.Duration) (*models.CreditAssessmentReport, error)
}

type Options struct {
	QuoteRate     float64
	Clock         func() time.Time
	Observability *observability.Observability
	Synthesizer   Synthesizer
}

// Request starts one run.
type Request struct {
	Application   *models.LoanApplication
	CorrelationID string
	FastMode      bool
	// DetailedReport asks the synthesizer for the narrative sections.
	DetailedReport bool
}

type Orchestrator struct {
	suite     analyzers.Suite
	quoteRate float64
	clock     func() time.Time
	obs       *observability.Observability
	synth     Synthesizer
	logger    logger.Logger
}

func New(suite analyzers.Suite, opts Options, log logger.Logger) (*Orchestrator, error) {
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		suite:     suite,
		quoteRate: opts.QuoteRate,
		clock:     opts.Clock,
		obs:       opts.Observability,
		synth:     opts.Synthesizer,
		logger:    log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
	if o.quoteRate <= 0 {
		o.quoteRate = DefaultQuoteRate
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	return o, nil
}

// Start creates the state for a run. The application must already have
// passed validation; Start only guards the invariants the stages rely on.
func (o *Orchestrator) Start(req Request) (*State, error) {
	app := req.Application
	if app == nil {
		return nil, fmt.Errorf("%w: application is required", ErrInvalidRequest)
	}
	if app.LoanRequest.RequestedTermMonths <= 0 || app.LoanRequest.RequestedAmount <= 0 {
		return nil, fmt.Errorf("%w: requested amount and term must be positive", ErrInvalidRequest)
	}

	now := o.clock()
	payment := finance.AmortizedPayment(app.LoanRequest.RequestedAmount, app.LoanRequest.RequestedTermMonths, o.quoteRate)
	st := &State{
		Application:      app,
		CorrelationID:    req.CorrelationID,
		FastMode:         req.FastMode,
		DetailedReport:   req.DetailedReport,
		QuoteRate:        o.quoteRate,
		EstimatedPayment: finance.RoundCurrency(payment),
		StartedAt:        now,
		Stage:            StageStarted,
		now:              now,
	}
	st.Notes = append(st.Notes, "assessment started")
	return st, nil
}

// Step executes the next stage of st. It returns ErrRunComplete once st is
// terminal. Cancellation is checked before the stage starts, never during
// an analyzer call.
func (o *Orchestrator) Step(ctx context.Context, st *State) error {
	s, ok := st.next()
	if !ok {
		return ErrRunComplete
	}
	if ctx.Err() != nil {
		st.fail(s.analyzer, fmt.Sprintf("cancelled before %s", s.analyzer))
		return stderrors.NewAssessmentCancelledError(s.analyzer)
	}

	var err error
	switch s.to {
	case StageFinancialCollected:
		st.Financial, err = runStage(ctx, o, st, s, o.suite.Financial,
			analyzers.FinancialInput{Base: st.base()}, validation.SchemaFinancialSummary)
	case StageIncomeAnalyzed:
		if err = requireSlots(st, s, st.Financial != nil); err == nil {
			st.Income, err = runStage(ctx, o, st, s, o.suite.Income,
				analyzers.IncomeInput{Base: st.base(), Financial: st.Financial}, validation.SchemaIncomeAnalysis)
		}
	case StageDebtAnalyzed:
		if err = requireSlots(st, s, st.Financial != nil, st.Income != nil); err == nil {
			st.Debt, err = runStage(ctx, o, st, s, o.suite.Debt,
				analyzers.DebtInput{Base: st.base(), Financial: st.Financial, Income: st.Income}, validation.SchemaDebtAnalysis)
		}
	case StageCollateralEvaluated:
		if err = requireSlots(st, s, st.Financial != nil, st.Income != nil, st.Debt != nil); err == nil {
			st.Collateral, err = runStage(ctx, o, st, s, o.suite.Collateral,
				analyzers.CollateralInput{Base: st.base(), Financial: st.Financial, Income: st.Income, Debt: st.Debt},
				validation.SchemaCollateralEvaluation)
		}
	case StageRiskCalculated:
		if err = requireSlots(st, s, st.Financial != nil, st.Income != nil, st.Debt != nil, st.Collateral != nil); err == nil {
			st.Risk, err = runStage(ctx, o, st, s, o.suite.Risk,
				analyzers.RiskInput{Base: st.base(), Financial: st.Financial, Income: st.Income, Debt: st.Debt, Collateral: st.Collateral},
				validation.SchemaRiskAssessment)
		}
	case StageDecisionComplete:
		if err = requireSlots(st, s, st.Financial != nil, st.Income != nil, st.Debt != nil, st.Collateral != nil, st.Risk != nil); err == nil {
			st.Decision, err = runStage(ctx, o, st, s, o.suite.Decision,
				analyzers.DecisionInput{
					Base: st.base(), Financial: st.Financial, Income: st.Income,
					Debt: st.Debt, Collateral: st.Collateral, Risk: st.Risk,
				},
				validation.SchemaCreditDecision)
			if err == nil {
				metrics.DecisionsTotal.WithLabelValues(string(st.Decision.Decision), string(st.Risk.RiskLevel)).Inc()
			}
		}
	}
	if err != nil {
		return err
	}

	st.Progress = max(st.Progress, s.progress)
	st.Stage = s.to
	st.Notes = append(st.Notes, s.note)
	return nil
}

// Execute drives st to a terminal state.
func (o *Orchestrator) Execute(ctx context.Context, st *State) error {
	for !st.Done() {
		if err := o.Step(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Run executes a complete assessment and synthesizes the report. The run is
// never retried; a failure identifies the stage that halted it.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.CreditAssessmentReport, *State, error) {
	st, err := o.Start(req)
	if err != nil {
		return nil, nil, err
	}
	if err := o.Execute(ctx, st); err != nil {
		return nil, st, err
	}
	report, err := o.Finish(st)
	return report, st, err
}

// Finish builds the report for a completed state.
func (o *Orchestrator) Finish(st *State) (*models.CreditAssessmentReport, error) {
	if st.Stage != StageDecisionComplete {
		return nil, &SystemFailure{Stage: st.Stage, Err: errors.New("run has not completed")}
	}
	if o.synth == nil {
		return nil, &SystemFailure{Stage: st.Stage, Err: errors.New("no report synthesizer configured")}
	}
	report, err := o.synth.Synthesize(st, o.clock().Sub(st.StartedAt))
	if err != nil {
		return nil, &SystemFailure{Stage: st.Stage, Err: err}
	}
	return report, nil
}

func requireSlots(st *State, s step, present ...bool) error {
	for _, ok := range present {
		if !ok {
			err := &SystemFailure{Stage: st.Stage, Err: fmt.Errorf("%s requires outputs of every earlier stage", s.analyzer)}
			st.fail(s.analyzer, err.Error())
			return err
		}
	}
	return nil
}

func runStage[In, Out any](
	ctx context.Context,
	o *Orchestrator,
	st *State,
	s step,
	a analyzers.Analyzer[In, Out],
	in In,
	schema string,
) (*Out, error) {
	ctx, span := observability.Tracer().Start(ctx, "stage."+string(s.to))
	defer span.End()
	span.SetAttributes(
		attribute.String("correlation.id", st.CorrelationID),
		attribute.String("analyzer", a.Name()),
	)

	start := time.Now()
	// A started stage runs to completion; cancellation is only observed by
	// the next Step.
	out, failure := analyzers.Invoke(context.WithoutCancel(ctx), a, in)
	if failure == nil {
		if err := validation.ValidateStageOutput(schema, out); err != nil {
			failure = analyzers.Fail(a.Name(), err)
		}
	}
	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(s.analyzer).Observe(elapsed.Seconds())

	fields := map[string]interface{}{
		"correlationId": st.CorrelationID,
		"stage":         s.analyzer,
		"durationMs":    elapsed.Milliseconds(),
	}
	if failure != nil {
		code := string(stderrors.ErrCodeAnalyzerFailed)
		if stdErr, ok := stderrors.AsStandardError(failure); ok {
			code = string(stdErr.Code)
		}
		metrics.StageFailures.WithLabelValues(s.analyzer, code).Inc()
		o.obs.RecordStage(ctx, s.analyzer, elapsed, "failed")
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Cause)

		fields["error"] = failure.Cause
		o.logger.Error("stage failed", fields)

		st.fail(s.analyzer, fmt.Sprintf("%s: %s", s.analyzer, failure.Cause))
		return nil, &StageFailure{Stage: s.from, Analyzer: s.analyzer, Cause: failure.Cause, Err: failure}
	}

	o.obs.RecordStage(ctx, s.analyzer, elapsed, "ok")
	fields["progress"] = s.progress
	o.logger.Info("stage completed", fields)
	return &out, nil
}
