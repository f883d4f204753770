package service

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/metrics"
	"credit-assessment/internal/models"
	"credit-assessment/internal/pipeline"
)

const (
	StageInit     = "init"
	StageComplete = "complete"
	StageFailed   = "error"
)

var stageStatus = map[pipeline.Stage]string{
	pipeline.StageFinancialCollected:  "Financial data collected",
	pipeline.StageIncomeAnalyzed:      "Income analysis complete",
	pipeline.StageDebtAnalyzed:        "Debt analysis complete",
	pipeline.StageCollateralEvaluated: "Collateral evaluation complete",
	pipeline.StageRiskCalculated:      "Risk assessment complete",
	pipeline.StageDecisionComplete:    "Credit decision made",
}

// AssessStreaming returns the progress events of one run. The run starts
// when iteration starts and advances one stage per event; a consumer that
// stops iterating abandons the run at the next stage boundary. The sequence
// is single use: iterating it again yields nothing.
func (s *Service) AssessStreaming(ctx context.Context, req models.AssessmentRequest) iter.Seq[models.ProgressEvent] {
	var used atomic.Bool
	return func(yield func(models.ProgressEvent) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		s.stream(ctx, req, yield)
	}
}

func (s *Service) stream(ctx context.Context, req models.AssessmentRequest, yield func(models.ProgressEvent) bool) {
	start := s.clock()
	correlationID := s.correlationID(start)
	log := s.logger.WithFields(map[string]interface{}{"correlationId": correlationID, "mode": modeStreaming})

	initData := map[string]interface{}{"correlationId": correlationID}
	if s.traceURL != "" {
		initData["traceUrl"] = fmt.Sprintf(s.traceURL, correlationID)
	}
	if !yield(models.ProgressEvent{Status: "Initializing credit assessment", Progress: 0, Stage: StageInit, Data: initData}) {
		return
	}

	app := req.Application
	if validation := s.Validate(&app); !validation.Valid {
		metrics.AssessmentsTotal.WithLabelValues(outcomeInvalid).Inc()
		yield(errorEvent(0, "", newValidationError(validation).Error(), string(stderrors.ErrCodeValidationFailed)))
		return
	}
	if app.ApplicationID == "" {
		app.ApplicationID = s.newID()
	}

	metrics.AssessmentsInFlight.WithLabelValues(modeStreaming).Inc()
	defer metrics.AssessmentsInFlight.WithLabelValues(modeStreaming).Dec()

	var st *pipeline.State
	fail := func(err error) {
		elapsed := s.clock().Sub(start)
		code, stage := classify(st, err)
		progress := 0
		if st != nil {
			progress = st.Progress
		}
		s.record(ctx, modeStreaming, outcomeFailed, elapsed)
		log.Error("streaming assessment failed", map[string]interface{}{
			"errorCode":   code,
			"failedStage": stage,
			"error":       err.Error(),
		})
		yield(errorEvent(progress, stage, err.Error(), code))
	}

	var err error
	st, err = s.orch.Start(pipeline.Request{
		Application:    &app,
		CorrelationID:  correlationID,
		FastMode:       req.FastMode,
		DetailedReport: req.DetailedReport(),
	})
	if err != nil {
		fail(&pipeline.SystemFailure{Stage: pipeline.StageStarted, Err: err})
		return
	}

	for !st.Done() {
		if err := guard(st, func() error { return s.orch.Step(ctx, st) }); err != nil {
			fail(err)
			return
		}
		if !yield(models.ProgressEvent{
			Status:   stageStatus[st.Stage],
			Progress: st.Progress,
			Stage:    string(st.Stage),
			Data:     stageData(st),
		}) {
			log.Info("stream abandoned by consumer", map[string]interface{}{"stage": st.Stage, "progress": st.Progress})
			return
		}
	}

	var report *models.CreditAssessmentReport
	if err := guard(st, func() (err error) {
		report, err = s.orch.Finish(st)
		return err
	}); err != nil {
		fail(err)
		return
	}
	s.deliver(ctx, report)
	elapsed := s.clock().Sub(start)
	s.record(ctx, modeStreaming, outcomeSuccess, elapsed)
	log.Info("streaming assessment completed", map[string]interface{}{
		"reportId":   report.ReportID,
		"decision":   report.CreditDecision.Decision,
		"durationMs": elapsed.Milliseconds(),
	})

	yield(models.ProgressEvent{
		Status:   "Assessment complete",
		Progress: 100,
		Stage:    StageComplete,
		Data: map[string]interface{}{
			"decision":      report.CreditDecision.Decision,
			"confidence":    report.CreditDecision.Confidence,
			"riskLevel":     report.RiskAssessment.RiskLevel,
			"reportId":      report.ReportID,
			"correlationId": correlationID,
		},
	})
}

// guard turns a panic inside the orchestrator into a SystemFailure.
func guard(st *pipeline.State, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &pipeline.SystemFailure{Stage: st.Stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn()
}

func errorEvent(progress int, stage, msg, code string) models.ProgressEvent {
	data := map[string]interface{}{"error": msg, "errorCode": code}
	if stage != "" {
		data["failedStage"] = stage
	}
	return models.ProgressEvent{
		Status:   "Assessment failed: " + msg,
		Progress: progress,
		Stage:    StageFailed,
		Data:     data,
	}
}

// stageData is the headline figure of the stage that just completed.
func stageData(st *pipeline.State) map[string]interface{} {
	switch st.Stage {
	case pipeline.StageFinancialCollected:
		return map[string]interface{}{
			"incomeStabilityScore": st.Financial.IncomeStabilityScore,
			"dataQualityScore":     st.Financial.DataQualityScore,
		}
	case pipeline.StageIncomeAnalyzed:
		return map[string]interface{}{
			"maxAffordablePayment": st.Income.MaxAffordablePayment,
			"stressTestPassed":     st.Income.StressTestPassed,
		}
	case pipeline.StageDebtAnalyzed:
		return map[string]interface{}{
			"projectedDti":             st.Debt.ProjectedDTI,
			"debtServiceCoverageRatio": st.Debt.DebtServiceCoverageRatio,
		}
	case pipeline.StageCollateralEvaluated:
		return map[string]interface{}{
			"collateralPresent": st.Collateral.CollateralPresent,
			"loanToValueRatio":  st.Collateral.LoanToValueRatio,
		}
	case pipeline.StageRiskCalculated:
		return map[string]interface{}{
			"riskLevel": st.Risk.RiskLevel,
			"riskScore": st.Risk.RiskScore,
		}
	case pipeline.StageDecisionComplete:
		return map[string]interface{}{
			"decision":   st.Decision.Decision,
			"confidence": st.Decision.Confidence,
		}
	}
	return nil
}
