// internal/workers/credit/assess-application/handler.go
package assessapplication

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
)

const (
	TaskType = "assess-credit-application"
)

// Assessor runs one blocking assessment.
type Assessor interface {
	Assess(ctx context.Context, req models.AssessmentRequest) (*models.AssessmentResponse, error)
}

type Handler struct {
	config   *Config
	assessor Assessor
	failer   *stderrors.JobFailer
	logger   logger.Logger
}

func NewHandler(config *Config, assessor Assessor, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		assessor: assessor,
		failer:   stderrors.NewJobFailer(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := decodeInput(job.Variables)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func decodeInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, stderrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	if input.Application == nil {
		return nil, stderrors.NewValidationFailedError([]string{"Application is required"})
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	resp, err := h.assessor.Assess(ctx, models.AssessmentRequest{
		Application:           *input.Application,
		FastMode:              input.FastMode,
		IncludeDetailedReport: input.IncludeDetailedReport,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, envelopeError(resp)
	}

	r := resp.Report
	out := &Output{
		Success:               true,
		ReportID:              r.ReportID,
		Decision:              r.CreditDecision.Decision,
		RiskLevel:             r.RiskAssessment.RiskLevel,
		Confidence:            r.CreditDecision.Confidence,
		ProcessingTimeSeconds: resp.ProcessingTimeSeconds,
	}
	if resp.CorrelationReference != nil {
		out.CorrelationReference = *resp.CorrelationReference
	}
	return out, nil
}

// envelopeError turns a failure envelope back into a StandardError so the
// BPMN mapping applies to it.
func envelopeError(resp *models.AssessmentResponse) *stderrors.StandardError {
	msg := "assessment failed"
	if resp.Error != nil {
		msg = *resp.Error
	}
	code := stderrors.ErrorCode(resp.ErrorCode)
	if code == "" {
		code = stderrors.ErrCodeSystemFailure
	}
	stdErr := &stderrors.StandardError{Code: code, Message: msg, Details: msg}
	if resp.FailedStage != "" {
		stdErr.Metadata = map[string]interface{}{"stage": resp.FailedStage}
	}
	return stdErr
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.Key,
		"decision": output.Decision,
		"reportId": output.ReportID,
	})
}

// failJob retries transient errors through Zeebe's retry counter and throws
// a BPMN error for everything else.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, cause error) {
	if err := h.failer.Fail(context.Background(), client, job, cause); err != nil {
		h.logger.Error("failed to report job failure", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
