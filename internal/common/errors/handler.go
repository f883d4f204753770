// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// JobFailer reports failed jobs back to the broker. Retryable errors consume
// one of the job's remaining retries; everything else, and the last attempt
// of a retryable error, is thrown as the mapped BPMN error.
type JobFailer struct {
	logger Logger
}

func NewJobFailer(logger Logger) *JobFailer {
	return &JobFailer{logger: logger}
}

func (f *JobFailer) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) error {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	retries, retry := NextRetries(stdErr, job.Retries)
	f.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"details":          stdErr.Details,
		"retry":            retry,
		"retriesLeft":      retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})

	vars, _ := json.Marshal(bpmnErr.ToErrorVariables())
	if retry {
		cmd := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(retries).
			ErrorMessage(bpmnErr.Message)
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, err = withVars.Send(ctx)
			return err
		}
		_, err := cmd.Send(ctx)
		return err
	}

	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)
	if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
		_, err = withVars.Send(ctx)
		return err
	}
	_, err = cmd.Send(ctx)
	return err
}

// NextRetries decides between failing a job for another attempt and throwing
// it. A retry leaves the job with one fewer retry, never more than the
// code's retry budget.
func NextRetries(stdErr *StandardError, remaining int32) (int32, bool) {
	if !stdErr.Retryable || remaining <= 1 {
		return 0, false
	}
	next := remaining - 1
	if budget := int32(GetRetryCount(stdErr.Code)); budget > 0 && next > budget {
		next = budget
	}
	return next, true
}

// Normalize returns err as a StandardError, wrapping foreign errors as a
// non-retryable system failure.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewSystemFailureError(err)
}
