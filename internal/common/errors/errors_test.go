package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"validation", NewValidationFailedError([]string{"Requested amount must be positive"}), "APPLICATION_INVALID", 0},
		{"stage", NewStageFailedError("debt analysis", fmt.Errorf("boom")), "ASSESSMENT_FAILED", 0},
		{"analyzer", NewAnalyzerFailedError("risk-scorer", fmt.Errorf("503")), "ANALYZER_FAILED", 3},
		{"timeout", NewAnalyzerTimeoutError("risk-scorer", 0), "ANALYZER_TIMEOUT", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeValidationFailed))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeReportNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeStageFailed))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(ErrCodeAnalyzerTimeout))
}

func TestAsStandardError(t *testing.T) {
	wrapped := fmt.Errorf("saving report: %w", NewStoreFailedError("insert", stderrors.New("conn reset")))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeStoreFailed, stdErr.Code)
	assert.True(t, IsRetryableErrorCode(stdErr.Code))

	_, ok = AsStandardError(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestValidationFailedErrorCarriesIssues(t *testing.T) {
	err := NewValidationFailedError([]string{"a", "b"})
	assert.Equal(t, "a; b", err.Details)
	assert.Equal(t, []string{"a", "b"}, err.Metadata["issues"])
	assert.Equal(t, "VALIDATION", GetErrorCategory(err.Code))
}

func TestNextRetries(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		remaining int32
		want      int32
		wantRetry bool
	}{
		{"validation is thrown", NewValidationFailedError([]string{"x"}), 3, 0, false},
		{"store failure retries", NewStoreFailedError("save", fmt.Errorf("down")), 3, 2, true},
		{"budget caps retries", NewStoreFailedError("save", fmt.Errorf("down")), 10, 3, true},
		{"timeout budget is one", NewAnalyzerTimeoutError("risk-scorer", 0), 3, 1, true},
		{"last attempt is thrown", NewAnalyzerFailedError("risk-scorer", fmt.Errorf("503")), 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, retry := NextRetries(tt.err, tt.remaining)
			assert.Equal(t, tt.wantRetry, retry)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	stdErr := NewStoreFailedError("save", fmt.Errorf("down"))
	assert.Same(t, stdErr, Normalize(fmt.Errorf("wrapped: %w", stdErr)))

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeSystemFailure, plain.Code)
	assert.False(t, plain.Retryable)
	assert.Equal(t, "boom", plain.Details)
}

func TestStandardErrorKeepsCause(t *testing.T) {
	sentinel := stderrors.New("ANALYZER_UNAVAILABLE")
	cause := fmt.Errorf("%w: status 503", sentinel)

	tests := []struct {
		name string
		err  *StandardError
	}{
		{"analyzer", NewAnalyzerFailedError("risk-scorer", cause)},
		{"stage", NewStageFailedError("risk scoring", cause)},
		{"system", NewSystemFailureError(cause)},
		{"store", NewStoreFailedError("save", cause)},
		{"notification", NewNotificationFailedError("sns", cause)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, sentinel)
			assert.ErrorIs(t, fmt.Errorf("outer: %w", tt.err), sentinel)
			assert.Contains(t, tt.err.Error(), "status 503")
		})
	}
}

func TestStandardErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *StandardError
		want string
	}{
		{"with details", NewReportNotFoundError("r-1"), "StandardError[REPORT_NOT_FOUND]: Report not found: reportId: r-1"},
		{"no details", &StandardError{Code: ErrCodeSystemFailure, Message: "boom"}, "StandardError[SYSTEM_FAILURE]: boom"},
		{"details repeat message", &StandardError{Code: ErrCodeStageFailed, Message: "boom", Details: "boom"}, "StandardError[STAGE_FAILED]: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
