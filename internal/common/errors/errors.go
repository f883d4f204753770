// Package errors provides standardized error handling for the assessment service
// and its workflow integrations.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidInput           ErrorCode = "INVALID_INPUT"
	ErrCodeStageFailed            ErrorCode = "STAGE_FAILED"
	ErrCodeSystemFailure          ErrorCode = "SYSTEM_FAILURE"
	ErrCodeAnalyzerFailed         ErrorCode = "ANALYZER_FAILED"
	ErrCodeAnalyzerTimeout        ErrorCode = "ANALYZER_TIMEOUT"
	ErrCodeSchemaValidationFailed ErrorCode = "SCHEMA_VALIDATION_FAILED"
	ErrCodeAssessmentCancelled    ErrorCode = "ASSESSMENT_CANCELLED"

	ErrCodeReportNotFound ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeStoreFailed    ErrorCode = "STORE_FAILED"

	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Err       error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details == "" || e.Details == e.Message {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error { return e.Err }

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationFailedError creates a non-retryable client error listing blocking issues.
func NewValidationFailedError(issues []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Application validation failed",
		Details:   strings.Join(issues, "; "),
		Retryable: false,
		Metadata:  map[string]interface{}{"issues": issues},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable malformed-payload error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid input payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageFailedError records the stage that halted a run.
func NewStageFailedError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStageFailed,
		Message:   fmt.Sprintf("%s failed", stage),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"stage": stage},
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// NewSystemFailureError wraps an unexpected fault inside the assessment pipeline.
func NewSystemFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSystemFailure,
		Message:   "Unexpected assessment failure",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// NewAnalyzerFailedError creates a retryable analyzer backend error.
func NewAnalyzerFailedError(analyzer string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalyzerFailed,
		Message:   fmt.Sprintf("Analyzer '%s' failed", analyzer),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// NewAnalyzerTimeoutError creates a retryable analyzer timeout error.
func NewAnalyzerTimeoutError(analyzer string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalyzerTimeout,
		Message:   fmt.Sprintf("Analyzer '%s' timeout", analyzer),
		Details:   fmt.Sprintf("call exceeded %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaValidationFailedError creates a non-retryable output schema error.
func NewSchemaValidationFailedError(schema string, problems []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaValidationFailed,
		Message:   fmt.Sprintf("Output does not match schema '%s'", schema),
		Details:   strings.Join(problems, "; "),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssessmentCancelledError is returned when a caller abandons a run between stages.
func NewAssessmentCancelledError(stage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssessmentCancelled,
		Message:   "Assessment cancelled",
		Details:   fmt.Sprintf("cancelled before %s", stage),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportNotFoundError creates a non-retryable lookup error.
func NewReportNotFoundError(reportID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportNotFound,
		Message:   "Report not found",
		Details:   fmt.Sprintf("reportId: %s", reportID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreFailedError creates a retryable persistence error.
func NewStoreFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreFailed,
		Message:   "Report store operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// NewNotificationFailedError creates a retryable notification send error.
func NewNotificationFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// ==========================
// 4. Error Conversion
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes modelled in
// the credit process definition.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:       "APPLICATION_INVALID",
	ErrCodeInvalidInput:           "APPLICATION_INVALID",
	ErrCodeStageFailed:            "ASSESSMENT_FAILED",
	ErrCodeSchemaValidationFailed: "ASSESSMENT_FAILED",
	ErrCodeSystemFailure:          "ASSESSMENT_FAILED",
	ErrCodeAssessmentCancelled:    "ASSESSMENT_CANCELLED",
	ErrCodeAnalyzerFailed:         "ANALYZER_FAILED",
	ErrCodeAnalyzerTimeout:        "ANALYZER_TIMEOUT",
	ErrCodeReportNotFound:         "REPORT_NOT_FOUND",
	ErrCodeStoreFailed:            "STORE_FAILED",
	ErrCodeNotificationFailed:     "NOTIFICATION_FAILED",
}

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeAnalyzerFailed,
		ErrCodeStoreFailed,
		ErrCodeNotificationFailed:
		return 3
	case ErrCodeAnalyzerTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status the HTTP transport returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeReportNotFound:
		return http.StatusNotFound
	case ErrCodeAssessmentCancelled:
		return 499
	case ErrCodeAnalyzerTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "ANALYZER"):
		return "ANALYZER"
	case strings.Contains(codeStr, "STAGE") || strings.Contains(codeStr, "ASSESSMENT"):
		return "PIPELINE"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "REPORT"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
