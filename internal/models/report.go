// internal/models/report.go
package models

import "time"

// CreditAssessmentReport is the terminal artifact of a successful run.
type CreditAssessmentReport struct {
	ReportID      string    `json:"reportId"`
	ApplicationID string    `json:"applicationId"`
	ReportDate    time.Time `json:"reportDate"`
	ApplicantName string    `json:"applicantName"`

	FinancialSummary     FinancialSummary     `json:"financialSummary"`
	IncomeAnalysis       IncomeAnalysis       `json:"incomeAnalysis"`
	DebtAnalysis         DebtAnalysis         `json:"debtAnalysis"`
	CollateralEvaluation CollateralEvaluation `json:"collateralEvaluation"`
	RiskAssessment       RiskAssessment       `json:"riskAssessment"`
	CreditDecision       CreditDecision       `json:"creditDecision"`

	ExecutiveSummary string   `json:"executiveSummary"`
	DetailedAnalysis string   `json:"detailedAnalysis,omitempty"`
	Recommendations  []string `json:"recommendations"`

	ProcessingTimeSeconds float64 `json:"processingTimeSeconds"`
	TraceID               string  `json:"traceId"`
	ModelVersion          string  `json:"modelVersion"`
	PolicyVersion         string  `json:"policyVersion"`
}

// AssessmentRequest wraps an application with execution flags.
type AssessmentRequest struct {
	Application LoanApplication `json:"application"`
	FastMode    bool            `json:"fastMode"`
	// IncludeDetailedReport defaults to true when omitted.
	IncludeDetailedReport *bool `json:"includeDetailedReport,omitempty"`
}

func (r AssessmentRequest) DetailedReport() bool {
	return r.IncludeDetailedReport == nil || *r.IncludeDetailedReport
}

// AssessmentResponse is the uniform envelope returned by blocking assessment.
type AssessmentResponse struct {
	Success               bool                    `json:"success"`
	Report                *CreditAssessmentReport `json:"report"`
	Error                 *string                 `json:"error"`
	ErrorCode             string                  `json:"errorCode,omitempty"`
	FailedStage           string                  `json:"failedStage,omitempty"`
	ProcessingTimeSeconds float64                 `json:"processingTimeSeconds"`
	CorrelationReference  *string                 `json:"correlationReference"`
	TraceURL              string                  `json:"traceUrl,omitempty"`
}

// ProgressEvent is one element of a streaming assessment.
type ProgressEvent struct {
	Status   string                 `json:"status"`
	Progress int                    `json:"progress"`
	Stage    string                 `json:"stage"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// ValidationResult is the outcome of stateless application validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}
