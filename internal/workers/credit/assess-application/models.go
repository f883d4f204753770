// internal/workers/credit/assess-application/models.go
package assessapplication

import "credit-assessment/internal/models"

// Input is read from the process variables of the job.
type Input struct {
	Application           *models.LoanApplication `json:"application"`
	FastMode              bool                    `json:"fastMode"`
	IncludeDetailedReport *bool                   `json:"includeDetailedReport"`
}

// Output is merged back into the process instance on completion.
type Output struct {
	Success               bool                `json:"success"`
	ReportID              string              `json:"reportId"`
	Decision              models.DecisionType `json:"decision"`
	RiskLevel             models.RiskLevel    `json:"riskLevel"`
	Confidence            float64             `json:"confidence"`
	CorrelationReference  string              `json:"correlationReference,omitempty"`
	ProcessingTimeSeconds float64             `json:"processingTimeSeconds"`
}
