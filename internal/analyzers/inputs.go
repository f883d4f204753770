package analyzers

import (
	"time"

	"credit-assessment/internal/models"
)

// Base is the context shared by every stage input.
type Base struct {
	Application   *models.LoanApplication `json:"application"`
	CorrelationID string                  `json:"correlationId"`
	FastMode      bool                    `json:"fastMode"`
	// QuoteRate is the annual rate, as a fraction, used for EstimatedPayment.
	QuoteRate float64 `json:"quoteRate"`
	// EstimatedPayment is the requested loan's monthly payment at QuoteRate.
	EstimatedPayment float64   `json:"estimatedPayment"`
	Now              time.Time `json:"now"`
}

// StageInput is satisfied by every stage input through its embedded Base.
type StageInput interface {
	Common() Base
}

func (b Base) Common() Base { return b }

type FinancialInput struct {
	Base
}

type IncomeInput struct {
	Base
	Financial *models.FinancialSummary `json:"financialSummary"`
}

type DebtInput struct {
	Base
	Financial *models.FinancialSummary `json:"financialSummary"`
	Income    *models.IncomeAnalysis   `json:"incomeAnalysis"`
}

type CollateralInput struct {
	Base
	Financial *models.FinancialSummary `json:"financialSummary"`
	Income    *models.IncomeAnalysis   `json:"incomeAnalysis"`
	Debt      *models.DebtAnalysis     `json:"debtAnalysis"`
}

type RiskInput struct {
	Base
	Financial  *models.FinancialSummary     `json:"financialSummary"`
	Income     *models.IncomeAnalysis       `json:"incomeAnalysis"`
	Debt       *models.DebtAnalysis         `json:"debtAnalysis"`
	Collateral *models.CollateralEvaluation `json:"collateralEvaluation"`
}

type DecisionInput struct {
	Base
	Financial  *models.FinancialSummary     `json:"financialSummary"`
	Income     *models.IncomeAnalysis       `json:"incomeAnalysis"`
	Debt       *models.DebtAnalysis         `json:"debtAnalysis"`
	Collateral *models.CollateralEvaluation `json:"collateralEvaluation"`
	Risk       *models.RiskAssessment       `json:"riskAssessment"`
}
