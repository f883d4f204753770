// internal/models/analysis.go
package models

import "time"

type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// Ordinal returns 0 for very_low through 4 for very_high, -1 when unknown.
func (r RiskLevel) Ordinal() int {
	switch r {
	case RiskVeryLow:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskVeryHigh:
		return 4
	default:
		return -1
	}
}

type DecisionType string

const (
	DecisionApproved               DecisionType = "approved"
	DecisionApprovedWithConditions DecisionType = "approved_with_conditions"
	DecisionManualReview           DecisionType = "manual_review"
	DecisionDeclined               DecisionType = "declined"
)

type IncomeTrend string

const (
	TrendIncreasing IncomeTrend = "increasing"
	TrendStable     IncomeTrend = "stable"
	TrendDecreasing IncomeTrend = "decreasing"
)

// Grade is the shared high/medium/low scale used for sustainability,
// payment shock and valuation confidence.
type Grade string

const (
	GradeHigh   Grade = "high"
	GradeMedium Grade = "medium"
	GradeLow    Grade = "low"
)

type CollateralQuality string

const (
	QualityExcellent CollateralQuality = "excellent"
	QualityGood      CollateralQuality = "good"
	QualityFair      CollateralQuality = "fair"
	QualityPoor      CollateralQuality = "poor"
	QualityNone      CollateralQuality = "none"
)

// FinancialSummary is produced by the financial data collection stage.
type FinancialSummary struct {
	TotalMonthlyIncome   float64     `json:"totalMonthlyIncome"`
	IncomeStabilityScore float64     `json:"incomeStabilityScore"` // 0-100
	IncomeSources        []string    `json:"incomeSources"`
	EmploymentStability  string      `json:"employmentStability"`
	IncomeTrend          IncomeTrend `json:"incomeTrend"`
	VerificationStatus   string      `json:"verificationStatus"`
	RedFlags             []string    `json:"redFlags"`
	DataQualityScore     int         `json:"dataQualityScore"` // 1-10
}

type IncomeAnalysis struct {
	GrossAnnualIncome       float64  `json:"grossAnnualIncome"`
	NetAnnualIncome         float64  `json:"netAnnualIncome"`
	IncomeToExpenseRatio    float64  `json:"incomeToExpenseRatio"`
	DisposableIncomeMonthly float64  `json:"disposableIncomeMonthly"`
	IncomeSustainability    Grade    `json:"incomeSustainability"`
	IncomeDiversification   float64  `json:"incomeDiversificationScore"` // 0-100
	StressTestResult        string   `json:"stressTestResult"`
	StressTestPassed        bool     `json:"stressTestPassed"`
	MaxAffordablePayment    float64  `json:"maxAffordablePayment"`
	AnalysisNotes           []string `json:"analysisNotes"`
}

// DebtAnalysis carries DTI as a fraction, DSCR as a ratio and utilization as
// a percentage.
type DebtAnalysis struct {
	TotalExistingDebt          float64  `json:"totalExistingDebt"`
	TotalMonthlyDebtPayments   float64  `json:"totalMonthlyDebtPayments"`
	DebtToIncomeRatio          float64  `json:"debtToIncomeRatio"`
	ProjectedDTI               float64  `json:"projectedDti"`
	DebtServiceCoverageRatio   float64  `json:"debtServiceCoverageRatio"`
	CreditUtilization          float64  `json:"creditUtilization"`
	DebtStructureAssessment    string   `json:"debtStructureAssessment"`
	PaymentShockRisk           Grade    `json:"paymentShockRisk"`
	ConsolidationBenefit       string   `json:"consolidationBenefit,omitempty"`
	RedFlags                   []string `json:"redFlags"`
	EstimatedNewMonthlyPayment float64  `json:"estimatedNewMonthlyPayment"`
}

// CollateralEvaluation carries LTV as a percentage; it is 100 when no
// collateral is pledged and is never clamped above 100.
type CollateralEvaluation struct {
	CollateralPresent   bool              `json:"collateralPresent"`
	CollateralType      CollateralType    `json:"collateralType,omitempty"`
	CollateralValue     float64           `json:"collateralValue"`
	LoanToValueRatio    float64           `json:"loanToValueRatio"`
	CollateralQuality   CollateralQuality `json:"collateralQuality"`
	LiquidationValue    float64           `json:"liquidationValue"`
	CoverageRatio       float64           `json:"coverageRatio"`
	ValuationConfidence Grade             `json:"valuationConfidence"`
	CollateralRisks     []string          `json:"collateralRisks"`
	Recommendations     []string          `json:"recommendations"`
}

// RiskBreakdown holds component quality scores, 0-100, higher is better.
type RiskBreakdown struct {
	CreditHistory   float64 `json:"creditHistory"`
	IncomeStability float64 `json:"incomeStability"`
	DebtBurden      float64 `json:"debtBurden"`
	Collateral      float64 `json:"collateral"`
	Employment      float64 `json:"employment"`
}

// RiskAssessment carries PD, LGD and the Basel weight as percentages.
type RiskAssessment struct {
	RiskLevel            RiskLevel     `json:"riskLevel"`
	RiskScore            int           `json:"riskScore"` // 0-100, higher is riskier
	ProbabilityOfDefault float64       `json:"probabilityOfDefault"`
	LossGivenDefault     float64       `json:"lossGivenDefault"`
	ExpectedLoss         float64       `json:"expectedLoss"`
	RiskBreakdown        RiskBreakdown `json:"riskBreakdown"`
	RiskFactors          []string      `json:"riskFactors"`
	MitigatingFactors    []string      `json:"mitigatingFactors"`
	RegulatoryFlags      []string      `json:"regulatoryFlags"`
	BaselRiskWeight      float64       `json:"baselRiskWeight"` // 0-150
}

type LoanTerms struct {
	ApprovedAmount float64 `json:"approvedAmount"`
	InterestRate   float64 `json:"interestRate"` // annual percent
	TermMonths     int     `json:"termMonths"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalInterest  float64 `json:"totalInterest"`
	TotalRepayment float64 `json:"totalRepayment"`
	APR            float64 `json:"apr"` // annual percent
	Fees           float64 `json:"fees"`
}

type CreditDecision struct {
	Decision            DecisionType `json:"decision"`
	DecisionDate        time.Time    `json:"decisionDate"`
	Confidence          float64      `json:"confidence"` // 0-100
	LoanTerms           *LoanTerms   `json:"loanTerms,omitempty"`
	Conditions          []string     `json:"conditions"`
	DeclineReasons      []string     `json:"declineReasons"`
	ManualReviewReasons []string     `json:"manualReviewReasons"`
	NextSteps           []string     `json:"nextSteps"`
	ValidityDays        int          `json:"validityDays"`
}
