package riskscorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/analyzers/analyzertest"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

func input(app *models.LoanApplication, out analyzertest.Outputs) analyzers.RiskInput {
	return analyzers.RiskInput{
		Base:       analyzertest.Base(app),
		Financial:  &out.Financial,
		Income:     &out.Income,
		Debt:       &out.Debt,
		Collateral: &out.Collateral,
	}
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	return New(LoadConfig(), finance.DefaultPolicy(), logger.NewTestLogger(t))
}

// ==========================
// Scoring
// ==========================

func TestAnalyze_UnsecuredPersonalLoan(t *testing.T) {
	out, err := newTestAnalyzer(t).Analyze(context.Background(),
		input(analyzertest.Application(), analyzertest.ApprovedOutputs()))
	require.NoError(t, err)

	assert.Equal(t, 17, out.RiskScore)
	assert.Equal(t, models.RiskVeryLow, out.RiskLevel)
	assert.InDelta(t, 0.93, out.ProbabilityOfDefault, 0.001)
	assert.Equal(t, 70.0, out.LossGivenDefault)
	assert.Equal(t, 129.5, out.ExpectedLoss)
	assert.Equal(t, 75.0, out.BaselRiskWeight)
	assert.Equal(t, 76.36, out.RiskBreakdown.CreditHistory)
	assert.Equal(t, 25.0, out.RiskBreakdown.Collateral)
	assert.Equal(t, 100.0, out.RiskBreakdown.Employment)
	assert.Contains(t, out.RiskFactors, "Unsecured loan")
	assert.Contains(t, out.MitigatingFactors, "Low projected DTI")
	assert.Empty(t, out.RegulatoryFlags)
}

func TestAnalyze_Mortgage(t *testing.T) {
	outputs := analyzertest.ApprovedOutputs()
	outputs.Debt.ProjectedDTI = 0.267
	outputs.Collateral = models.CollateralEvaluation{
		CollateralPresent:   true,
		CollateralType:      models.CollateralRealEstate,
		CollateralValue:     320000,
		LoanToValueRatio:    75,
		CollateralQuality:   models.QualityGood,
		LiquidationValue:    256000,
		CoverageRatio:       1.07,
		ValuationConfidence: models.GradeHigh,
	}

	out, err := newTestAnalyzer(t).Analyze(context.Background(), input(analyzertest.SecuredApplication(), outputs))
	require.NoError(t, err)

	assert.Equal(t, 12, out.RiskScore)
	assert.Equal(t, models.RiskVeryLow, out.RiskLevel)
	assert.InDelta(t, 0.8, out.ProbabilityOfDefault, 1e-9)
	assert.Equal(t, 37.5, out.LossGivenDefault)
	// 0.008 * 0.375 * 240000
	assert.Equal(t, 720.0, out.ExpectedLoss)
	assert.Equal(t, 35.0, out.BaselRiskWeight)
	assert.Equal(t, 74.75, out.RiskBreakdown.Collateral)
	assert.Contains(t, out.MitigatingFactors, "good collateral coverage")
}

func TestAnalyze_DerogatoryHistoryLandsOnMediumBoundary(t *testing.T) {
	app := analyzertest.Application()
	app.CreditHistory.CreditScore = 560
	app.CreditHistory.Bankruptcies = 1
	app.CreditHistory.Delinquencies90Days = 2

	out, err := newTestAnalyzer(t).Analyze(context.Background(), input(app, analyzertest.ApprovedOutputs()))
	require.NoError(t, err)

	assert.Equal(t, 0.0, out.RiskBreakdown.CreditHistory)
	assert.Equal(t, 40, out.RiskScore)
	assert.Equal(t, models.RiskMedium, out.RiskLevel)
	assert.Contains(t, out.RiskFactors, "Credit score 560 is below 650")
	assert.Contains(t, out.RiskFactors, "2 delinquencies on record")
	assert.Contains(t, out.RegulatoryFlags, "Bankruptcy on file")
}

func TestAnalyze_VeryHighRiskTakesHighRiskWeight(t *testing.T) {
	app := analyzertest.Application()
	app.CreditHistory.CreditScore = 560
	app.CreditHistory.Bankruptcies = 1
	app.CreditHistory.Delinquencies90Days = 2
	app.Employment.EmploymentType = models.EmploymentUnemployed

	outputs := analyzertest.ApprovedOutputs()
	outputs.Financial.IncomeStabilityScore = 40
	outputs.Financial.IncomeTrend = models.TrendDecreasing
	outputs.Financial.EmploymentStability = "unstable"
	outputs.Debt.ProjectedDTI = 0.55

	out, err := newTestAnalyzer(t).Analyze(context.Background(), input(app, outputs))
	require.NoError(t, err)

	assert.Equal(t, 82, out.RiskScore)
	assert.Equal(t, models.RiskVeryHigh, out.RiskLevel)
	assert.Equal(t, 150.0, out.BaselRiskWeight)
	assert.Contains(t, out.RegulatoryFlags, "High-risk exposure at 150% risk weight")
	assert.Contains(t, out.RiskFactors, "Unstable employment")
}

func TestAnalyze_RequiresPriorStages(t *testing.T) {
	_, err := newTestAnalyzer(t).Analyze(context.Background(),
		analyzers.RiskInput{Base: analyzertest.Base(analyzertest.Application())})

	var failure *analyzers.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Name, failure.Analyzer)
}

func TestEmploymentScore(t *testing.T) {
	assert.Equal(t, 76.0, employmentScore(models.EmploymentInfo{EmploymentType: models.EmploymentEmployed, YearsEmployed: 2}))
	assert.Equal(t, 90.0, employmentScore(models.EmploymentInfo{EmploymentType: models.EmploymentSelfEmployed, YearsEmployed: 9}))
	assert.Equal(t, 70.0, employmentScore(models.EmploymentInfo{EmploymentType: models.EmploymentRetired}))
}
