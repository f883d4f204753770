package incomeanalyzer

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

func input(app *models.LoanApplication) analyzers.IncomeInput {
	fs := analyzertest.ApprovedOutputs().Financial
	return analyzers.IncomeInput{Base: analyzertest.Base(app), Financial: &fs}
}

func TestAnalyze_StandardApplicant(t *testing.T) {
	a := New(LoadConfig(), finance.DefaultPolicy(), logger.NewTestLogger(t))

	out, err := a.Analyze(context.Background(), input(analyzertest.Application()))
	require.NoError(t, err)

	assert.Equal(t, 60000.0, out.GrossAnnualIncome)
	assert.Equal(t, 45600.0, out.NetAnnualIncome)
	assert.Equal(t, 1.63, out.IncomeToExpenseRatio)
	// 3800 net - 1330 essential - 1000 existing debt service
	assert.Equal(t, 1470.0, out.DisposableIncomeMonthly)
	// min(5000 * 0.43 - 1000, 1470)
	assert.Equal(t, 1150.0, out.MaxAffordablePayment)
	assert.Equal(t, models.GradeHigh, out.IncomeSustainability)
	assert.Equal(t, 20.0, out.IncomeDiversification)
	assert.True(t, out.StressTestPassed)
	assert.Contains(t, out.StressTestResult, "passed: debt service 1396.02")
	assert.Contains(t, out.AnalysisNotes, "Single income source")
}

func TestAnalyze_StressTestFails(t *testing.T) {
	app := analyzertest.Application()
	app.LoanRequest.RequestedAmount = 40000

	out, err := New(nil, finance.DefaultPolicy(), logger.NewNoOpLogger()).Analyze(context.Background(), input(app))
	require.NoError(t, err)

	// stressed capacity is 4000 * 0.43 = 1720; 1000 + 792.05 exceeds it
	assert.False(t, out.StressTestPassed)
	assert.Contains(t, out.StressTestResult, "failed")
}

func TestAnalyze_OverCommittedIncome(t *testing.T) {
	app := analyzertest.Application()
	app.ExistingDebts[0].MonthlyPayment = 2700

	in := input(app)
	in.FastMode = true
	out, err := New(nil, finance.DefaultPolicy(), logger.NewNoOpLogger()).Analyze(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 0.0, out.MaxAffordablePayment)
	assert.Less(t, out.DisposableIncomeMonthly, 0.0)
	assert.Nil(t, out.AnalysisNotes)
}

func TestSustainability(t *testing.T) {
	assert.Equal(t, models.GradeHigh, sustainability(&models.FinancialSummary{IncomeStabilityScore: 80, IncomeTrend: models.TrendStable}))
	assert.Equal(t, models.GradeMedium, sustainability(&models.FinancialSummary{IncomeStabilityScore: 80, IncomeTrend: models.TrendDecreasing}))
	assert.Equal(t, models.GradeLow, sustainability(&models.FinancialSummary{IncomeStabilityScore: 45}))
}

func TestAnalyze_RequiresFinancialSummary(t *testing.T) {
	_, err := New(nil, finance.DefaultPolicy(), logger.NewNoOpLogger()).Analyze(context.Background(),
		analyzers.IncomeInput{Base: analyzertest.Base(analyzertest.Application())})

	var failure *analyzers.Failure
	assert.ErrorAs(t, err, &failure)
}
