package financialcollector

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

func newTestAnalyzer(t *testing.T) *Analyzer {
	return New(LoadConfig(), finance.DefaultPolicy(), logger.NewTestLogger(t))
}

func TestAnalyze_SalariedApplicant(t *testing.T) {
	app := analyzertest.Application()

	out, err := newTestAnalyzer(t).Analyze(context.Background(), analyzers.FinancialInput{Base: analyzertest.Base(app)})
	require.NoError(t, err)

	assert.Equal(t, 5000.0, out.TotalMonthlyIncome)
	assert.Equal(t, 100.0, out.IncomeStabilityScore)
	assert.Equal(t, []string{"salary"}, out.IncomeSources)
	assert.Equal(t, "stable", out.EmploymentStability)
	assert.Equal(t, models.TrendStable, out.IncomeTrend)
	assert.Equal(t, "verified", out.VerificationStatus)
	assert.Empty(t, out.RedFlags)
	assert.Equal(t, 10, out.DataQualityScore)
}

func TestStabilityScore(t *testing.T) {
	tests := []struct {
		name string
		emp  models.EmploymentInfo
		want float64
	}{
		{"long tenure verified", models.EmploymentInfo{EmploymentType: models.EmploymentEmployed, YearsEmployed: 8, IncomeVerified: true}, 100},
		{"two years unverified", models.EmploymentInfo{EmploymentType: models.EmploymentEmployed, YearsEmployed: 2}, 70},
		{"new hire verified", models.EmploymentInfo{EmploymentType: models.EmploymentEmployed, YearsEmployed: 0.5, IncomeVerified: true}, 45},
		{"self employed capped", models.EmploymentInfo{EmploymentType: models.EmploymentSelfEmployed, YearsEmployed: 10, IncomeVerified: true}, 85},
		{"contractor one year", models.EmploymentInfo{EmploymentType: models.EmploymentContractor, YearsEmployed: 1, IncomeVerified: true}, 50},
		{"retired", models.EmploymentInfo{EmploymentType: models.EmploymentRetired, IncomeVerified: true}, 75},
		{"unemployed unverified", models.EmploymentInfo{EmploymentType: models.EmploymentUnemployed}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stabilityScore(tt.emp))
		})
	}
}

func TestAnalyze_RedFlagsAndQuality(t *testing.T) {
	app := analyzertest.Application()
	app.Employment.IncomeVerified = false
	app.Employment.MonthlyNetIncome = 2000
	app.Employment.AdditionalIncome = 400
	app.CreditHistory.RecentInquiries = 7
	app.CreditHistory.CreditScoreSource = ""

	out, err := newTestAnalyzer(t).Analyze(context.Background(), analyzers.FinancialInput{Base: analyzertest.Base(app)})
	require.NoError(t, err)

	assert.Equal(t, 5400.0, out.TotalMonthlyIncome)
	assert.Equal(t, []string{"salary", "additional_income"}, out.IncomeSources)
	assert.Equal(t, models.TrendIncreasing, out.IncomeTrend)
	assert.Equal(t, "unverified", out.VerificationStatus)
	assert.Contains(t, out.RedFlags, "Net income is only 40% of gross income")
	assert.Contains(t, out.RedFlags, "7 credit inquiries in the last 12 months")
	assert.Contains(t, out.RedFlags, "Income not verified")
	// -2 unverified, -1 bureau source, -1 unnamed additional income
	assert.Equal(t, 6, out.DataQualityScore)
}

func TestAnalyze_MissingApplication(t *testing.T) {
	_, err := newTestAnalyzer(t).Analyze(context.Background(), analyzers.FinancialInput{})

	var failure *analyzers.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Name, failure.Analyzer)
}
