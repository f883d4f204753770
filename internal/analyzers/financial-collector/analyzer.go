// Package financialcollector summarizes the applicant's income position:
// sources, stability, trend, verification and data quality.
package financialcollector

import (
	"context"
	"fmt"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/validation"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

const Name = analyzers.FinancialCollector

type Analyzer struct {
	config *Config
	policy *finance.Policy
	logger logger.Logger
}

func New(config *Config, policy *finance.Policy, log logger.Logger) *Analyzer {
	if config == nil {
		config = LoadConfig()
	}
	return &Analyzer{
		config: config,
		policy: policy,
		logger: log.WithFields(map[string]interface{}{"analyzer": Name}),
	}
}

func (a *Analyzer) Name() string { return Name }

func (a *Analyzer) Analyze(ctx context.Context, in analyzers.FinancialInput) (models.FinancialSummary, error) {
	app := in.Application
	if app == nil {
		return models.FinancialSummary{}, analyzers.Failf(Name, "application is missing")
	}
	emp := app.Employment

	stability := stabilityScore(emp)
	summary := models.FinancialSummary{
		TotalMonthlyIncome:   app.TotalMonthlyIncome(),
		IncomeStabilityScore: stability,
		IncomeSources:        incomeSources(emp),
		EmploymentStability:  employmentStability(stability),
		IncomeTrend:          incomeTrend(emp),
		VerificationStatus:   "unverified",
		RedFlags:             a.redFlags(app),
		DataQualityScore:     dataQuality(app),
	}
	if emp.IncomeVerified {
		summary.VerificationStatus = "verified"
	}

	a.logger.Debug("financial summary collected", map[string]interface{}{
		"correlationId":  in.CorrelationID,
		"stabilityScore": summary.IncomeStabilityScore,
		"redFlags":       len(summary.RedFlags),
	})
	return analyzers.CheckOutput(Name, validation.SchemaFinancialSummary, summary)
}

// tenureScore grades time with the current employer.
func tenureScore(years float64) float64 {
	switch {
	case years > 5:
		return 95
	case years >= 2:
		return 80
	case years >= 1:
		return 60
	default:
		return 40
	}
}

func stabilityScore(emp models.EmploymentInfo) float64 {
	var score float64
	switch emp.EmploymentType {
	case models.EmploymentEmployed:
		score = tenureScore(emp.YearsEmployed)
	case models.EmploymentSelfEmployed, models.EmploymentContractor:
		score = min(tenureScore(emp.YearsEmployed)-15, 80)
	case models.EmploymentRetired:
		score = 70
	case models.EmploymentStudent:
		score = 25
	default:
		score = 15
	}
	if emp.IncomeVerified {
		score += 5
	} else {
		score -= 10
	}
	return finance.Clamp(score, 0, 100)
}

func employmentStability(score float64) string {
	switch {
	case score >= 70:
		return "stable"
	case score >= 50:
		return "moderate"
	default:
		return "unstable"
	}
}

func incomeSources(emp models.EmploymentInfo) []string {
	var primary string
	switch emp.EmploymentType {
	case models.EmploymentEmployed:
		primary = "salary"
	case models.EmploymentSelfEmployed:
		primary = "business_income"
	case models.EmploymentContractor:
		primary = "contract_income"
	case models.EmploymentRetired:
		primary = "pension"
	case models.EmploymentStudent:
		primary = "stipend"
	default:
		primary = "benefits"
	}
	sources := []string{primary}
	if emp.AdditionalIncome > 0 {
		src := emp.AdditionalIncomeSrc
		if src == "" {
			src = "additional_income"
		}
		sources = append(sources, src)
	}
	return sources
}

func incomeTrend(emp models.EmploymentInfo) models.IncomeTrend {
	switch {
	case emp.EmploymentType == models.EmploymentUnemployed:
		return models.TrendDecreasing
	case emp.YearsEmployed < 1 && !emp.IncomeVerified:
		return models.TrendDecreasing
	case emp.AdditionalIncome > 0 && emp.YearsEmployed >= 2:
		return models.TrendIncreasing
	default:
		return models.TrendStable
	}
}

func (a *Analyzer) redFlags(app *models.LoanApplication) []string {
	emp := app.Employment
	var flags []string

	if emp.MonthlyGrossIncome > 0 && emp.MonthlyNetIncome/emp.MonthlyGrossIncome < a.config.MinNetToGrossRatio {
		flags = append(flags, fmt.Sprintf("Net income is only %.0f%% of gross income",
			emp.MonthlyNetIncome/emp.MonthlyGrossIncome*100))
	}
	if n := app.CreditHistory.RecentInquiries; n > a.config.MaxRecentInquiries {
		flags = append(flags, fmt.Sprintf("%d credit inquiries in the last 12 months", n))
	}
	if emp.YearsEmployed > emp.YearsInProfession && emp.YearsInProfession > 0 {
		flags = append(flags, "Years with employer exceed years in profession")
	}
	if !emp.IncomeVerified {
		flags = append(flags, "Income not verified")
	}
	if emp.EmploymentType == models.EmploymentUnemployed {
		flags = append(flags, "Applicant is currently unemployed")
	}
	return flags
}

// dataQuality starts from 10 and loses a point per missing supporting field.
func dataQuality(app *models.LoanApplication) int {
	score := 10
	emp := app.Employment
	if emp.EmploymentType == models.EmploymentEmployed || emp.EmploymentType == models.EmploymentContractor {
		if emp.EmployerName == "" {
			score--
		}
		if emp.JobTitle == "" {
			score--
		}
	}
	if !emp.IncomeVerified {
		score -= 2
	}
	if app.CreditHistory.CreditScoreSource == "" {
		score--
	}
	if app.Applicant.Email == "" && app.Applicant.Phone == "" {
		score--
	}
	if app.HasCollateral() {
		if app.Collateral.ValuationSource == "" {
			score--
		}
		if app.Collateral.ValuationDate.IsZero() {
			score--
		}
	}
	if emp.AdditionalIncome > 0 && emp.AdditionalIncomeSrc == "" {
		score--
	}
	return int(finance.Clamp(float64(score), 1, 10))
}
