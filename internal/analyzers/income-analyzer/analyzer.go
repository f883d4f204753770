// Package incomeanalyzer measures how much debt service the applicant's
// income can carry, today and under stress.
package incomeanalyzer

import (
	"context"
	"fmt"
	"math"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/validation"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

const Name = analyzers.IncomeAnalyzer

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

func (a *Analyzer) Analyze(ctx context.Context, in analyzers.IncomeInput) (models.IncomeAnalysis, error) {
	app := in.Application
	if app == nil || in.Financial == nil {
		return models.IncomeAnalysis{}, analyzers.Failf(Name, "financial summary is required")
	}
	emp := app.Employment
	ip := a.policy.Income

	grossMonthly := app.TotalMonthlyIncome()
	netMonthly := emp.MonthlyNetIncome + emp.AdditionalIncome
	existing := app.TotalMonthlyDebtPayments()
	essential := emp.MonthlyNetIncome * ip.EssentialExpenseShare

	expenses := essential + existing
	ratio := 0.0
	if expenses > 0 {
		ratio = netMonthly / expenses
	}
	disposable := netMonthly - essential - existing
	capacity := grossMonthly*a.policy.DTI.Acceptable - existing
	maxAffordable := math.Max(0, math.Min(capacity, disposable))

	passed, stressResult := a.stressTest(app, grossMonthly, existing, in.QuoteRate)

	analysis := models.IncomeAnalysis{
		GrossAnnualIncome:       finance.RoundCurrency(grossMonthly * 12),
		NetAnnualIncome:         finance.RoundCurrency(netMonthly * 12),
		IncomeToExpenseRatio:    finance.RoundTo(ratio, 2),
		DisposableIncomeMonthly: finance.RoundCurrency(disposable),
		IncomeSustainability:    sustainability(in.Financial),
		IncomeDiversification:   a.diversification(emp.AdditionalIncome, grossMonthly),
		StressTestResult:        stressResult,
		StressTestPassed:        passed,
		MaxAffordablePayment:    finance.RoundCurrency(maxAffordable),
	}
	if !in.FastMode {
		analysis.AnalysisNotes = a.notes(app, analysis, in.EstimatedPayment)
	}

	a.logger.Debug("income analyzed", map[string]interface{}{
		"correlationId":        in.CorrelationID,
		"maxAffordablePayment": analysis.MaxAffordablePayment,
		"stressTestPassed":     passed,
	})
	return analyzers.CheckOutput(Name, validation.SchemaIncomeAnalysis, analysis)
}

// stressTest reprices the requested loan at the shocked rate and checks the
// resulting debt service against capacity on the reduced income.
func (a *Analyzer) stressTest(app *models.LoanApplication, grossMonthly, existing, quoteRate float64) (bool, string) {
	ip := a.policy.Income
	req := app.LoanRequest

	stressedIncome := grossMonthly * (1 - ip.StressIncomeDrop)
	stressedCapacity := stressedIncome * a.policy.DTI.Acceptable
	stressedPayment := finance.AmortizedPayment(req.RequestedAmount, req.RequestedTermMonths, quoteRate+ip.StressRateShock)
	service := existing + stressedPayment

	verdict := "passed"
	if service > stressedCapacity {
		verdict = "failed"
	}
	return verdict == "passed", fmt.Sprintf(
		"%s: debt service %.2f against stressed capacity %.2f (income -%.0f%%, rate +%.2fpp)",
		verdict, service, stressedCapacity, ip.StressIncomeDrop*100, ip.StressRateShock*100)
}

func sustainability(fs *models.FinancialSummary) models.Grade {
	score := fs.IncomeStabilityScore
	if fs.IncomeTrend == models.TrendDecreasing {
		score -= 20
	}
	switch {
	case score >= 75:
		return models.GradeHigh
	case score >= 50:
		return models.GradeMedium
	default:
		return models.GradeLow
	}
}

func (a *Analyzer) diversification(additional, total float64) float64 {
	if total <= 0 {
		return 0
	}
	share := additional / total
	return finance.RoundTo(finance.Clamp(a.config.DiversificationBase+share*160, 0, 100), 1)
}

func (a *Analyzer) notes(app *models.LoanApplication, analysis models.IncomeAnalysis, estimatedPayment float64) []string {
	var notes []string
	housing := app.Employment.MonthlyGrossIncome * a.policy.Income.HousingShare
	if app.LoanRequest.Purpose == models.PurposeMortgage && estimatedPayment > housing {
		notes = append(notes, fmt.Sprintf("Estimated housing payment %.2f exceeds %.0f%% of gross income (%.2f)",
			estimatedPayment, a.policy.Income.HousingShare*100, housing))
	}
	if estimatedPayment > analysis.MaxAffordablePayment {
		notes = append(notes, fmt.Sprintf("Estimated payment %.2f exceeds the maximum affordable payment %.2f",
			estimatedPayment, analysis.MaxAffordablePayment))
	}
	if analysis.DisposableIncomeMonthly < 0 {
		notes = append(notes, "Essential expenses and existing debt exceed net income")
	}
	if analysis.IncomeDiversification <= a.config.DiversificationBase {
		notes = append(notes, "Single income source")
	}
	if !analysis.StressTestPassed {
		notes = append(notes, "Debt service does not survive a 20% income drop with a rate shock")
	}
	return notes
}
