// Package debtanalyzer computes current and projected debt ratios for the
// requested loan.
package debtanalyzer

import (
	"context"
	"fmt"
	"strings"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/validation"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

const Name = analyzers.DebtAnalyzer

// maxReportedDTI keeps pathological ratios within the output schema.
const maxReportedDTI = 10

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

func (a *Analyzer) Analyze(ctx context.Context, in analyzers.DebtInput) (models.DebtAnalysis, error) {
	app := in.Application
	if app == nil || in.Financial == nil || in.Income == nil {
		return models.DebtAnalysis{}, analyzers.Failf(Name, "financial summary and income analysis are required")
	}
	// DTI is taken against gross employment income; additional income only
	// counts toward debt service coverage.
	gross := app.Employment.MonthlyGrossIncome
	if gross <= 0 {
		return models.DebtAnalysis{}, analyzers.Failf(Name, "gross monthly income must be positive to compute debt ratios")
	}

	existing := app.TotalMonthlyDebtPayments()
	newPayment := in.EstimatedPayment

	dti := finance.DTI(existing, 0, gross)
	projected := finance.DTI(existing, newPayment, gross)

	noi := app.Employment.MonthlyNetIncome + app.Employment.AdditionalIncome
	dscr := finance.DSCR(noi, existing+newPayment)
	if dscr > a.policy.DSCR.ReportCap {
		dscr = a.policy.DSCR.ReportCap
	}

	var revolvingBalance, revolvingLimit float64
	for _, d := range app.ExistingDebts {
		if d.IsRevolving() {
			revolvingBalance += d.CurrentBalance
			revolvingLimit += d.OriginalAmount
		}
	}
	utilization := finance.Clamp(finance.Utilization(revolvingBalance, revolvingLimit), 0, 100)

	analysis := models.DebtAnalysis{
		TotalExistingDebt:          finance.RoundCurrency(app.TotalExistingDebt()),
		TotalMonthlyDebtPayments:   finance.RoundCurrency(existing),
		DebtToIncomeRatio:          finance.RoundTo(finance.Clamp(dti, 0, maxReportedDTI), 4),
		ProjectedDTI:               finance.RoundTo(finance.Clamp(projected, 0, maxReportedDTI), 4),
		DebtServiceCoverageRatio:   finance.RoundTo(dscr, 2),
		CreditUtilization:          finance.RoundTo(utilization, 1),
		PaymentShockRisk:           a.policy.PaymentShock(existing, newPayment, gross),
		ConsolidationBenefit:       a.consolidationBenefit(app, in.QuoteRate),
		EstimatedNewMonthlyPayment: finance.RoundCurrency(newPayment),
	}
	analysis.DebtStructureAssessment = a.structure(app, projected, dscr, utilization)
	analysis.RedFlags = a.redFlags(app, projected, dscr, utilization)

	a.logger.Debug("debt analyzed", map[string]interface{}{
		"correlationId": in.CorrelationID,
		"projectedDti":  analysis.ProjectedDTI,
		"dscr":          analysis.DebtServiceCoverageRatio,
	})
	return analyzers.CheckOutput(Name, validation.SchemaDebtAnalysis, analysis)
}

func (a *Analyzer) structure(app *models.LoanApplication, projected, dscr, utilization float64) string {
	parts := []string{
		fmt.Sprintf("projected DTI %.2f%% (%s)", projected*100, a.policy.ClassifyDTI(projected)),
		fmt.Sprintf("DSCR %.2f (%s)", dscr, a.policy.ClassifyDSCR(dscr)),
		fmt.Sprintf("revolving utilization %.1f%% (%s)", utilization, a.policy.ClassifyUtilization(utilization)),
	}
	if total := app.TotalExistingDebt(); total > 0 {
		var secured float64
		for _, d := range app.ExistingDebts {
			if d.IsSecured {
				secured += d.CurrentBalance
			}
		}
		parts = append(parts, fmt.Sprintf("%.0f%% of balances secured", secured/total*100))
	} else {
		parts = append(parts, "no existing debt")
	}
	return strings.Join(parts, "; ")
}

func (a *Analyzer) redFlags(app *models.LoanApplication, projected, dscr, utilization float64) []string {
	var flags []string
	switch a.policy.ClassifyDTI(projected) {
	case finance.DTIDecline:
		flags = append(flags, fmt.Sprintf("Projected DTI %.1f%% exceeds the %.0f%% limit",
			projected*100, a.policy.DTI.Decline*100))
	case finance.DTIConcerning:
		flags = append(flags, fmt.Sprintf("Projected DTI %.1f%% is above %.0f%%",
			projected*100, a.policy.DTI.Acceptable*100))
	}
	if a.policy.ClassifyDSCR(dscr) == finance.DSCRInsufficient {
		flags = append(flags, fmt.Sprintf("Debt service coverage %.2f is below %.2f", dscr, a.policy.DSCR.Minimum))
	}
	if c := a.policy.ClassifyUtilization(utilization); c == finance.UtilizationHigh || c == finance.UtilizationMaxed {
		flags = append(flags, fmt.Sprintf("Revolving utilization is %s at %.1f%%", c, utilization))
	}
	for _, d := range app.ExistingDebts {
		if d.PaymentHistory == models.PaymentHistoryPoor {
			flags = append(flags, fmt.Sprintf("Poor payment history with %s", d.Creditor))
		}
	}
	if n := len(app.ExistingDebts); n > a.config.MaxOpenDebts {
		flags = append(flags, fmt.Sprintf("%d open debts", n))
	}
	return flags
}

// consolidationBenefit compares the balance-weighted rate of existing debt
// with the quote rate.
func (a *Analyzer) consolidationBenefit(app *models.LoanApplication, quoteRate float64) string {
	var balance, weighted float64
	for _, d := range app.ExistingDebts {
		balance += d.CurrentBalance
		weighted += d.CurrentBalance * d.InterestRate
	}
	if balance <= 0 {
		return ""
	}
	avg := weighted / balance
	quote := quoteRate * 100
	switch {
	case app.LoanRequest.Purpose == models.PurposeDebtConsolidation && avg > quote:
		return fmt.Sprintf("Consolidating %d debts lowers the weighted rate from %.2f%% to about %.2f%%",
			len(app.ExistingDebts), avg, quote)
	case avg-quote > a.config.ConsolidationSpread:
		return fmt.Sprintf("Existing debt averages %.2f%%; consolidation could save interest", avg)
	default:
		return ""
	}
}
