// Package decisionwriter applies the credit decision matrix and prices the
// loan terms for approvals.
package decisionwriter

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

const Name = analyzers.DecisionWriter

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

func (a *Analyzer) Analyze(ctx context.Context, in analyzers.DecisionInput) (models.CreditDecision, error) {
	app := in.Application
	if app == nil || in.Financial == nil || in.Income == nil || in.Debt == nil || in.Collateral == nil || in.Risk == nil {
		return models.CreditDecision{}, analyzers.Failf(Name, "all prior stage outputs are required")
	}

	decision := a.decide(in)
	decision.DecisionDate = in.Now.UTC()
	decision.ValidityDays = a.policy.Decision.ValidityDays
	decision.NextSteps = a.nextSteps(decision)

	a.logger.Info("credit decision written", map[string]interface{}{
		"correlationId": in.CorrelationID,
		"decision":      decision.Decision,
		"confidence":    decision.Confidence,
	})
	return analyzers.CheckOutput(Name, validation.SchemaCreditDecision, decision)
}

func (a *Analyzer) decide(in analyzers.DecisionInput) models.CreditDecision {
	if reasons := a.declineReasons(in); len(reasons) > 0 {
		return models.CreditDecision{
			Decision:       models.DecisionDeclined,
			Confidence:     math.Min(95, 65+10*float64(len(reasons)-1)),
			DeclineReasons: reasons,
		}
	}

	risk := in.Risk
	level := risk.RiskLevel
	score := in.Application.CreditHistory.CreditScore
	dti := in.Debt.ProjectedDTI
	triggers := a.reviewTriggers(in)

	approvable := level.Ordinal() <= models.RiskLow.Ordinal() &&
		dti < a.policy.DTI.Good &&
		score >= a.policy.CreditTiers.Good &&
		a.ltvWithinTarget(in) &&
		in.Income.StressTestPassed
	conditional := level.Ordinal() <= models.RiskMedium.Ordinal() &&
		dti <= a.policy.DTI.Acceptable &&
		score >= a.policy.CreditTiers.Fair

	if len(triggers) > 0 || !conditional {
		return a.manualReview(in, triggers)
	}

	rate, ok := a.policy.QuoteRate(score, level)
	if !ok {
		return a.manualReview(in, []string{"No pricing tier for the credit score"})
	}

	req := in.Application.LoanRequest
	amount := req.RequestedAmount
	terms := finance.BuildLoanTerms(amount, req.RequestedTermMonths, rate, a.policy.Pricing.OriginationFeeRate)
	var conditions []string

	if terms.MonthlyPayment > in.Income.MaxAffordablePayment {
		reduced := a.affordableAmount(in.Income.MaxAffordablePayment, req.RequestedTermMonths, rate)
		if reduced < amount*a.config.MinReducedShare {
			return a.manualReview(in, []string{fmt.Sprintf(
				"Affordable amount %.2f is far below the requested %.2f", reduced, amount)})
		}
		amount = reduced
		terms = finance.BuildLoanTerms(amount, req.RequestedTermMonths, rate, a.policy.Pricing.OriginationFeeRate)
		conditions = append(conditions, fmt.Sprintf(
			"Approved amount reduced to %.2f to keep the payment within %.2f per month",
			amount, in.Income.MaxAffordablePayment))
		approvable = false
	}

	if approvable {
		return models.CreditDecision{
			Decision:   models.DecisionApproved,
			Confidence: finance.Clamp(100-0.5*float64(risk.RiskScore), 81, 98),
			LoanTerms:  &terms,
		}
	}

	conditions = append(conditions, a.conditions(in)...)
	if len(conditions) == 0 {
		conditions = append(conditions, "Standard documentation review before disbursement")
	}
	return models.CreditDecision{
		Decision:   models.DecisionApprovedWithConditions,
		Confidence: finance.Clamp(80-0.4*float64(risk.RiskScore), 60, 80),
		LoanTerms:  &terms,
		Conditions: conditions,
	}
}

func (a *Analyzer) declineReasons(in analyzers.DecisionInput) []string {
	ch := in.Application.CreditHistory
	var reasons []string
	if in.Risk.RiskLevel.Ordinal() >= models.RiskHigh.Ordinal() {
		reasons = append(reasons, fmt.Sprintf("Risk level %s (score %d)", in.Risk.RiskLevel, in.Risk.RiskScore))
	}
	if in.Debt.ProjectedDTI > a.policy.DTI.Decline {
		reasons = append(reasons, fmt.Sprintf("Projected DTI %.1f%% exceeds the %.0f%% maximum",
			in.Debt.ProjectedDTI*100, a.policy.DTI.Decline*100))
	}
	if ch.CreditScore < a.policy.CreditTiers.Subprime {
		reasons = append(reasons, fmt.Sprintf("Credit score %d is below the %d minimum",
			ch.CreditScore, a.policy.CreditTiers.Subprime))
	}
	if ch.Bankruptcies > 0 {
		reasons = append(reasons, "Bankruptcy on record")
	}
	if ch.Foreclosures > 0 {
		reasons = append(reasons, "Foreclosure on record")
	}
	return reasons
}

func (a *Analyzer) reviewTriggers(in analyzers.DecisionInput) []string {
	var triggers []string
	if n := in.Application.CreditHistory.RecentInquiries; n > a.policy.Decision.MaxRecentInquiries {
		triggers = append(triggers, fmt.Sprintf("%d recent credit inquiries", n))
	}
	if in.Financial.DataQualityScore < a.config.MinDataQuality {
		triggers = append(triggers, fmt.Sprintf("Data quality score %d is too low for automated decision", in.Financial.DataQualityScore))
	}
	if in.Collateral.CollateralPresent && in.Collateral.ValuationConfidence == models.GradeLow {
		triggers = append(triggers, "Collateral valuation needs confirmation")
	}
	return triggers
}

// ltvWithinTarget only applies to pledged collateral or purposes that
// policy expects to be secured.
func (a *Analyzer) ltvWithinTarget(in analyzers.DecisionInput) bool {
	purpose := in.Application.LoanRequest.Purpose
	_, securedPurpose := a.policy.LTVTargets[purpose]
	if !in.Collateral.CollateralPresent && !securedPurpose {
		return true
	}
	return in.Collateral.LoanToValueRatio <= a.policy.LTVTarget(purpose)
}

func (a *Analyzer) affordableAmount(maxPayment float64, termMonths int, ratePct float64) float64 {
	principal := finance.PrincipalForPayment(maxPayment, termMonths, ratePct/100)
	return math.Floor(principal/a.config.AmountStep) * a.config.AmountStep
}

func (a *Analyzer) conditions(in analyzers.DecisionInput) []string {
	var conds []string
	purpose := in.Application.LoanRequest.Purpose
	if !a.ltvWithinTarget(in) {
		conds = append(conds, fmt.Sprintf("Additional collateral to bring LTV to %.0f%% or below", a.policy.LTVTarget(purpose)))
	}
	if !in.Application.Employment.IncomeVerified {
		conds = append(conds, "Income verification before disbursement")
	}
	if in.Debt.ProjectedDTI >= a.policy.DTI.Good {
		conds = append(conds, "No new credit obligations before disbursement")
	}
	if !in.Income.StressTestPassed {
		conds = append(conds, "Payment protection insurance")
	}
	if in.Risk.RiskLevel == models.RiskMedium {
		conds = append(conds, "Guarantor or co-signer")
	}
	return conds
}

func (a *Analyzer) manualReview(in analyzers.DecisionInput, reasons []string) models.CreditDecision {
	if len(reasons) == 0 {
		ch := in.Application.CreditHistory
		if in.Risk.RiskLevel.Ordinal() > models.RiskMedium.Ordinal() {
			reasons = append(reasons, fmt.Sprintf("Risk level %s", in.Risk.RiskLevel))
		}
		if in.Debt.ProjectedDTI > a.policy.DTI.Acceptable {
			reasons = append(reasons, fmt.Sprintf("Projected DTI %.1f%% is above %.0f%%",
				in.Debt.ProjectedDTI*100, a.policy.DTI.Acceptable*100))
		}
		if ch.CreditScore < a.policy.CreditTiers.Fair {
			reasons = append(reasons, fmt.Sprintf("Credit score %d is below %d", ch.CreditScore, a.policy.CreditTiers.Fair))
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "Application falls outside automated approval criteria")
		}
	}
	return models.CreditDecision{
		Decision:            models.DecisionManualReview,
		Confidence:          finance.Clamp(60-0.25*float64(in.Risk.RiskScore), 40, 60),
		ManualReviewReasons: reasons,
	}
}

func (a *Analyzer) nextSteps(d models.CreditDecision) []string {
	validity := fmt.Sprintf("Sign the loan agreement within %d days", a.policy.Decision.ValidityDays)
	switch d.Decision {
	case models.DecisionApproved:
		return []string{validity, "Provide bank details for disbursement"}
	case models.DecisionApprovedWithConditions:
		return []string{"Satisfy the listed conditions", validity}
	case models.DecisionManualReview:
		return []string{
			fmt.Sprintf("An underwriter will review the application within %d business days", a.config.ReviewSLABusiness),
			"Prepare recent payslips and bank statements",
		}
	default:
		return []string{
			"Request a copy of the credit report used in this decision",
			"Reapply once the decline reasons are addressed",
		}
	}
}
