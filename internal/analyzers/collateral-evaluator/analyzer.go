// Package collateralevaluator values pledged collateral against the
// requested amount.
package collateralevaluator

import (
	"context"
	"fmt"
	"math"
	"time"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/validation"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

const Name = analyzers.CollateralEvaluator

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

func (a *Analyzer) Analyze(ctx context.Context, in analyzers.CollateralInput) (models.CollateralEvaluation, error) {
	app := in.Application
	if app == nil || in.Debt == nil {
		return models.CollateralEvaluation{}, analyzers.Failf(Name, "debt analysis is required")
	}

	var eval models.CollateralEvaluation
	if app.HasCollateral() {
		eval = a.evaluateSecured(app, in.Now, in.FastMode)
	} else {
		eval = a.evaluateUnsecured(app)
	}

	a.logger.Debug("collateral evaluated", map[string]interface{}{
		"correlationId": in.CorrelationID,
		"present":       eval.CollateralPresent,
		"ltv":           eval.LoanToValueRatio,
		"quality":       eval.CollateralQuality,
	})
	return analyzers.CheckOutput(Name, validation.SchemaCollateralEvaluation, eval)
}

func (a *Analyzer) evaluateUnsecured(app *models.LoanApplication) models.CollateralEvaluation {
	eval := models.CollateralEvaluation{
		CollateralType:      models.CollateralNone,
		LoanToValueRatio:    100,
		CollateralQuality:   models.QualityNone,
		ValuationConfidence: models.GradeLow,
		CollateralRisks:     []string{"Unsecured exposure"},
	}
	purpose := app.LoanRequest.Purpose
	if _, secured := a.policy.LTVTargets[purpose]; secured {
		eval.Recommendations = append(eval.Recommendations,
			fmt.Sprintf("Take a lien on the financed asset for this %s loan", purpose))
	} else if app.LoanRequest.RequestedAmount > app.Employment.MonthlyGrossIncome*a.config.UnsecuredIncomeMultiple {
		eval.Recommendations = append(eval.Recommendations,
			"Consider pledged savings or a guarantor to reduce loss given default")
	}
	return eval
}

func (a *Analyzer) evaluateSecured(app *models.LoanApplication, now time.Time, fast bool) models.CollateralEvaluation {
	c := app.Collateral
	amount := app.LoanRequest.RequestedAmount
	net := c.NetValue()

	ltv := math.Min(finance.LTV(amount, net), a.config.MaxReportedLTV)
	liquidation := math.Max(0, net*(1-a.policy.Haircut(c.CollateralType)))
	target := a.policy.LTVTarget(app.LoanRequest.Purpose)
	confidence := a.confidence(c, now)

	eval := models.CollateralEvaluation{
		CollateralPresent:   true,
		CollateralType:      c.CollateralType,
		CollateralValue:     finance.RoundCurrency(math.Max(0, net)),
		LoanToValueRatio:    finance.RoundTo(ltv, 2),
		CollateralQuality:   quality(ltv, confidence),
		LiquidationValue:    finance.RoundCurrency(liquidation),
		CoverageRatio:       finance.RoundTo(liquidation/amount, 2),
		ValuationConfidence: confidence,
	}

	if ltv > target {
		eval.CollateralRisks = append(eval.CollateralRisks,
			fmt.Sprintf("LTV %.1f%% exceeds the %.0f%% target for %s loans", ltv, target, app.LoanRequest.Purpose))
		eval.Recommendations = append(eval.Recommendations,
			fmt.Sprintf("Reduce the amount to %.2f or add collateral to reach %.0f%% LTV",
				finance.RoundCurrency(math.Max(0, net)*target/100), target))
	}
	if c.Encumbrances > 0 {
		eval.CollateralRisks = append(eval.CollateralRisks,
			fmt.Sprintf("Existing liens of %.2f reduce available equity", c.Encumbrances))
	}
	if confidence == models.GradeLow {
		eval.CollateralRisks = append(eval.CollateralRisks, "Valuation is stale or unsourced")
		eval.Recommendations = append(eval.Recommendations, "Order an independent valuation")
	}
	if c.CollateralType == models.CollateralBusinessAssets {
		eval.CollateralRisks = append(eval.CollateralRisks, "Business assets are illiquid")
	}
	insurable := c.CollateralType == models.CollateralRealEstate || c.CollateralType == models.CollateralVehicle
	if insurable && c.InsuranceCoverage < c.EstimatedValue {
		eval.CollateralRisks = append(eval.CollateralRisks,
			fmt.Sprintf("Insurance covers %.0f%% of the estimated value", c.InsuranceCoverage/c.EstimatedValue*100))
		if !fast {
			eval.Recommendations = append(eval.Recommendations, "Require insurance at full replacement value")
		}
	}
	return eval
}

// confidence grades the valuation by age, dropping one grade when the
// source is unknown.
func (a *Analyzer) confidence(c *models.CollateralInfo, now time.Time) models.Grade {
	if c.ValuationDate.IsZero() {
		return models.GradeLow
	}
	months := monthsBetween(c.ValuationDate.Time, now)
	var grade models.Grade
	switch {
	case months <= a.config.FreshValuationMonths:
		grade = models.GradeHigh
	case months <= a.config.StaleValuationMonths:
		grade = models.GradeMedium
	default:
		grade = models.GradeLow
	}
	if c.ValuationSource == "" {
		grade = downgradeConfidence(grade)
	}
	return grade
}

func downgradeConfidence(g models.Grade) models.Grade {
	if g == models.GradeHigh {
		return models.GradeMedium
	}
	return models.GradeLow
}

func monthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}

// quality bands LTV on the same lower-closed segments as the collateral
// score; low valuation confidence costs one grade.
func quality(ltv float64, confidence models.Grade) models.CollateralQuality {
	var q models.CollateralQuality
	switch {
	case ltv < 60:
		q = models.QualityExcellent
	case ltv < 80:
		q = models.QualityGood
	case ltv <= 100:
		q = models.QualityFair
	default:
		q = models.QualityPoor
	}
	if confidence != models.GradeLow {
		return q
	}
	switch q {
	case models.QualityExcellent:
		return models.QualityGood
	case models.QualityGood:
		return models.QualityFair
	default:
		return models.QualityPoor
	}
}
