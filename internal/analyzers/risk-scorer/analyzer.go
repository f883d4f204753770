// Package riskscorer combines the earlier stage outputs into a weighted risk
// score, a risk level and expected-loss figures.
package riskscorer

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

const Name = analyzers.RiskScorer

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

func (a *Analyzer) Analyze(ctx context.Context, in analyzers.RiskInput) (models.RiskAssessment, error) {
	app := in.Application
	if app == nil || in.Financial == nil || in.Income == nil || in.Debt == nil || in.Collateral == nil {
		return models.RiskAssessment{}, analyzers.Failf(Name, "all prior stage outputs are required")
	}

	breakdown := models.RiskBreakdown{
		CreditHistory:   finance.CreditHistoryScore(app.CreditHistory),
		IncomeStability: a.incomeStability(in.Financial),
		DebtBurden:      a.policy.DebtBurdenScore(in.Debt.ProjectedDTI),
		Collateral:      a.policy.CollateralScore(in.Collateral.LoanToValueRatio, in.Collateral.CollateralPresent),
		Employment:      employmentScore(app.Employment),
	}
	riskScore := finance.RiskScoreFromQuality(a.policy.Weights.Score(breakdown))
	level := a.policy.BandRiskLevel(float64(riskScore))

	pd := a.policy.ProbabilityOfDefault(float64(riskScore))
	lgd := a.policy.LossGivenDefault(in.Collateral.CollateralQuality)
	basel := a.policy.BaselRiskWeight(app.LoanRequest.Purpose, in.Collateral.LoanToValueRatio, level)

	assessment := models.RiskAssessment{
		RiskLevel:            level,
		RiskScore:            riskScore,
		ProbabilityOfDefault: finance.RoundTo(pd, 2),
		LossGivenDefault:     finance.RoundTo(lgd, 2),
		ExpectedLoss:         finance.RoundCurrency(finance.ExpectedLoss(pd/100, lgd/100, app.LoanRequest.RequestedAmount)),
		RiskBreakdown:        roundBreakdown(breakdown),
		RiskFactors:          a.riskFactors(in),
		MitigatingFactors:    a.mitigatingFactors(in),
		RegulatoryFlags:      a.regulatoryFlags(in, basel),
		BaselRiskWeight:      basel,
	}

	a.logger.Debug("risk scored", map[string]interface{}{
		"correlationId": in.CorrelationID,
		"riskScore":     riskScore,
		"riskLevel":     level,
	})
	return analyzers.CheckOutput(Name, validation.SchemaRiskAssessment, assessment)
}

func (a *Analyzer) incomeStability(fs *models.FinancialSummary) float64 {
	score := fs.IncomeStabilityScore
	switch fs.IncomeTrend {
	case models.TrendIncreasing:
		score += a.config.TrendBonus
	case models.TrendDecreasing:
		score -= a.config.TrendPenalty
	}
	return finance.Clamp(score, 0, 100)
}

func employmentScore(emp models.EmploymentInfo) float64 {
	switch emp.EmploymentType {
	case models.EmploymentEmployed:
		return math.Min(100, 60+8*emp.YearsEmployed)
	case models.EmploymentSelfEmployed, models.EmploymentContractor:
		return math.Min(90, 45+7*emp.YearsEmployed)
	case models.EmploymentRetired:
		return 70
	case models.EmploymentStudent:
		return 30
	default:
		return 10
	}
}

func roundBreakdown(b models.RiskBreakdown) models.RiskBreakdown {
	return models.RiskBreakdown{
		CreditHistory:   finance.RoundTo(b.CreditHistory, 2),
		IncomeStability: finance.RoundTo(b.IncomeStability, 2),
		DebtBurden:      finance.RoundTo(b.DebtBurden, 2),
		Collateral:      finance.RoundTo(b.Collateral, 2),
		Employment:      finance.RoundTo(b.Employment, 2),
	}
}

func (a *Analyzer) riskFactors(in analyzers.RiskInput) []string {
	app := in.Application
	ch := app.CreditHistory
	var factors []string

	if ch.CreditScore < a.policy.CreditTiers.Fair {
		factors = append(factors, fmt.Sprintf("Credit score %d is below %d", ch.CreditScore, a.policy.CreditTiers.Fair))
	}
	if n := ch.Delinquencies30Days + ch.Delinquencies60Days + ch.Delinquencies90Days; n > 0 {
		factors = append(factors, fmt.Sprintf("%d delinquencies on record", n))
	}
	if ch.Collections > 0 {
		factors = append(factors, fmt.Sprintf("%d accounts in collections", ch.Collections))
	}
	if in.Debt.ProjectedDTI >= a.policy.DTI.Good {
		factors = append(factors, fmt.Sprintf("Projected DTI %.1f%%", in.Debt.ProjectedDTI*100))
	}
	if in.Debt.CreditUtilization >= a.policy.Utilization.Elevated {
		factors = append(factors, fmt.Sprintf("Revolving utilization %.1f%%", in.Debt.CreditUtilization))
	}
	if ch.RecentInquiries > a.policy.Decision.MaxRecentInquiries {
		factors = append(factors, fmt.Sprintf("%d recent credit inquiries", ch.RecentInquiries))
	}
	if !in.Collateral.CollateralPresent {
		factors = append(factors, "Unsecured loan")
	}
	if in.Financial.EmploymentStability == "unstable" {
		factors = append(factors, "Unstable employment")
	}
	if !in.Income.StressTestPassed {
		factors = append(factors, "Fails income stress test")
	}
	if in.Debt.PaymentShockRisk == models.GradeHigh {
		factors = append(factors, "High payment shock")
	}
	factors = append(factors, in.Financial.RedFlags...)
	return factors
}

func (a *Analyzer) mitigatingFactors(in analyzers.RiskInput) []string {
	app := in.Application
	var factors []string

	if app.CreditHistory.CreditScore >= a.policy.CreditTiers.Excellent {
		factors = append(factors, fmt.Sprintf("Excellent credit score (%d)", app.CreditHistory.CreditScore))
	}
	if app.Employment.YearsEmployed > 5 {
		factors = append(factors, fmt.Sprintf("%.0f years with current employer", app.Employment.YearsEmployed))
	}
	if app.Employment.IncomeVerified {
		factors = append(factors, "Verified income")
	}
	if a.policy.ClassifyDTI(in.Debt.ProjectedDTI) == finance.DTIGood {
		factors = append(factors, "Low projected DTI")
	}
	if q := in.Collateral.CollateralQuality; q == models.QualityExcellent || q == models.QualityGood {
		factors = append(factors, fmt.Sprintf("%s collateral coverage", q))
	}
	if in.Income.StressTestPassed {
		factors = append(factors, "Passes income stress test")
	}
	if a.policy.ClassifyDSCR(in.Debt.DebtServiceCoverageRatio) == finance.DSCRComfortable {
		factors = append(factors, "Comfortable debt service coverage")
	}
	return factors
}

func (a *Analyzer) regulatoryFlags(in analyzers.RiskInput, basel float64) []string {
	app := in.Application
	var flags []string
	if app.LoanRequest.Purpose == models.PurposeMortgage && in.Debt.ProjectedDTI > a.policy.DTI.Acceptable {
		flags = append(flags, fmt.Sprintf("Mortgage DTI above the %.0f%% qualified limit", a.policy.DTI.Acceptable*100))
	}
	if app.CreditHistory.Bankruptcies > 0 {
		flags = append(flags, "Bankruptcy on file")
	}
	if app.CreditHistory.Foreclosures > 0 {
		flags = append(flags, "Foreclosure on file")
	}
	if !app.Employment.IncomeVerified {
		flags = append(flags, "Income documentation outstanding")
	}
	if basel >= a.policy.Basel.HighRisk {
		flags = append(flags, fmt.Sprintf("High-risk exposure at %.0f%% risk weight", basel))
	}
	return flags
}
