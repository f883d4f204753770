package finance

import (
	"math"

	"credit-assessment/internal/models"
)

const (
	TierExcellent = "excellent"
	TierGood      = "good"
	TierFair      = "fair"
	TierSubprime  = "subprime"
	TierPoor      = "poor"
)

const (
	DTIGood       = "good"
	DTIAcceptable = "acceptable"
	DTIConcerning = "concerning"
	DTIDecline    = "decline"
)

const (
	DSCRComfortable  = "comfortable"
	DSCRTight        = "tight"
	DSCRInsufficient = "insufficient"
)

const (
	UtilizationHealthy  = "healthy"
	UtilizationElevated = "elevated"
	UtilizationHigh     = "high"
	UtilizationMaxed    = "maxed"
)

// BandRiskLevel maps a 0-100 risk score onto a level. Bands are closed on
// their lower bound, so a score equal to a threshold belongs to the band
// that starts there.
func (p *Policy) BandRiskLevel(score float64) models.RiskLevel {
	b := p.RiskBands
	switch {
	case score < b[0]:
		return models.RiskVeryLow
	case score < b[1]:
		return models.RiskLow
	case score < b[2]:
		return models.RiskMedium
	case score < b[3]:
		return models.RiskHigh
	default:
		return models.RiskVeryHigh
	}
}

// ClassifyDTI bands a DTI fraction: good below Good, acceptable up to and
// including Acceptable, concerning up to and including Decline.
func (p *Policy) ClassifyDTI(dti float64) string {
	switch {
	case dti < p.DTI.Good:
		return DTIGood
	case dti <= p.DTI.Acceptable:
		return DTIAcceptable
	case dti <= p.DTI.Decline:
		return DTIConcerning
	default:
		return DTIDecline
	}
}

func (p *Policy) ClassifyDSCR(dscr float64) string {
	switch {
	case dscr > p.DSCR.Comfortable:
		return DSCRComfortable
	case dscr >= p.DSCR.Minimum:
		return DSCRTight
	default:
		return DSCRInsufficient
	}
}

func (p *Policy) ClassifyUtilization(pct float64) string {
	switch {
	case pct < p.Utilization.Healthy:
		return UtilizationHealthy
	case pct < p.Utilization.Elevated:
		return UtilizationElevated
	case pct <= p.Utilization.High:
		return UtilizationHigh
	default:
		return UtilizationMaxed
	}
}

// PaymentShock grades how much the new payment raises monthly debt service.
// Without existing debt service the new payment's share of gross income is
// graded instead.
func (p *Policy) PaymentShock(existingPayments, newPayment, grossMonthlyIncome float64) models.Grade {
	t := p.PaymentShockBands
	if existingPayments <= 0 {
		share := 100.0
		if grossMonthlyIncome > 0 {
			share = newPayment / grossMonthlyIncome * 100
		}
		switch {
		case share < t.FirstDebtLow:
			return models.GradeLow
		case share <= t.FirstDebtMedium:
			return models.GradeMedium
		default:
			return models.GradeHigh
		}
	}

	increase := newPayment / existingPayments * 100
	switch {
	case increase < t.Low:
		return models.GradeLow
	case increase <= t.Medium:
		return models.GradeMedium
	default:
		return models.GradeHigh
	}
}

// CreditTier names the bureau score tier used for pricing.
func (p *Policy) CreditTier(score int) string {
	t := p.CreditTiers
	switch {
	case score >= t.Excellent:
		return TierExcellent
	case score >= t.Good:
		return TierGood
	case score >= t.Fair:
		return TierFair
	case score >= t.Subprime:
		return TierSubprime
	default:
		return TierPoor
	}
}

// DebtBurdenScore converts a DTI fraction into a 0-100 quality score.
func (p *Policy) DebtBurdenScore(dti float64) float64 {
	return Piecewise(dti*100, p.DebtBurdenSegments, 0)
}

// CollateralScore converts an LTV percentage into a 0-100 quality score.
// Unsecured and under-collateralized loans receive UnsecuredScore.
func (p *Policy) CollateralScore(ltv float64, present bool) float64 {
	if !present || math.IsInf(ltv, 0) {
		return p.UnsecuredScore
	}
	return Piecewise(ltv, p.CollateralSegments, p.UnsecuredScore)
}

// ProbabilityOfDefault interpolates PD, in percent, within the band of the
// risk score.
func (p *Policy) ProbabilityOfDefault(riskScore float64) float64 {
	last := p.PDByRiskScore[len(p.PDByRiskScore)-1]
	return Piecewise(Clamp(riskScore, 0, 100), p.PDByRiskScore, last.End)
}

// LossGivenDefault returns LGD in percent for a collateral quality.
func (p *Policy) LossGivenDefault(quality models.CollateralQuality) float64 {
	if v, ok := p.LGD[quality]; ok {
		return v
	}
	return p.LGD[models.QualityNone]
}

// Haircut is the liquidation discount for a collateral type.
func (p *Policy) Haircut(t models.CollateralType) float64 {
	if v, ok := p.Haircuts[t]; ok {
		return v
	}
	return 0.5
}

// LTVTarget is the maximum LTV percentage policy accepts for a purpose.
func (p *Policy) LTVTarget(purpose models.LoanPurpose) float64 {
	if v, ok := p.LTVTargets[purpose]; ok {
		return v
	}
	return p.DefaultLTVTarget
}

// BaselRiskWeight returns the standardized-approach risk weight in percent.
// High and very high risk exposures take the high-risk weight; residential
// mortgages are weighted by LTV; everything else is retail.
func (p *Policy) BaselRiskWeight(purpose models.LoanPurpose, ltv float64, level models.RiskLevel) float64 {
	b := p.Basel
	if level.Ordinal() >= models.RiskHigh.Ordinal() {
		return b.HighRisk
	}
	if purpose == models.PurposeMortgage {
		switch {
		case ltv < b.MortgageLowCutoff:
			return b.MortgageLowLTV
		case ltv <= b.MortgageHighCutoff:
			return b.MortgageMidLTV
		default:
			return b.MortgageHighLTV
		}
	}
	return b.Retail
}

// QuoteRate returns the annual percentage rate offered for a credit score and
// risk level: prime plus the tier spread plus one step per level above low.
// Applicants below the subprime floor get no quote.
func (p *Policy) QuoteRate(creditScore int, level models.RiskLevel) (float64, bool) {
	spread, ok := p.Pricing.TierSpreads[p.CreditTier(creditScore)]
	if !ok {
		return 0, false
	}
	steps := level.Ordinal() - models.RiskLow.Ordinal()
	if steps < 0 {
		steps = 0
	}
	return p.Pricing.PrimeRate + spread + float64(steps)*p.Pricing.RiskStepAdjustment, true
}
