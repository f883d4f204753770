package finance

import (
	"math"

	"credit-assessment/internal/models"
)

// Score combines component scores into a 0-100 quality score. Components are
// clamped to [0, 100] first; since the weights sum to one the result stays
// in range.
func (w Weights) Score(c models.RiskBreakdown) float64 {
	return w.CreditHistory*Clamp(c.CreditHistory, 0, 100) +
		w.IncomeStability*Clamp(c.IncomeStability, 0, 100) +
		w.DebtBurden*Clamp(c.DebtBurden, 0, 100) +
		w.Collateral*Clamp(c.Collateral, 0, 100) +
		w.Employment*Clamp(c.Employment, 0, 100)
}

// WeightedRiskScore scores components with DefaultWeights.
func WeightedRiskScore(c models.RiskBreakdown) float64 {
	return DefaultWeights.Score(c)
}

// RiskScoreFromQuality inverts a quality score (higher is better) into an
// integer risk score (higher is riskier).
func RiskScoreFromQuality(quality float64) int {
	return int(math.Round(100 - Clamp(quality, 0, 100)))
}

// CreditHistoryScore starts from the bureau score scaled onto 0-100 and
// subtracts penalties for derogatory marks.
func CreditHistoryScore(h models.CreditHistory) float64 {
	score := float64(h.CreditScore-300) / 5.5
	score -= 10 * float64(h.Delinquencies30Days)
	score -= 15 * float64(h.Delinquencies60Days)
	score -= 20 * float64(h.Delinquencies90Days)
	score -= 30 * float64(h.Bankruptcies)
	score -= 30 * float64(h.Foreclosures)
	score -= 15 * float64(h.Collections)
	return Clamp(score, 0, 100)
}
