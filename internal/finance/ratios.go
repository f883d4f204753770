// Package finance holds the pure ratio, scoring and amortization functions
// behind every credit decision. Nothing here performs I/O.
package finance

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var ErrInvalidPolicy = errors.New("INVALID_POLICY")

// AmortizedPayment returns the level monthly payment for a fully amortizing
// loan. annualRate is a fraction (0.05 for 5%). Callers guarantee
// termMonths > 0; a non-positive term yields 0.
func AmortizedPayment(principal float64, termMonths int, annualRate float64) float64 {
	if termMonths <= 0 {
		return 0
	}
	if annualRate == 0 {
		return principal / float64(termMonths)
	}
	r := annualRate / 12
	return r * principal / (1 - math.Pow(1+r, -float64(termMonths)))
}

// PrincipalForPayment is the inverse of AmortizedPayment: the principal a
// given monthly payment retires over termMonths.
func PrincipalForPayment(payment float64, termMonths int, annualRate float64) float64 {
	if termMonths <= 0 || payment <= 0 {
		return 0
	}
	if annualRate == 0 {
		return payment * float64(termMonths)
	}
	r := annualRate / 12
	return payment * (1 - math.Pow(1+r, -float64(termMonths))) / r
}

// DTI is (existingMonthlyDebt + newPayment) / grossMonthlyIncome as a
// fraction. A non-positive income yields +Inf so it can never pass a
// threshold check.
func DTI(existingMonthlyDebt, newPayment, grossMonthlyIncome float64) float64 {
	if grossMonthlyIncome <= 0 {
		return math.Inf(1)
	}
	return (existingMonthlyDebt + newPayment) / grossMonthlyIncome
}

// DSCR is netOperatingIncome / totalDebtService. Zero debt service yields +Inf.
func DSCR(netOperatingIncome, totalDebtService float64) float64 {
	if totalDebtService <= 0 {
		return math.Inf(1)
	}
	return netOperatingIncome / totalDebtService
}

// LTV is loanAmount / collateralValue as a percentage. It is not clamped.
func LTV(loanAmount, collateralValue float64) float64 {
	if collateralValue <= 0 {
		return math.Inf(1)
	}
	return loanAmount / collateralValue * 100
}

// Utilization is outstanding revolving balance over total limits as a
// percentage. With no revolving limits utilization is 0.
func Utilization(outstandingRevolving, totalLimits float64) float64 {
	if totalLimits <= 0 {
		return 0
	}
	return outstandingRevolving / totalLimits * 100
}

// ExpectedLoss is pd * lgd * exposure, with pd and lgd as fractions.
func ExpectedLoss(pd, lgd, exposureAtDefault float64) float64 {
	return pd * lgd * exposureAtDefault
}

// RoundTo rounds half away from zero to the given number of decimals.
func RoundTo(v float64, places int32) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundCurrency rounds to cents.
func RoundCurrency(v float64) float64 {
	return RoundTo(v, 2)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
