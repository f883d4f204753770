package finance

import (
	"math"

	"credit-assessment/internal/models"
)

// BuildLoanTerms prices an amortizing loan. annualRatePct is in percent.
func BuildLoanTerms(amount float64, termMonths int, annualRatePct, feeRate float64) models.LoanTerms {
	payment := AmortizedPayment(amount, termMonths, annualRatePct/100)
	totalRepayment := payment * float64(termMonths)
	fees := RoundCurrency(amount * feeRate)

	return models.LoanTerms{
		ApprovedAmount: RoundCurrency(amount),
		InterestRate:   RoundTo(annualRatePct, 3),
		TermMonths:     termMonths,
		MonthlyPayment: RoundCurrency(payment),
		TotalInterest:  RoundCurrency(totalRepayment - amount),
		TotalRepayment: RoundCurrency(totalRepayment),
		APR:            RoundTo(APR(amount, fees, payment, termMonths)*100, 3),
		Fees:           fees,
	}
}

// APR solves for the annual rate (fraction) at which the scheduled payment
// amortizes the net proceeds (amount - fees). It uses bisection, so it is
// stable for every positive input.
func APR(amount, fees, payment float64, termMonths int) float64 {
	net := amount - fees
	if net <= 0 || payment <= 0 || termMonths <= 0 {
		return 0
	}
	if payment*float64(termMonths) <= net {
		return 0
	}

	lo, hi := 0.0, 1.0
	for PrincipalForPayment(payment, termMonths, hi) > net && hi < 64 {
		hi *= 2
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if PrincipalForPayment(payment, termMonths, mid) > net {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-12 {
			break
		}
	}
	return math.Round((lo+hi)/2*1e9) / 1e9
}
