package finance

import (
	"fmt"
	"math"

	"credit-assessment/internal/models"
)

// DefaultPolicyVersion identifies the built-in policy table.
const DefaultPolicyVersion = "2024.1"

const weightTolerance = 1e-9

// Weights are the component weights of the weighted risk score. Values built
// through NewWeights always sum to one.
type Weights struct {
	CreditHistory   float64 `json:"creditHistory" yaml:"credit_history"`
	IncomeStability float64 `json:"incomeStability" yaml:"income_stability"`
	DebtBurden      float64 `json:"debtBurden" yaml:"debt_burden"`
	Collateral      float64 `json:"collateral" yaml:"collateral"`
	Employment      float64 `json:"employment" yaml:"employment"`
}

// NewWeights rejects negative weights and tables that do not sum to unity.
func NewWeights(w Weights) (Weights, error) {
	parts := []float64{w.CreditHistory, w.IncomeStability, w.DebtBurden, w.Collateral, w.Employment}
	var sum float64
	for _, p := range parts {
		if p < 0 {
			return Weights{}, fmt.Errorf("%w: negative weight %v", ErrInvalidPolicy, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > weightTolerance {
		return Weights{}, fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidPolicy, sum)
	}
	return w, nil
}

// MustWeights is NewWeights for package-level tables.
func MustWeights(w Weights) Weights {
	out, err := NewWeights(w)
	if err != nil {
		panic(err)
	}
	return out
}

// DefaultWeights is checked when the package initializes.
var DefaultWeights = MustWeights(Weights{
	CreditHistory:   0.30,
	IncomeStability: 0.25,
	DebtBurden:      0.25,
	Collateral:      0.10,
	Employment:      0.10,
})

// Segment maps an input interval linearly onto a score interval. Intervals
// are closed on the lower bound and open on the upper bound unless flagged.
type Segment struct {
	From        float64 `json:"from" yaml:"from"`
	To          float64 `json:"to" yaml:"to"`
	Start       float64 `json:"start" yaml:"start"`
	End         float64 `json:"end" yaml:"end"`
	LowerOpen   bool    `json:"lowerOpen,omitempty" yaml:"lower_open,omitempty"`
	UpperClosed bool    `json:"upperClosed,omitempty" yaml:"upper_closed,omitempty"`
}

func (s Segment) contains(x float64) bool {
	lowerOK := x > s.From || (!s.LowerOpen && x == s.From)
	upperOK := x < s.To || (s.UpperClosed && x == s.To)
	return lowerOK && upperOK
}

func (s Segment) at(x float64) float64 {
	if s.To == s.From {
		return s.Start
	}
	return s.Start + (s.End-s.Start)*(x-s.From)/(s.To-s.From)
}

// Piecewise evaluates x against the first segment that contains it, returning
// fallback when none does.
func Piecewise(x float64, segments []Segment, fallback float64) float64 {
	for _, s := range segments {
		if s.contains(x) {
			return s.at(x)
		}
	}
	return fallback
}

type DTIThresholds struct {
	Good       float64 `json:"good" yaml:"good"`             // dti < Good
	Acceptable float64 `json:"acceptable" yaml:"acceptable"` // Good <= dti <= Acceptable
	Decline    float64 `json:"decline" yaml:"decline"`       // dti > Decline
}

type DSCRThresholds struct {
	Comfortable float64 `json:"comfortable" yaml:"comfortable"` // dscr > Comfortable
	Minimum     float64 `json:"minimum" yaml:"minimum"`         // dscr >= Minimum is tight
	ReportCap   float64 `json:"reportCap" yaml:"report_cap"`
}

type UtilizationThresholds struct {
	Healthy  float64 `json:"healthy" yaml:"healthy"`
	Elevated float64 `json:"elevated" yaml:"elevated"`
	High     float64 `json:"high" yaml:"high"`
}

type PaymentShockThresholds struct {
	Low    float64 `json:"low" yaml:"low"`       // percent increase of debt service
	Medium float64 `json:"medium" yaml:"medium"` // percent increase of debt service
	// Used when the applicant has no existing debt service: the new
	// payment's share of gross income, in percent.
	FirstDebtLow    float64 `json:"firstDebtLow" yaml:"first_debt_low"`
	FirstDebtMedium float64 `json:"firstDebtMedium" yaml:"first_debt_medium"`
}

type CreditTierThresholds struct {
	Excellent int `json:"excellent" yaml:"excellent"`
	Good      int `json:"good" yaml:"good"`
	Fair      int `json:"fair" yaml:"fair"`
	Subprime  int `json:"subprime" yaml:"subprime"`
}

// Pricing is expressed in annual percentage points.
type Pricing struct {
	PrimeRate          float64            `json:"primeRate" yaml:"prime_rate"`
	TierSpreads        map[string]float64 `json:"tierSpreads" yaml:"tier_spreads"`
	RiskStepAdjustment float64            `json:"riskStepAdjustment" yaml:"risk_step_adjustment"`
	OriginationFeeRate float64            `json:"originationFeeRate" yaml:"origination_fee_rate"` // fraction of principal
}

type BaselWeights struct {
	Retail             float64 `json:"retail" yaml:"retail"`
	MortgageLowLTV     float64 `json:"mortgageLowLtv" yaml:"mortgage_low_ltv"`
	MortgageMidLTV     float64 `json:"mortgageMidLtv" yaml:"mortgage_mid_ltv"`
	MortgageHighLTV    float64 `json:"mortgageHighLtv" yaml:"mortgage_high_ltv"`
	HighRisk           float64 `json:"highRisk" yaml:"high_risk"`
	MortgageLowCutoff  float64 `json:"mortgageLowCutoff" yaml:"mortgage_low_cutoff"`   // ltv < cutoff
	MortgageHighCutoff float64 `json:"mortgageHighCutoff" yaml:"mortgage_high_cutoff"` // ltv > cutoff
}

type IncomePolicy struct {
	EssentialExpenseShare float64 `json:"essentialExpenseShare" yaml:"essential_expense_share"` // of net income
	HousingShare          float64 `json:"housingShare" yaml:"housing_share"`                    // of gross income
	StressIncomeDrop      float64 `json:"stressIncomeDrop" yaml:"stress_income_drop"`
	StressRateShock       float64 `json:"stressRateShock" yaml:"stress_rate_shock"` // annual, fraction
}

type DecisionPolicy struct {
	ValidityDays         int     `json:"validityDays" yaml:"validity_days"`
	ApproveConfidenceMin float64 `json:"approveConfidenceMin" yaml:"approve_confidence_min"`
	ReviewConfidenceMin  float64 `json:"reviewConfidenceMin" yaml:"review_confidence_min"`
	MaxRecentInquiries   int     `json:"maxRecentInquiries" yaml:"max_recent_inquiries"`
	GuarantorRiskScore   int     `json:"guarantorRiskScore" yaml:"guarantor_risk_score"`
}

// Policy is the versioned table of every threshold the ratio library and the
// rule-based analyzers apply.
type Policy struct {
	Version string  `json:"version" yaml:"version"`
	Weights Weights `json:"weights" yaml:"weights"`

	// RiskBands are the lower bounds of low, medium, high and very_high.
	RiskBands [4]float64 `json:"riskBands" yaml:"risk_bands"`

	DTI               DTIThresholds          `json:"dti" yaml:"dti"`
	DSCR              DSCRThresholds         `json:"dscr" yaml:"dscr"`
	Utilization       UtilizationThresholds  `json:"utilization" yaml:"utilization"`
	PaymentShockBands PaymentShockThresholds `json:"paymentShock" yaml:"payment_shock"`
	CreditTiers       CreditTierThresholds   `json:"creditTiers" yaml:"credit_tiers"`

	DebtBurdenSegments []Segment `json:"debtBurdenScore" yaml:"debt_burden_score"` // input: DTI percent
	CollateralSegments []Segment `json:"collateralScore" yaml:"collateral_score"`  // input: LTV percent
	UnsecuredScore     float64   `json:"unsecuredScore" yaml:"unsecured_score"`
	PDByRiskScore      []Segment `json:"pdByRiskScore" yaml:"pd_by_risk_score"` // output: percent

	LGD              map[models.CollateralQuality]float64 `json:"lgd" yaml:"lgd"`           // percent
	Haircuts         map[models.CollateralType]float64    `json:"haircuts" yaml:"haircuts"` // fraction of net value
	LTVTargets       map[models.LoanPurpose]float64       `json:"ltvTargets" yaml:"ltv_targets"`
	DefaultLTVTarget float64                              `json:"defaultLtvTarget" yaml:"default_ltv_target"`

	Basel    BaselWeights   `json:"basel" yaml:"basel"`
	Pricing  Pricing        `json:"pricing" yaml:"pricing"`
	Income   IncomePolicy   `json:"income" yaml:"income"`
	Decision DecisionPolicy `json:"decision" yaml:"decision"`
}

// DefaultPolicy returns a fresh copy of the built-in policy table.
func DefaultPolicy() *Policy {
	return &Policy{
		Version:   DefaultPolicyVersion,
		Weights:   DefaultWeights,
		RiskBands: [4]float64{20, 40, 60, 80},
		DTI:       DTIThresholds{Good: 0.36, Acceptable: 0.43, Decline: 0.50},
		DSCR:      DSCRThresholds{Comfortable: 1.25, Minimum: 1.0, ReportCap: 99.99},
		Utilization: UtilizationThresholds{
			Healthy: 30, Elevated: 50, High: 75,
		},
		PaymentShockBands: PaymentShockThresholds{
			Low: 20, Medium: 50, FirstDebtLow: 10, FirstDebtMedium: 20,
		},
		CreditTiers: CreditTierThresholds{Excellent: 750, Good: 700, Fair: 650, Subprime: 580},
		DebtBurdenSegments: []Segment{
			{From: 0, To: 30, Start: 100, End: 90},
			{From: 30, To: 36, Start: 89, End: 70},
			{From: 36, To: 43, Start: 69, End: 50, UpperClosed: true},
			{From: 43, To: 50, Start: 49, End: 30, LowerOpen: true, UpperClosed: true},
			{From: 50, To: 100, Start: 29, End: 0, LowerOpen: true, UpperClosed: true},
		},
		CollateralSegments: []Segment{
			{From: 0, To: 60, Start: 100, End: 90},
			{From: 60, To: 80, Start: 89, End: 70},
			{From: 80, To: 90, Start: 69, End: 50},
			{From: 90, To: 100, Start: 49, End: 30, UpperClosed: true},
		},
		UnsecuredScore: 25,
		PDByRiskScore: []Segment{
			{From: 0, To: 20, Start: 0.5, End: 1},
			{From: 20, To: 40, Start: 1, End: 3},
			{From: 40, To: 60, Start: 3, End: 7},
			{From: 60, To: 80, Start: 7, End: 15},
			{From: 80, To: 100, Start: 15, End: 30, UpperClosed: true},
		},
		LGD: map[models.CollateralQuality]float64{
			models.QualityExcellent: 25,
			models.QualityGood:      37.5,
			models.QualityFair:      52.5,
			models.QualityPoor:      60,
			models.QualityNone:      70,
		},
		Haircuts: map[models.CollateralType]float64{
			models.CollateralSavings:             0.02,
			models.CollateralInvestmentPortfolio: 0.05,
			models.CollateralRealEstate:          0.20,
			models.CollateralVehicle:             0.25,
			models.CollateralBusinessAssets:      0.45,
		},
		LTVTargets: map[models.LoanPurpose]float64{
			models.PurposeMortgage:        80,
			models.PurposeHomeImprovement: 80,
			models.PurposeBusiness:        70,
			models.PurposeAuto:            100,
		},
		DefaultLTVTarget: 70,
		Basel: BaselWeights{
			Retail:             75,
			MortgageLowLTV:     35,
			MortgageMidLTV:     50,
			MortgageHighLTV:    75,
			HighRisk:           150,
			MortgageLowCutoff:  80,
			MortgageHighCutoff: 90,
		},
		Pricing: Pricing{
			PrimeRate: 4.0,
			TierSpreads: map[string]float64{
				TierExcellent: 0.5,
				TierGood:      1.5,
				TierFair:      3.0,
				TierSubprime:  5.0,
			},
			RiskStepAdjustment: 0.5,
			OriginationFeeRate: 0.01,
		},
		Income: IncomePolicy{
			EssentialExpenseShare: 0.35,
			HousingShare:          0.28,
			StressIncomeDrop:      0.20,
			StressRateShock:       0.02,
		},
		Decision: DecisionPolicy{
			ValidityDays:         30,
			ApproveConfidenceMin: 80,
			ReviewConfidenceMin:  40,
			MaxRecentInquiries:   6,
			GuarantorRiskScore:   60,
		},
	}
}

// Validate checks the invariants a policy table must hold before use.
func (p *Policy) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidPolicy)
	}
	if _, err := NewWeights(p.Weights); err != nil {
		return err
	}
	prev := 0.0
	for i, b := range p.RiskBands {
		if b <= prev || b >= 100 {
			return fmt.Errorf("%w: risk band %d (%v) must increase within (0, 100)", ErrInvalidPolicy, i, b)
		}
		prev = b
	}
	if !(p.DTI.Good < p.DTI.Acceptable && p.DTI.Acceptable <= p.DTI.Decline) {
		return fmt.Errorf("%w: dti thresholds must increase", ErrInvalidPolicy)
	}
	if p.DSCR.Minimum >= p.DSCR.Comfortable {
		return fmt.Errorf("%w: dscr minimum must be below comfortable", ErrInvalidPolicy)
	}
	if !(p.Utilization.Healthy < p.Utilization.Elevated && p.Utilization.Elevated < p.Utilization.High) {
		return fmt.Errorf("%w: utilization thresholds must increase", ErrInvalidPolicy)
	}
	ct := p.CreditTiers
	if !(ct.Subprime < ct.Fair && ct.Fair < ct.Good && ct.Good < ct.Excellent) {
		return fmt.Errorf("%w: credit tiers must increase", ErrInvalidPolicy)
	}
	for name, segs := range map[string][]Segment{
		"debt burden score": p.DebtBurdenSegments,
		"collateral score":  p.CollateralSegments,
		"pd by risk score":  p.PDByRiskScore,
	} {
		if len(segs) == 0 {
			return fmt.Errorf("%w: %s segments are required", ErrInvalidPolicy, name)
		}
		for _, s := range segs {
			if s.To < s.From {
				return fmt.Errorf("%w: %s segment [%v, %v] is inverted", ErrInvalidPolicy, name, s.From, s.To)
			}
		}
	}
	for _, tier := range []string{TierExcellent, TierGood, TierFair, TierSubprime} {
		if _, ok := p.Pricing.TierSpreads[tier]; !ok {
			return fmt.Errorf("%w: pricing spread for tier %s is required", ErrInvalidPolicy, tier)
		}
	}
	if p.Decision.ValidityDays <= 0 {
		return fmt.Errorf("%w: decision validity days must be positive", ErrInvalidPolicy)
	}
	return nil
}
