// Package report builds the final CreditAssessmentReport from a completed
// pipeline state. Synthesis is pure formatting: no analyzer or network calls.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
	"credit-assessment/internal/pipeline"
)

const (
	DefaultModelVersion = "rule-engine/1.0"
	DefaultCurrency     = "EUR"

	GuarantorRecommendation = "Consider requiring additional collateral or guarantor"
	NoRecommendations       = "No additional recommendations at this time"
)

var ErrIncompleteState = errors.New("INCOMPLETE_STATE")

type Options struct {
	ModelVersion string
	Policy       *finance.Policy
	Currency     string
	NewID        func() string
	Clock        func() time.Time
}

type Synthesizer struct {
	modelVersion string
	policy       *finance.Policy
	money        *moneyFormat
	newID        func() string
	clock        func() time.Time
	logger       logger.Logger
}

func New(opts Options, log logger.Logger) *Synthesizer {
	s := &Synthesizer{
		modelVersion: opts.ModelVersion,
		policy:       opts.Policy,
		money:        newMoneyFormat(opts.Currency),
		newID:        opts.NewID,
		clock:        opts.Clock,
		logger:       log.WithFields(map[string]interface{}{"component": "report"}),
	}
	if s.modelVersion == "" {
		s.modelVersion = DefaultModelVersion
	}
	if s.policy == nil {
		s.policy = finance.DefaultPolicy()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Synthesize implements pipeline.Synthesizer.
func (s *Synthesizer) Synthesize(st *pipeline.State, elapsed time.Duration) (*models.CreditAssessmentReport, error) {
	if st == nil || st.Application == nil {
		return nil, fmt.Errorf("%w: no application", ErrIncompleteState)
	}
	if st.Financial == nil || st.Income == nil || st.Debt == nil ||
		st.Collateral == nil || st.Risk == nil || st.Decision == nil {
		return nil, fmt.Errorf("%w: stage outputs missing at %s", ErrIncompleteState, st.Stage)
	}

	r := &models.CreditAssessmentReport{
		ReportID:      s.newID(),
		ApplicationID: st.Application.ApplicationID,
		ReportDate:    s.clock().UTC(),
		ApplicantName: st.Application.FullName(),

		FinancialSummary:     *st.Financial,
		IncomeAnalysis:       *st.Income,
		DebtAnalysis:         *st.Debt,
		CollateralEvaluation: *st.Collateral,
		RiskAssessment:       *st.Risk,
		CreditDecision:       *st.Decision,

		ExecutiveSummary: s.ExecutiveSummary(st),
		Recommendations:  Recommendations(st.Decision, st.Collateral, st.Risk, s.policy.Decision.GuarantorRiskScore),

		ProcessingTimeSeconds: finance.RoundTo(elapsed.Seconds(), 3),
		TraceID:               st.CorrelationID,
		ModelVersion:          s.modelVersion,
		PolicyVersion:         s.policy.Version,
	}
	if st.DetailedReport {
		r.DetailedAnalysis = s.DetailedAnalysis(st)
	}

	s.logger.Debug("report synthesized", map[string]interface{}{
		"correlationId":   st.CorrelationID,
		"reportId":        r.ReportID,
		"recommendations": len(r.Recommendations),
		"detailed":        st.DetailedReport,
	})
	return r, nil
}

// ExecutiveSummary renders the headline decision and key metrics as markdown.
func (s *Synthesizer) ExecutiveSummary(st *pipeline.State) string {
	d, risk, income, debt := st.Decision, st.Risk, st.Income, st.Debt

	var b strings.Builder
	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "**Decision:** %s\n", strings.ToUpper(string(d.Decision)))
	fmt.Fprintf(&b, "**Risk Level:** %s\n", risk.RiskLevel)
	fmt.Fprintf(&b, "**Confidence:** %.0f%%\n\n", d.Confidence)

	b.WriteString("### Key Metrics\n")
	fmt.Fprintf(&b, "- Projected DTI: %s\n", percent(debt.ProjectedDTI))
	fmt.Fprintf(&b, "- Risk Score: %d/100\n", risk.RiskScore)
	fmt.Fprintf(&b, "- Probability of Default: %.2f%%\n", risk.ProbabilityOfDefault)
	fmt.Fprintf(&b, "- Max Affordable Payment: %s\n\n", s.money.format(income.MaxAffordablePayment))

	b.WriteString("### Summary\n")
	b.WriteString(s.summaryLine(st))
	b.WriteString("\n")
	return b.String()
}

// DetailedAnalysis renders one section per analysis area.
func (s *Synthesizer) DetailedAnalysis(st *pipeline.State) string {
	fin, income, debt, coll, risk := st.Financial, st.Income, st.Debt, st.Collateral, st.Risk
	m := s.money

	var b strings.Builder
	b.WriteString("## Detailed Analysis\n\n")

	b.WriteString("### Income Assessment\n")
	fmt.Fprintf(&b, "- Gross Annual Income: %s\n", m.format(income.GrossAnnualIncome))
	fmt.Fprintf(&b, "- Net Annual Income: %s\n", m.format(income.NetAnnualIncome))
	fmt.Fprintf(&b, "- Income Stability Score: %.0f/100\n", fin.IncomeStabilityScore)
	fmt.Fprintf(&b, "- Income Sustainability: %s\n", orNA(string(income.IncomeSustainability)))
	fmt.Fprintf(&b, "- Stress Test Result: %s\n\n", orNA(income.StressTestResult))

	b.WriteString("### Debt Profile\n")
	fmt.Fprintf(&b, "- Total Existing Debt: %s\n", m.format(debt.TotalExistingDebt))
	fmt.Fprintf(&b, "- Monthly Debt Payments: %s\n", m.format(debt.TotalMonthlyDebtPayments))
	fmt.Fprintf(&b, "- Current DTI: %s\n", percent(debt.DebtToIncomeRatio))
	fmt.Fprintf(&b, "- Projected DTI: %s\n", percent(debt.ProjectedDTI))
	fmt.Fprintf(&b, "- DSCR: %.2f\n\n", debt.DebtServiceCoverageRatio)

	b.WriteString("### Collateral Assessment\n")
	fmt.Fprintf(&b, "- Collateral Present: %s\n", yesNo(coll.CollateralPresent))
	fmt.Fprintf(&b, "- Collateral Quality: %s\n", orNA(string(coll.CollateralQuality)))
	fmt.Fprintf(&b, "- LTV Ratio: %.1f%%\n", coll.LoanToValueRatio)
	fmt.Fprintf(&b, "- Liquidation Value: %s\n\n", m.format(coll.LiquidationValue))

	b.WriteString("### Risk Profile\n")
	fmt.Fprintf(&b, "- Overall Risk Level: %s\n", orNA(string(risk.RiskLevel)))
	fmt.Fprintf(&b, "- Risk Score: %d/100\n", risk.RiskScore)
	fmt.Fprintf(&b, "- PD: %.2f%%\n", risk.ProbabilityOfDefault)
	fmt.Fprintf(&b, "- LGD: %.1f%%\n", risk.LossGivenDefault)
	fmt.Fprintf(&b, "- Expected Loss: %s\n", m.format(risk.ExpectedLoss))
	return b.String()
}

// Recommendations concatenates the decision's next steps and the collateral
// recommendations, adds the guarantor warning when the risk score is above
// guarantorScore, and never returns an empty list.
func Recommendations(d *models.CreditDecision, c *models.CollateralEvaluation, r *models.RiskAssessment, guarantorScore int) []string {
	var out []string
	if d != nil {
		out = append(out, d.NextSteps...)
	}
	if c != nil {
		out = append(out, c.Recommendations...)
	}
	if r != nil && r.RiskScore > guarantorScore {
		out = append(out, GuarantorRecommendation)
	}
	if len(out) == 0 {
		out = []string{NoRecommendations}
	}
	return out
}

func (s *Synthesizer) summaryLine(st *pipeline.State) string {
	d := st.Decision
	switch d.Decision {
	case models.DecisionApproved, models.DecisionApprovedWithConditions:
		if t := d.LoanTerms; t != nil {
			return fmt.Sprintf("The application was assessed automatically across income, debt, collateral and credit history. "+
				"Terms offered: %s over %d months at %.2f%%.", s.money.format(t.ApprovedAmount), t.TermMonths, t.InterestRate)
		}
	case models.DecisionManualReview:
		if len(d.ManualReviewReasons) > 0 {
			return "The application requires an underwriter: " + strings.Join(d.ManualReviewReasons, "; ") + "."
		}
	case models.DecisionDeclined:
		if len(d.DeclineReasons) > 0 {
			return "The application was declined: " + strings.Join(d.DeclineReasons, "; ") + "."
		}
	}
	return "The application was assessed automatically across income, debt, collateral and credit history."
}

func percent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

type moneyFormat struct {
	symbol  string
	printer *message.Printer
}

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "CHF ",
}

func newMoneyFormat(currency string) *moneyFormat {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}
	return &moneyFormat{symbol: symbol, printer: message.NewPrinter(language.English)}
}

// format groups thousands: €1,150.00.
func (m *moneyFormat) format(v float64) string {
	return m.symbol + m.printer.Sprintf("%.2f", finance.RoundCurrency(v))
}
