package analyzers

import (
	"fmt"

	"credit-assessment/internal/models"
)

// Suite is the set of six analyzers a pipeline runs, in stage order.
type Suite struct {
	Financial  Analyzer[FinancialInput, models.FinancialSummary]
	Income     Analyzer[IncomeInput, models.IncomeAnalysis]
	Debt       Analyzer[DebtInput, models.DebtAnalysis]
	Collateral Analyzer[CollateralInput, models.CollateralEvaluation]
	Risk       Analyzer[RiskInput, models.RiskAssessment]
	Decision   Analyzer[DecisionInput, models.CreditDecision]
}

// Validate reports the first missing analyzer.
func (s Suite) Validate() error {
	missing := func(name string) error { return fmt.Errorf("analyzer suite: %s is not configured", name) }
	switch {
	case s.Financial == nil:
		return missing(FinancialCollector)
	case s.Income == nil:
		return missing(IncomeAnalyzer)
	case s.Debt == nil:
		return missing(DebtAnalyzer)
	case s.Collateral == nil:
		return missing(CollateralEvaluator)
	case s.Risk == nil:
		return missing(RiskScorer)
	case s.Decision == nil:
		return missing(DecisionWriter)
	}
	return nil
}

// Names lists the configured analyzer names in stage order.
func (s Suite) Names() []string {
	return []string{
		s.Financial.Name(), s.Income.Name(), s.Debt.Name(),
		s.Collateral.Name(), s.Risk.Name(), s.Decision.Name(),
	}
}
