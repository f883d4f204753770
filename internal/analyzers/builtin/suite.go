// Package builtin assembles the analyzer suite from configuration, choosing
// the rule-based or the remote implementation per stage.
package builtin

import (
	"fmt"

	"credit-assessment/internal/analyzers"
	collateralevaluator "credit-assessment/internal/analyzers/collateral-evaluator"
	debtanalyzer "credit-assessment/internal/analyzers/debt-analyzer"
	decisionwriter "credit-assessment/internal/analyzers/decision-writer"
	financialcollector "credit-assessment/internal/analyzers/financial-collector"
	incomeanalyzer "credit-assessment/internal/analyzers/income-analyzer"
	"credit-assessment/internal/analyzers/remote"
	riskscorer "credit-assessment/internal/analyzers/risk-scorer"
	"credit-assessment/internal/common/config"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/validation"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

const (
	ModeRule   = "rule"
	ModeRemote = "remote"
)

// RuleSuite returns the six rule-based analyzers over policy.
func RuleSuite(policy *finance.Policy, log logger.Logger) analyzers.Suite {
	return analyzers.Suite{
		Financial:  financialcollector.New(financialcollector.LoadConfig(), policy, log),
		Income:     incomeanalyzer.New(incomeanalyzer.LoadConfig(), policy, log),
		Debt:       debtanalyzer.New(debtanalyzer.LoadConfig(), policy, log),
		Collateral: collateralevaluator.New(collateralevaluator.LoadConfig(), policy, log),
		Risk:       riskscorer.New(riskscorer.LoadConfig(), policy, log),
		Decision:   decisionwriter.New(decisionwriter.LoadConfig(), policy, log),
	}
}

// NewSuite starts from the rule suite and swaps in remote analyzers for the
// stages cfg routes to the judgment service.
func NewSuite(cfg config.AnalyzersConfig, policy *finance.Policy, log logger.Logger) (analyzers.Suite, error) {
	suite := RuleSuite(policy, log)
	rc := remote.LoadConfig(cfg.Remote)

	for _, stage := range []string{
		analyzers.FinancialCollector, analyzers.IncomeAnalyzer, analyzers.DebtAnalyzer,
		analyzers.CollateralEvaluator, analyzers.RiskScorer, analyzers.DecisionWriter,
	} {
		mode := cfg.ModeFor(stage)
		switch mode {
		case ModeRule, "":
			continue
		case ModeRemote:
		default:
			return analyzers.Suite{}, fmt.Errorf("analyzer %s: unknown mode %q", stage, mode)
		}

		switch stage {
		case analyzers.FinancialCollector:
			suite.Financial = remote.New[analyzers.FinancialInput, models.FinancialSummary](stage, validation.SchemaFinancialSummary, rc, log)
		case analyzers.IncomeAnalyzer:
			suite.Income = remote.New[analyzers.IncomeInput, models.IncomeAnalysis](stage, validation.SchemaIncomeAnalysis, rc, log)
		case analyzers.DebtAnalyzer:
			suite.Debt = remote.New[analyzers.DebtInput, models.DebtAnalysis](stage, validation.SchemaDebtAnalysis, rc, log)
		case analyzers.CollateralEvaluator:
			suite.Collateral = remote.New[analyzers.CollateralInput, models.CollateralEvaluation](stage, validation.SchemaCollateralEvaluation, rc, log)
		case analyzers.RiskScorer:
			suite.Risk = remote.New[analyzers.RiskInput, models.RiskAssessment](stage, validation.SchemaRiskAssessment, rc, log)
		case analyzers.DecisionWriter:
			suite.Decision = remote.New[analyzers.DecisionInput, models.CreditDecision](stage, validation.SchemaCreditDecision, rc, log)
		}
		log.Info("analyzer routed to remote service", map[string]interface{}{"analyzer": stage, "baseUrl": rc.BaseURL})
	}
	return suite, suite.Validate()
}
