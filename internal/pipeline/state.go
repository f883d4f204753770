package pipeline

import (
	"time"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/models"
)

// Stage labels the position of a run in the state machine.
type Stage string

const (
	StageStarted             Stage = "started"
	StageFinancialCollected  Stage = "financial_collected"
	StageIncomeAnalyzed      Stage = "income_analyzed"
	StageDebtAnalyzed        Stage = "debt_analyzed"
	StageCollateralEvaluated Stage = "collateral_evaluated"
	StageRiskCalculated      Stage = "risk_calculated"
	StageDecisionComplete    Stage = "decision_complete"
	StageError               Stage = "error"
)

// step describes one transition of the state machine.
type step struct {
	analyzer string
	from, to Stage
	progress int
	note     string
}

var steps = []step{
	{analyzers.FinancialCollector, StageStarted, StageFinancialCollected, 20, "financial data collected"},
	{analyzers.IncomeAnalyzer, StageFinancialCollected, StageIncomeAnalyzed, 35, "income analyzed"},
	{analyzers.DebtAnalyzer, StageIncomeAnalyzed, StageDebtAnalyzed, 50, "debt analyzed"},
	{analyzers.CollateralEvaluator, StageDebtAnalyzed, StageCollateralEvaluated, 65, "collateral evaluated"},
	{analyzers.RiskScorer, StageCollateralEvaluated, StageRiskCalculated, 80, "risk calculated"},
	{analyzers.DecisionWriter, StageRiskCalculated, StageDecisionComplete, 100, "decision complete"},
}

// Progress is the checkpoint percentage reached when a run enters s.
func (s Stage) Progress() int {
	for _, st := range steps {
		if st.to == s {
			return st.progress
		}
	}
	return 0
}

// Stages lists the success labels in execution order.
func Stages() []Stage {
	out := []Stage{StageStarted}
	for _, st := range steps {
		out = append(out, st.to)
	}
	return out
}

// State is the accumulator of a single run. It is owned by the goroutine
// driving the run and must not be shared.
type State struct {
	Application      *models.LoanApplication
	CorrelationID    string
	FastMode         bool
	DetailedReport   bool
	QuoteRate        float64
	EstimatedPayment float64
	StartedAt        time.Time

	Progress int
	Stage    Stage
	Errors   []string
	Notes    []string

	Financial  *models.FinancialSummary
	Income     *models.IncomeAnalysis
	Debt       *models.DebtAnalysis
	Collateral *models.CollateralEvaluation
	Risk       *models.RiskAssessment
	Decision   *models.CreditDecision

	// failedAt is the analyzer of the stage that halted the run.
	failedAt string
	now      time.Time
}

// Done reports whether the run reached a terminal state.
func (s *State) Done() bool {
	return s.Stage == StageDecisionComplete || s.Stage == StageError
}

// Failed reports whether the run halted in the error state.
func (s *State) Failed() bool {
	return s.Stage == StageError
}

// FailedStage names the analyzer whose stage halted the run, if any.
func (s *State) FailedStage() string {
	return s.failedAt
}

// NextAnalyzer names the analyzer the next Step will invoke, or "" when the
// run is terminal.
func (s *State) NextAnalyzer() string {
	if st, ok := s.next(); ok {
		return st.analyzer
	}
	return ""
}

func (s *State) next() (step, bool) {
	for _, st := range steps {
		if st.from == s.Stage {
			return st, true
		}
	}
	return step{}, false
}

func (s *State) base() analyzers.Base {
	return analyzers.Base{
		Application:      s.Application,
		CorrelationID:    s.CorrelationID,
		FastMode:         s.FastMode,
		QuoteRate:        s.QuoteRate,
		EstimatedPayment: s.EstimatedPayment,
		Now:              s.now,
	}
}

func (s *State) fail(analyzer, msg string) {
	s.Errors = append(s.Errors, msg)
	s.Stage = StageError
	s.failedAt = analyzer
}
