package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/analyzers/remote"
	"credit-assessment/internal/common/config"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
)

func TestNewSuite_RuleMode(t *testing.T) {
	suite, err := NewSuite(config.AnalyzersConfig{Mode: ModeRule}, finance.DefaultPolicy(), logger.NewNoOpLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{
		analyzers.FinancialCollector, analyzers.IncomeAnalyzer, analyzers.DebtAnalyzer,
		analyzers.CollateralEvaluator, analyzers.RiskScorer, analyzers.DecisionWriter,
	}, suite.Names())
}

func TestNewSuite_PerStageRemote(t *testing.T) {
	cfg := config.AnalyzersConfig{
		Mode:   ModeRule,
		Stages: map[string]string{analyzers.DecisionWriter: ModeRemote},
		Remote: config.RemoteConfig{BaseURL: "http://judgment.local", Timeout: 5000},
	}

	suite, err := NewSuite(cfg, finance.DefaultPolicy(), logger.NewNoOpLogger())
	require.NoError(t, err)

	_, isRemote := suite.Decision.(*remote.Analyzer[analyzers.DecisionInput, models.CreditDecision])
	assert.True(t, isRemote)
	_, isRemote = suite.Risk.(*remote.Analyzer[analyzers.RiskInput, models.RiskAssessment])
	assert.False(t, isRemote)
}

func TestNewSuite_UnknownMode(t *testing.T) {
	_, err := NewSuite(config.AnalyzersConfig{Mode: "oracle"}, finance.DefaultPolicy(), logger.NewNoOpLogger())
	assert.Error(t, err)
}
