package analyzers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/common/validation"
	"credit-assessment/internal/models"
)

func TestInvoke_Success(t *testing.T) {
	a := NewFunc(RiskScorer, func(_ context.Context, in int) (int, error) { return in * 2, nil })

	out, failure := Invoke[int, int](context.Background(), a, 21)
	assert.Nil(t, failure)
	assert.Equal(t, 42, out)
}

func TestInvoke_WrapsForeignErrors(t *testing.T) {
	cause := errors.New("upstream 503")
	a := NewFunc(DebtAnalyzer, func(context.Context, int) (int, error) { return 0, cause })

	_, failure := Invoke[int, int](context.Background(), a, 1)
	require.NotNil(t, failure)
	assert.Equal(t, DebtAnalyzer, failure.Analyzer)
	assert.Equal(t, "upstream 503", failure.Cause)
	assert.ErrorIs(t, failure, cause)
}

func TestInvoke_PassesFailureThrough(t *testing.T) {
	want := Failf(IncomeAnalyzer, "income missing")
	a := NewFunc(IncomeAnalyzer, func(context.Context, int) (int, error) { return 0, want })

	_, failure := Invoke[int, int](context.Background(), a, 1)
	assert.Same(t, want, failure)
}

func TestInvoke_RecoversPanics(t *testing.T) {
	a := NewFunc(CollateralEvaluator, func(context.Context, int) (int, error) {
		var m map[string]int
		m["x"] = 1
		return 0, nil
	})

	out, failure := Invoke[int, int](context.Background(), a, 1)
	require.NotNil(t, failure)
	assert.Equal(t, 0, out)
	assert.Contains(t, failure.Cause, "panic")
}

func TestCheckOutput(t *testing.T) {
	bad := models.FinancialSummary{TotalMonthlyIncome: 5000, IncomeStabilityScore: 130}
	_, err := CheckOutput(FinancialCollector, validation.SchemaFinancialSummary, bad)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FinancialCollector, failure.Analyzer)
	assert.Contains(t, failure.Cause, "incomeStabilityScore")
}

func TestSuiteValidate(t *testing.T) {
	assert.Error(t, Suite{}.Validate())
}
