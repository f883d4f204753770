// Package analyzers defines the judgment capability behind each assessment
// stage. An Analyzer turns a stage input into a schema-valid output or a
// typed Failure; the pipeline treats every implementation as a black box.
package analyzers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"credit-assessment/internal/common/validation"
)

// Stage names. They key per-stage configuration, metrics and remote routes.
const (
	FinancialCollector  = "financial-collector"
	IncomeAnalyzer      = "income-analyzer"
	DebtAnalyzer        = "debt-analyzer"
	CollateralEvaluator = "collateral-evaluator"
	RiskScorer          = "risk-scorer"
	DecisionWriter      = "decision-writer"
)

// Analyzer produces one stage's structured judgment. Implementations must be
// safe for concurrent use by independent runs.
type Analyzer[In, Out any] interface {
	Name() string
	Analyze(ctx context.Context, in In) (Out, error)
}

// Failure is the only error an Analyzer returns to the pipeline.
type Failure struct {
	Analyzer string
	Cause    string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Analyzer, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail builds a Failure from an underlying error.
func Fail(analyzer string, err error) *Failure {
	return &Failure{Analyzer: analyzer, Cause: err.Error(), Err: err}
}

// Failf builds a Failure from a formatted cause.
func Failf(analyzer, format string, args ...interface{}) *Failure {
	err := fmt.Errorf(format, args...)
	return &Failure{Analyzer: analyzer, Cause: err.Error(), Err: err}
}

// Invoke calls a and guarantees the caller sees either a value or a *Failure:
// panics are recovered and foreign errors are wrapped.
func Invoke[In, Out any](ctx context.Context, a Analyzer[In, Out], in In) (out Out, failure *Failure) {
	name := a.Name()
	defer func() {
		if r := recover(); r != nil {
			var zero Out
			out = zero
			failure = &Failure{
				Analyzer: name,
				Cause:    fmt.Sprintf("panic: %v", r),
				Err:      fmt.Errorf("analyzer panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	out, err := a.Analyze(ctx, in)
	if err == nil {
		return out, nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return out, f
	}
	return out, Fail(name, err)
}

// CheckOutput validates out against schema and turns a violation into a
// Failure attributed to the analyzer.
func CheckOutput[Out any](analyzer, schema string, out Out) (Out, error) {
	if err := validation.ValidateStageOutput(schema, out); err != nil {
		var zero Out
		return zero, Fail(analyzer, err)
	}
	return out, nil
}

// Func adapts a plain function to the Analyzer interface.
type Func[In, Out any] struct {
	name string
	fn   func(ctx context.Context, in In) (Out, error)
}

func NewFunc[In, Out any](name string, fn func(ctx context.Context, in In) (Out, error)) *Func[In, Out] {
	return &Func[In, Out]{name: name, fn: fn}
}

func (f *Func[In, Out]) Name() string { return f.name }

func (f *Func[In, Out]) Analyze(ctx context.Context, in In) (Out, error) {
	return f.fn(ctx, in)
}
