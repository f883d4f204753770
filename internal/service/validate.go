package service

import (
	"fmt"
	"strings"
	"time"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/models"
)

// ValidationError rejects an application before any stage runs.
type ValidationError struct {
	Result models.ValidationResult
	err    *stderrors.StandardError
}

func newValidationError(result models.ValidationResult) *ValidationError {
	return &ValidationError{Result: result, err: stderrors.NewValidationFailedError(result.Issues)}
}

func (e *ValidationError) Error() string {
	return "application validation failed: " + strings.Join(e.Result.Issues, "; ")
}

func (e *ValidationError) Unwrap() error { return e.err }

// Validate checks an application without calling any analyzer. Issues block
// the assessment; warnings are informational.
func (s *Service) Validate(app *models.LoanApplication) models.ValidationResult {
	return validateApplication(app, s.rules, s.clock())
}

type validationRules struct {
	minCreditScore int
	maxCreditScore int
	highDTIWarning float64
}

func validateApplication(app *models.LoanApplication, rules validationRules, now time.Time) models.ValidationResult {
	result := models.ValidationResult{Issues: []string{}, Warnings: []string{}}
	if app == nil {
		result.Issues = append(result.Issues, "Application is required")
		return result
	}

	if app.LoanRequest.RequestedAmount <= 0 {
		result.Issues = append(result.Issues, "Requested amount must be positive")
	}
	if app.LoanRequest.RequestedTermMonths <= 0 {
		result.Issues = append(result.Issues, "Requested term must be positive")
	}
	if app.Employment.MonthlyNetIncome > app.Employment.MonthlyGrossIncome {
		result.Issues = append(result.Issues, "Net income cannot exceed gross income")
	}
	if score := app.CreditHistory.CreditScore; score < rules.minCreditScore || score > rules.maxCreditScore {
		result.Issues = append(result.Issues,
			fmt.Sprintf("Credit score must be between %d and %d", rules.minCreditScore, rules.maxCreditScore))
	}
	for _, issue := range app.StructuralIssues(now) {
		if !contains(result.Issues, issue) {
			result.Issues = append(result.Issues, issue)
		}
	}

	if gross := app.Employment.MonthlyGrossIncome; gross > 0 {
		if dti := app.TotalMonthlyDebtPayments() / gross; dti > rules.highDTIWarning {
			result.Warnings = append(result.Warnings, fmt.Sprintf("High existing DTI ratio: %.1f%%", dti*100))
		}
	}
	if app.CreditHistory.Bankruptcies > 0 {
		result.Warnings = append(result.Warnings, "Applicant has bankruptcy history")
	}
	if app.CreditHistory.Delinquencies90Days > 0 {
		result.Warnings = append(result.Warnings, "Applicant has 90+ day delinquencies")
	}

	result.Valid = len(result.Issues) == 0
	return result
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
