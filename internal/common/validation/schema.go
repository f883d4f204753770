// Package validation checks structured stage outputs against embedded JSON
// schemas before they are accepted into an assessment.
package validation

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	apperrors "credit-assessment/internal/common/errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names, one per stage output.
const (
	SchemaFinancialSummary     = "financial_summary"
	SchemaIncomeAnalysis       = "income_analysis"
	SchemaDebtAnalysis         = "debt_analysis"
	SchemaCollateralEvaluation = "collateral_evaluation"
	SchemaRiskAssessment       = "risk_assessment"
	SchemaCreditDecision       = "credit_decision"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GetErrorMessages flattens the result into "field: message" strings.
func (r *ValidationResult) GetErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return out
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func loadSchemas() {
	compiled = make(map[string]*gojsonschema.Schema)
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		compileErr = err
		return
	}
	for _, e := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			compileErr = err
			return
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			compileErr = fmt.Errorf("compile schema %s: %w", e.Name(), err)
			return
		}
		compiled[strings.TrimSuffix(e.Name(), ".json")] = s
	}
}

// Schemas lists the embedded schema names.
func Schemas() []string {
	compileOnce.Do(loadSchemas)
	names := make([]string, 0, len(compiled))
	for n := range compiled {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidateDocument marshals v to JSON and validates it against the named
// schema. Values that cannot be encoded (NaN, Inf) are reported as invalid
// rather than as an error.
func ValidateDocument(schema string, v interface{}) (*ValidationResult, error) {
	compileOnce.Do(loadSchemas)
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := compiled[schema]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schema)
	}

	doc, err := json.Marshal(v)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "UNENCODABLE_VALUE",
			}},
		}, nil
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", schema, err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// ValidateStageOutput returns a SCHEMA_VALIDATION_FAILED StandardError when v
// does not satisfy the named schema.
func ValidateStageOutput(schema string, v interface{}) error {
	result, err := ValidateDocument(schema, v)
	if err != nil {
		return apperrors.NewSchemaValidationFailedError(schema, []string{err.Error()})
	}
	if !result.Valid {
		return apperrors.NewSchemaValidationFailedError(schema, result.GetErrorMessages())
	}
	return nil
}
