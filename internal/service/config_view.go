package service

import (
	"credit-assessment/internal/common/config"
)

type ScoreRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ConfigView is the read-only, secret-free configuration exposed to clients.
type ConfigView struct {
	AppName          string            `json:"appName"`
	Version          string            `json:"version"`
	Environment      string            `json:"environment"`
	AnalyzerMode     string            `json:"analyzerMode"`
	StageModes       map[string]string `json:"stageModes,omitempty"`
	ModelVersion     string            `json:"modelVersion"`
	PolicyVersion    string            `json:"policyVersion"`
	TracingEnabled   bool              `json:"tracingEnabled"`
	TracingProject   *string           `json:"tracingProject"`
	MaxDTIRatio      float64           `json:"maxDtiRatio"`
	CreditScoreRange ScoreRange        `json:"creditScoreRange"`
	Currency         string            `json:"currency"`
	QuoteRate        float64           `json:"quoteRate"`
	StorageDriver    string            `json:"storageDriver"`
	WorkflowEnabled  bool              `json:"workflowEnabled"`
}

// NewConfigView copies the non-secret fields of cfg. Remote analyzer
// credentials, database passwords and notification targets are never
// included.
func NewConfigView(cfg *config.Config, modelVersion, policyVersion string) ConfigView {
	view := ConfigView{
		AppName:        cfg.App.Name,
		Version:        cfg.App.Version,
		Environment:    cfg.App.Environment,
		AnalyzerMode:   cfg.Analyzers.Mode,
		ModelVersion:   modelVersion,
		PolicyVersion:  policyVersion,
		TracingEnabled: cfg.Tracing.Enabled,
		MaxDTIRatio:    cfg.Policy.MaxDTIRatio,
		CreditScoreRange: ScoreRange{
			Min: cfg.Policy.MinCreditScore,
			Max: cfg.Policy.MaxCreditScore,
		},
		Currency:        cfg.Policy.Currency,
		QuoteRate:       cfg.Policy.QuoteRate,
		StorageDriver:   cfg.Storage.Driver,
		WorkflowEnabled: cfg.Camunda.Enabled,
	}
	if len(cfg.Analyzers.Stages) > 0 {
		view.StageModes = make(map[string]string, len(cfg.Analyzers.Stages))
		for stage, mode := range cfg.Analyzers.Stages {
			view.StageModes[stage] = mode
		}
	}
	if cfg.Tracing.Enabled {
		project := cfg.Tracing.Project
		view.TracingProject = &project
	}
	return view
}
