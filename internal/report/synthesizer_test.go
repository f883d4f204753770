package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/analyzers/analyzertest"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/finance"
	"credit-assessment/internal/models"
	"credit-assessment/internal/pipeline"
)

func newSynth(t *testing.T) *Synthesizer {
	t.Helper()
	return New(Options{
		ModelVersion: "test-model",
		NewID:        func() string { return "rpt-1" },
		Clock:        func() time.Time { return analyzertest.Now },
	}, logger.NewTestLogger(t))
}

func completedState(out analyzertest.Outputs) *pipeline.State {
	app := analyzertest.Application()
	app.ApplicationID = "app-42"
	return &pipeline.State{
		Application:    app,
		CorrelationID:  "credit-20240615-103000-0a1b2c3d",
		DetailedReport: true,
		Progress:       100,
		Stage:          pipeline.StageDecisionComplete,
		Financial:      &out.Financial,
		Income:         &out.Income,
		Debt:           &out.Debt,
		Collateral:     &out.Collateral,
		Risk:           &out.Risk,
		Decision:       &out.Decision,
	}
}

// ==========================
// Synthesize
// ==========================

func TestSynthesize_CopiesStageOutputs(t *testing.T) {
	out := analyzertest.ApprovedOutputs()
	r, err := newSynth(t).Synthesize(completedState(out), 1234*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, "rpt-1", r.ReportID)
	assert.Equal(t, "app-42", r.ApplicationID)
	assert.Equal(t, "Jean Dupont", r.ApplicantName)
	assert.Equal(t, analyzertest.Now, r.ReportDate)
	assert.Equal(t, "credit-20240615-103000-0a1b2c3d", r.TraceID)
	assert.Equal(t, 1.234, r.ProcessingTimeSeconds)
	assert.Equal(t, "test-model", r.ModelVersion)
	assert.Equal(t, finance.DefaultPolicyVersion, r.PolicyVersion)

	assert.Equal(t, out.Debt, r.DebtAnalysis)
	assert.Equal(t, out.Risk, r.RiskAssessment)
	assert.Equal(t, out.Decision, r.CreditDecision)
	assert.NotEmpty(t, r.DetailedAnalysis)
}

func TestSynthesize_OmitsDetailedAnalysisWhenNotRequested(t *testing.T) {
	st := completedState(analyzertest.ApprovedOutputs())
	st.DetailedReport = false

	r, err := newSynth(t).Synthesize(st, time.Second)
	require.NoError(t, err)
	assert.Empty(t, r.DetailedAnalysis)
	assert.NotEmpty(t, r.ExecutiveSummary)
}

func TestSynthesize_RejectsIncompleteState(t *testing.T) {
	st := completedState(analyzertest.ApprovedOutputs())
	st.Risk = nil

	_, err := newSynth(t).Synthesize(st, time.Second)
	assert.ErrorIs(t, err, ErrIncompleteState)

	_, err = newSynth(t).Synthesize(nil, time.Second)
	assert.ErrorIs(t, err, ErrIncompleteState)
}

func TestSynthesize_DefaultsGenerateUUID(t *testing.T) {
	s := New(Options{}, logger.NewNoOpLogger())
	r, err := s.Synthesize(completedState(analyzertest.ApprovedOutputs()), 0)
	require.NoError(t, err)
	assert.Len(t, r.ReportID, 36)
	assert.Equal(t, DefaultModelVersion, r.ModelVersion)
}

// ==========================
// Narrative
// ==========================

func TestExecutiveSummary(t *testing.T) {
	summary := newSynth(t).ExecutiveSummary(completedState(analyzertest.ApprovedOutputs()))

	for _, want := range []string{
		"## Executive Summary",
		"**Decision:** APPROVED",
		"**Risk Level:** very_low",
		"**Confidence:** 92%",
		"- Projected DTI: 27.6%",
		"- Risk Score: 17/100",
		"- Probability of Default: 0.93%",
		"- Max Affordable Payment: €1,150.00",
		"Terms offered: €20,000.00 over 60 months at 5.50%.",
	} {
		assert.Contains(t, summary, want)
	}
}

func TestExecutiveSummary_DeclineListsReasons(t *testing.T) {
	out := analyzertest.ApprovedOutputs()
	out.Decision = models.CreditDecision{
		Decision:       models.DecisionDeclined,
		Confidence:     75,
		DeclineReasons: []string{"Projected DTI above 50%", "Recent bankruptcy"},
	}
	summary := newSynth(t).ExecutiveSummary(completedState(out))

	assert.Contains(t, summary, "**Decision:** DECLINED")
	assert.Contains(t, summary, "declined: Projected DTI above 50%; Recent bankruptcy.")
}

func TestDetailedAnalysis(t *testing.T) {
	text := newSynth(t).DetailedAnalysis(completedState(analyzertest.ApprovedOutputs()))

	for _, want := range []string{
		"### Income Assessment",
		"- Gross Annual Income: €60,000.00",
		"- Income Stability Score: 100/100",
		"### Debt Profile",
		"- Total Existing Debt: €32,500.00",
		"- Current DTI: 20.0%",
		"- DSCR: 2.76",
		"### Collateral Assessment",
		"- Collateral Present: No",
		"- LTV Ratio: 100.0%",
		"### Risk Profile",
		"- LGD: 70.0%",
		"- Expected Loss: €129.50",
	} {
		assert.Contains(t, text, want)
	}
}

func TestMoneyFormatCurrencies(t *testing.T) {
	tests := []struct {
		currency string
		value    float64
		want     string
	}{
		{"", 1234.5, "€1,234.50"},
		{"usd", 1000000, "$1,000,000.00"},
		{"GBP", 0.005, "£0.01"},
		{"SEK", 99.9, "SEK 99.90"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, newMoneyFormat(tt.currency).format(tt.value), tt.currency)
	}
}

// ==========================
// Recommendations
// ==========================

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name      string
		steps     []string
		collRecs  []string
		riskScore int
		want      []string
	}{
		{
			name:      "concatenates next steps then collateral",
			steps:     []string{"Sign the loan agreement"},
			collRecs:  []string{"Register a lien"},
			riskScore: 30,
			want:      []string{"Sign the loan agreement", "Register a lien"},
		},
		{
			name:      "guarantor warning above threshold",
			steps:     []string{"Await underwriter"},
			riskScore: 61,
			want:      []string{"Await underwriter", GuarantorRecommendation},
		},
		{
			name:      "threshold itself adds nothing",
			riskScore: 60,
			want:      []string{NoRecommendations},
		},
		{
			name:      "empty inputs fall back to default",
			riskScore: 10,
			want:      []string{NoRecommendations},
		},
		{
			name:      "warning alone suppresses the default",
			riskScore: 85,
			want:      []string{GuarantorRecommendation},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &models.CreditDecision{NextSteps: tt.steps}
			c := &models.CollateralEvaluation{Recommendations: tt.collRecs}
			r := &models.RiskAssessment{RiskScore: tt.riskScore}
			assert.Equal(t, tt.want, Recommendations(d, c, r, 60))
		})
	}
}

func TestSynthesize_EmptyRecommendationInputsStillYieldOne(t *testing.T) {
	out := analyzertest.ApprovedOutputs()
	out.Decision.NextSteps = nil
	out.Collateral.Recommendations = nil

	r, err := newSynth(t).Synthesize(completedState(out), time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{NoRecommendations}, r.Recommendations)
}
