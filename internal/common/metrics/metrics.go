// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_assessments_total",
			Help: "Total number of assessment runs by outcome",
		},
		[]string{"outcome"},
	)

	AssessmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credit_assessment_duration_seconds",
			Help:    "Wall-clock duration of assessment runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"mode"},
	)

	AssessmentsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "credit_assessments_in_flight",
			Help: "Number of assessment runs currently executing",
		},
		[]string{"mode"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "credit_stage_duration_seconds",
			Help: "Duration of a single pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage", "error_code"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_decisions_total",
			Help: "Total number of credit decisions by outcome and risk level",
		},
		[]string{"decision", "risk_level"},
	)

	ReportSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_report_sink_failures_total",
			Help: "Total number of failed report sink deliveries",
		},
		[]string{"sink"},
	)
)
