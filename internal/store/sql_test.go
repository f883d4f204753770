package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/analyzers/analyzertest"
	"credit-assessment/internal/common/database"
	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
)

func sampleReport(id string) *models.CreditAssessmentReport {
	out := analyzertest.ApprovedOutputs()
	return &models.CreditAssessmentReport{
		ReportID:             id,
		ApplicationID:        "APP-TEST-0001",
		ReportDate:           analyzertest.Now,
		ApplicantName:        "Jean Dupont",
		FinancialSummary:     out.Financial,
		IncomeAnalysis:       out.Income,
		DebtAnalysis:         out.Debt,
		CollateralEvaluation: out.Collateral,
		RiskAssessment:       out.Risk,
		CreditDecision:       out.Decision,
		ExecutiveSummary:     "## Executive Summary",
		Recommendations:      []string{"Sign the loan agreement"},
		TraceID:              "credit-20240615-103000-0a1b2c3d",
		ModelVersion:         "rule-engine/1.0",
		PolicyVersion:        "2024.1",
	}
}

func assertCode(t *testing.T, err error, code stderrors.ErrorCode) {
	t.Helper()
	stdErr, ok := stderrors.AsStandardError(err)
	require.True(t, ok, "expected StandardError, got %v", err)
	assert.Equal(t, code, stdErr.Code)
}

// ==========================
// Dialect
// ==========================

func TestRebind(t *testing.T) {
	pg, err := dialectFor("postgres")
	require.NoError(t, err)
	lite, err := dialectFor("sqlite3")
	require.NoError(t, err)

	q := "SELECT a FROM t WHERE b = ? AND c = ?"
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))

	_, err = dialectFor("oracle")
	assert.ErrorIs(t, err, ErrStoreConfig)
}

// ==========================
// PostgreSQL (sqlmock)
// ==========================

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLStore(db, "postgres", logger.NewTestLogger(t))
	require.NoError(t, err)
	s.clock = func() time.Time { return analyzertest.Now }
	return s, mock
}

func TestSQLStore_PostgresSave(t *testing.T) {
	s, mock := newMockStore(t)
	report := sampleReport("rpt-1")

	mock.ExpectExec(`INSERT INTO credit_reports .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10\)\s+ON CONFLICT \(report_id\) DO UPDATE`).
		WithArgs("rpt-1", "APP-TEST-0001", "credit-20240615-103000-0a1b2c3d", "approved", "very_low", 17, 91.5, "2024.1",
			sqlmock.AnyArg(), analyzertest.Now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Save(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PostgresSaveFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO credit_reports`).WillReturnError(errors.New("connection reset"))

	err := s.Deliver(context.Background(), sampleReport("rpt-1"))
	assertCode(t, err, stderrors.ErrCodeStoreFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PostgresGet(t *testing.T) {
	s, mock := newMockStore(t)
	body := `{"reportId":"rpt-1","applicationId":"APP-TEST-0001","creditDecision":{"decision":"approved"}}`

	mock.ExpectQuery(`SELECT report FROM credit_reports WHERE report_id = \$1`).
		WithArgs("rpt-1").
		WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow([]byte(body)))
	mock.ExpectQuery(`SELECT report FROM credit_reports WHERE report_id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"report"}))

	got, err := s.Get(context.Background(), "rpt-1")
	require.NoError(t, err)
	assert.Equal(t, "APP-TEST-0001", got.ApplicationID)
	assert.Equal(t, models.DecisionApproved, got.CreditDecision.Decision)

	_, err = s.Get(context.Background(), "missing")
	assertCode(t, err, stderrors.ErrCodeReportNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CorruptRowIsStoreFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT report FROM credit_reports`).
		WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow([]byte("{not json")))

	_, err := s.Get(context.Background(), "rpt-1")
	assertCode(t, err, stderrors.ErrCodeStoreFailed)
}

// ==========================
// SQLite (in memory)
// ==========================

func TestSQLStore_SQLiteRoundTrip(t *testing.T) {
	client, err := database.NewSQLite("file:reports_roundtrip?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	s, err := NewSQLStore(client.DB, client.Driver, logger.NewTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migrate is idempotent")

	first := sampleReport("rpt-1")
	second := sampleReport("rpt-2")
	second.CreditDecision.Decision = models.DecisionManualReview

	s.clock = func() time.Time { return analyzertest.Now }
	require.NoError(t, s.Save(ctx, first))
	s.clock = func() time.Time { return analyzertest.Now.Add(time.Hour) }
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Get(ctx, "rpt-1")
	require.NoError(t, err)
	assert.Equal(t, first.RiskAssessment, got.RiskAssessment)
	assert.Equal(t, first.Recommendations, got.Recommendations)

	first.CreditDecision.Confidence = 60
	require.NoError(t, s.Save(ctx, first), "saving an existing id updates it")
	got, err = s.Get(ctx, "rpt-1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.CreditDecision.Confidence)

	list, err := s.ListByApplication(ctx, "APP-TEST-0001", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "rpt-2", list[0].ReportID)

	_, err = s.Get(ctx, "rpt-404")
	assertCode(t, err, stderrors.ErrCodeReportNotFound)
}
