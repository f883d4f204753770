// Package store persists credit assessment reports: a SQL repository
// (PostgreSQL or SQLite), a Redis read-through cache in front of it and an
// Elasticsearch index of decision summaries.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
)

var ErrStoreConfig = errors.New("STORE_CONFIG_INVALID")

// Repository is the durable report store.
type Repository interface {
	Save(ctx context.Context, report *models.CreditAssessmentReport) error
	Get(ctx context.Context, reportID string) (*models.CreditAssessmentReport, error)
}

const (
	upsertReport = `INSERT INTO credit_reports
		(report_id, application_id, correlation_id, decision, risk_level, risk_score, confidence, policy_version, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_id) DO UPDATE SET
			decision = excluded.decision,
			risk_level = excluded.risk_level,
			risk_score = excluded.risk_score,
			confidence = excluded.confidence,
			report = excluded.report`

	selectReport = `SELECT report FROM credit_reports WHERE report_id = ?`

	selectByApplication = `SELECT report FROM credit_reports
		WHERE application_id = ?
		ORDER BY created_at DESC
		LIMIT ?`
)

// SQLStore keeps one row per report with the full report as JSON next to the
// columns used for lookups.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	clock   func() time.Time
	logger  logger.Logger
}

var _ Repository = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, driver string, log logger.Logger) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		clock:   time.Now,
		logger:  log.WithFields(map[string]interface{}{"store": "sql", "dialect": d.name}),
	}, nil
}

// Migrate creates the reports table when it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS credit_reports (
			report_id TEXT PRIMARY KEY,
			application_id TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			decision TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			policy_version TEXT NOT NULL,
			report %s NOT NULL,
			created_at %s NOT NULL
		)`, s.dialect.jsonType, s.dialect.timestamp),
		`CREATE INDEX IF NOT EXISTS idx_credit_reports_application ON credit_reports (application_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return stderrors.NewStoreFailedError("migrate", err)
		}
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, report *models.CreditAssessmentReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return stderrors.NewStoreFailedError("encode", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(upsertReport),
		report.ReportID,
		report.ApplicationID,
		report.TraceID,
		string(report.CreditDecision.Decision),
		string(report.RiskAssessment.RiskLevel),
		report.RiskAssessment.RiskScore,
		report.CreditDecision.Confidence,
		report.PolicyVersion,
		string(body),
		s.clock().UTC(),
	)
	if err != nil {
		return stderrors.NewStoreFailedError("save", err)
	}

	s.logger.Debug("report saved", map[string]interface{}{
		"reportId":      report.ReportID,
		"applicationId": report.ApplicationID,
	})
	return nil
}

func (s *SQLStore) Get(ctx context.Context, reportID string) (*models.CreditAssessmentReport, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(selectReport), reportID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stderrors.NewReportNotFoundError(reportID)
	}
	if err != nil {
		return nil, stderrors.NewStoreFailedError("get", err)
	}
	return decodeReport(body)
}

// ListByApplication returns the newest reports of an application first.
func (s *SQLStore) ListByApplication(ctx context.Context, applicationID string, limit int) ([]*models.CreditAssessmentReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(selectByApplication), applicationID, limit)
	if err != nil {
		return nil, stderrors.NewStoreFailedError("list", err)
	}
	defer rows.Close()

	var out []*models.CreditAssessmentReport
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, stderrors.NewStoreFailedError("list", err)
		}
		r, err := decodeReport(body)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewStoreFailedError("list", err)
	}
	return out, nil
}

// Name and Deliver make the store a report sink.
func (s *SQLStore) Name() string { return "sql" }

func (s *SQLStore) Deliver(ctx context.Context, report *models.CreditAssessmentReport) error {
	return s.Save(ctx, report)
}

func decodeReport(body []byte) (*models.CreditAssessmentReport, error) {
	var r models.CreditAssessmentReport
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, stderrors.NewStoreFailedError("decode", err)
	}
	return &r, nil
}
