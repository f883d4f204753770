package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	awsclients "credit-assessment/internal/common/aws"
	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
)

var ErrMissingRecipients = errors.New("EMAIL_RECIPIENTS_REQUIRED")

// DefaultEmailDecisions are the decisions an underwriter must look at.
var DefaultEmailDecisions = []models.DecisionType{
	models.DecisionManualReview,
	models.DecisionApprovedWithConditions,
}

var emailBody = template.Must(template.New("review").Parse(`Credit application {{.ApplicationID}} ({{.ApplicantName}}) needs attention.

Decision: {{.Decision}}
Confidence: {{printf "%.0f" .Confidence}}%
Risk level: {{.RiskLevel}} (score {{.RiskScore}}/100)
Report: {{.ReportID}}
Correlation: {{.CorrelationID}}
{{if .Reasons}}
Reasons:
{{range .Reasons}}- {{.}}
{{end}}{{end}}{{if .Conditions}}
Conditions:
{{range .Conditions}}- {{.}}
{{end}}{{end}}`))

type emailView struct {
	ApplicationID string
	ApplicantName string
	ReportID      string
	CorrelationID string
	Decision      models.DecisionType
	Confidence    float64
	RiskLevel     models.RiskLevel
	RiskScore     int
	Reasons       []string
	Conditions    []string
}

// ReviewMailer emails underwriters about decisions that need a person.
// Other decisions are skipped without calling SES.
type ReviewMailer struct {
	client     awsclients.EmailSender
	from       string
	recipients []string
	decisions  []models.DecisionType
	logger     logger.Logger
}

func NewReviewMailer(client awsclients.EmailSender, from string, recipients []string, log logger.Logger) (*ReviewMailer, error) {
	if from == "" || len(recipients) == 0 {
		return nil, ErrMissingRecipients
	}
	return &ReviewMailer{
		client:     client,
		from:       from,
		recipients: recipients,
		decisions:  DefaultEmailDecisions,
		logger:     log.WithFields(map[string]interface{}{"channel": "ses"}),
	}, nil
}

// WantsEmail reports whether a decision triggers an email.
func (m *ReviewMailer) WantsEmail(decision models.DecisionType) bool {
	return slices.Contains(m.decisions, decision)
}

func (m *ReviewMailer) Send(ctx context.Context, report *models.CreditAssessmentReport) (bool, error) {
	d := report.CreditDecision
	if !m.WantsEmail(d.Decision) {
		return false, nil
	}

	subject, body, err := renderEmail(report)
	if err != nil {
		return false, stderrors.NewNotificationFailedError("ses", err)
	}

	_, err = m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &types.Destination{ToAddresses: m.recipients},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body:    &types.Body{Text: &types.Content{Data: aws.String(body)}},
		},
	})
	if err != nil {
		return false, stderrors.NewNotificationFailedError("ses", err)
	}

	m.logger.Info("review email sent", map[string]interface{}{
		"reportId":   report.ReportID,
		"decision":   d.Decision,
		"recipients": len(m.recipients),
	})
	return true, nil
}

func (m *ReviewMailer) Name() string { return "ses" }

func (m *ReviewMailer) Deliver(ctx context.Context, report *models.CreditAssessmentReport) error {
	_, err := m.Send(ctx, report)
	return err
}

func renderEmail(r *models.CreditAssessmentReport) (string, string, error) {
	d := r.CreditDecision
	view := emailView{
		ApplicationID: r.ApplicationID,
		ApplicantName: r.ApplicantName,
		ReportID:      r.ReportID,
		CorrelationID: r.TraceID,
		Decision:      d.Decision,
		Confidence:    d.Confidence,
		RiskLevel:     r.RiskAssessment.RiskLevel,
		RiskScore:     r.RiskAssessment.RiskScore,
		Reasons:       d.ManualReviewReasons,
		Conditions:    d.Conditions,
	}

	var sb strings.Builder
	if err := emailBody.Execute(&sb, view); err != nil {
		return "", "", err
	}
	label := strings.ReplaceAll(string(d.Decision), "_", " ")
	subject := fmt.Sprintf("[Credit] %s: application %s", label, r.ApplicationID)
	return subject, sb.String(), nil
}
