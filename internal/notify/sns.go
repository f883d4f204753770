// Package notify announces credit decisions: every decision is published to
// an SNS topic and decisions needing a human are emailed through SES.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	awsclients "credit-assessment/internal/common/aws"
	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
)

const EventTypeDecision = "credit.decision"

var ErrMissingTopic = errors.New("SNS_TOPIC_REQUIRED")

// DecisionEvent is the message body published for each report.
type DecisionEvent struct {
	EventType     string              `json:"eventType"`
	ReportID      string              `json:"reportId"`
	ApplicationID string              `json:"applicationId"`
	CorrelationID string              `json:"correlationId"`
	Decision      models.DecisionType `json:"decision"`
	Confidence    float64             `json:"confidence"`
	RiskLevel     models.RiskLevel    `json:"riskLevel"`
	RiskScore     int                 `json:"riskScore"`
	DecidedAt     time.Time           `json:"decidedAt"`
}

func NewDecisionEvent(r *models.CreditAssessmentReport) DecisionEvent {
	return DecisionEvent{
		EventType:     EventTypeDecision,
		ReportID:      r.ReportID,
		ApplicationID: r.ApplicationID,
		CorrelationID: r.TraceID,
		Decision:      r.CreditDecision.Decision,
		Confidence:    r.CreditDecision.Confidence,
		RiskLevel:     r.RiskAssessment.RiskLevel,
		RiskScore:     r.RiskAssessment.RiskScore,
		DecidedAt:     r.ReportDate,
	}
}

// DecisionPublisher publishes decision events to an SNS topic. The decision
// and risk level travel as message attributes so subscribers can filter.
type DecisionPublisher struct {
	client   awsclients.Publisher
	topicARN string
	logger   logger.Logger
}

func NewDecisionPublisher(client awsclients.Publisher, topicARN string, log logger.Logger) (*DecisionPublisher, error) {
	if topicARN == "" {
		return nil, ErrMissingTopic
	}
	return &DecisionPublisher{
		client:   client,
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"channel": "sns"}),
	}, nil
}

func (p *DecisionPublisher) Publish(ctx context.Context, report *models.CreditAssessmentReport) (string, error) {
	body, err := json.Marshal(NewDecisionEvent(report))
	if err != nil {
		return "", stderrors.NewNotificationFailedError("sns", err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("Credit decision " + string(report.CreditDecision.Decision)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": stringAttribute(EventTypeDecision),
			"decision":  stringAttribute(string(report.CreditDecision.Decision)),
			"riskLevel": stringAttribute(string(report.RiskAssessment.RiskLevel)),
		},
	})
	if err != nil {
		return "", stderrors.NewNotificationFailedError("sns", err)
	}

	messageID := aws.ToString(out.MessageId)
	p.logger.Info("decision published", map[string]interface{}{
		"reportId":  report.ReportID,
		"messageId": messageID,
	})
	return messageID, nil
}

func (p *DecisionPublisher) Name() string { return "sns" }

func (p *DecisionPublisher) Deliver(ctx context.Context, report *models.CreditAssessmentReport) error {
	_, err := p.Publish(ctx, report)
	return err
}

func stringAttribute(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}
