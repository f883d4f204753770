package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
)

const DefaultIndex = "credit-decisions"

// DecisionDocument is the searchable summary of one report.
type DecisionDocument struct {
	ReportID       string              `json:"reportId"`
	ApplicationID  string              `json:"applicationId"`
	CorrelationID  string              `json:"correlationId"`
	ReportDate     time.Time           `json:"reportDate"`
	Decision       models.DecisionType `json:"decision"`
	Confidence     float64             `json:"confidence"`
	RiskLevel      models.RiskLevel    `json:"riskLevel"`
	RiskScore      int                 `json:"riskScore"`
	ProjectedDTI   float64             `json:"projectedDti"`
	LoanToValue    float64             `json:"loanToValue"`
	ApprovedAmount float64             `json:"approvedAmount,omitempty"`
	InterestRate   float64             `json:"interestRate,omitempty"`
	PolicyVersion  string              `json:"policyVersion"`
}

func NewDecisionDocument(r *models.CreditAssessmentReport) DecisionDocument {
	doc := DecisionDocument{
		ReportID:      r.ReportID,
		ApplicationID: r.ApplicationID,
		CorrelationID: r.TraceID,
		ReportDate:    r.ReportDate,
		Decision:      r.CreditDecision.Decision,
		Confidence:    r.CreditDecision.Confidence,
		RiskLevel:     r.RiskAssessment.RiskLevel,
		RiskScore:     r.RiskAssessment.RiskScore,
		ProjectedDTI:  r.DebtAnalysis.ProjectedDTI,
		LoanToValue:   r.CollateralEvaluation.LoanToValueRatio,
		PolicyVersion: r.PolicyVersion,
	}
	if t := r.CreditDecision.LoanTerms; t != nil {
		doc.ApprovedAmount = t.ApprovedAmount
		doc.InterestRate = t.InterestRate
	}
	return doc
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "reportId":      {"type": "keyword"},
      "applicationId": {"type": "keyword"},
      "correlationId": {"type": "keyword"},
      "reportDate":    {"type": "date"},
      "decision":      {"type": "keyword"},
      "riskLevel":     {"type": "keyword"},
      "riskScore":     {"type": "integer"},
      "confidence":    {"type": "float"},
      "projectedDti":  {"type": "float"},
      "loanToValue":   {"type": "float"},
      "policyVersion": {"type": "keyword"}
    }
  }
}`

// Indexer writes decision summaries to Elasticsearch.
type Indexer struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(es *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = DefaultIndex
	}
	return &Indexer{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"store": "elasticsearch", "index": index}),
	}
}

// EnsureIndex creates the index with its mapping when it is missing.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{i.index}}.Do(ctx, i.es)
	if err != nil {
		return stderrors.NewStoreFailedError("index-exists", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: i.index, Body: strings.NewReader(indexMapping)}.Do(ctx, i.es)
	if err != nil {
		return stderrors.NewStoreFailedError("index-create", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return stderrors.NewStoreFailedError("index-create", responseError(res))
	}
	i.logger.Info("index created", nil)
	return nil
}

func (i *Indexer) Index(ctx context.Context, report *models.CreditAssessmentReport) error {
	body, err := json.Marshal(NewDecisionDocument(report))
	if err != nil {
		return stderrors.NewStoreFailedError("encode", err)
	}

	res, err := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: report.ReportID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, i.es)
	if err != nil {
		return stderrors.NewStoreFailedError("index", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return stderrors.NewStoreFailedError("index", responseError(res))
	}

	i.logger.Debug("decision indexed", map[string]interface{}{"reportId": report.ReportID})
	return nil
}

func (i *Indexer) Name() string { return "search-index" }

func (i *Indexer) Deliver(ctx context.Context, report *models.CreditAssessmentReport) error {
	return i.Index(ctx, report)
}

func responseError(res *esapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s: %s", res.Status(), strings.TrimSpace(string(msg)))
}
