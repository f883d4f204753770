// test/e2e/e2e_test.go
package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/analyzers/analyzertest"
	"credit-assessment/internal/app"
	awsclients "credit-assessment/internal/common/aws"
	"credit-assessment/internal/common/config"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
	"credit-assessment/internal/notify"
)

// searchBackend records the documents the indexer writes.
type searchBackend struct {
	mu      sync.Mutex
	created bool
	docs    map[string][]byte
}

func (b *searchBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		if !b.created {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && !strings.Contains(r.URL.Path, "/_doc/"):
		b.created = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut:
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		b.docs[id] = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *searchBackend) doc(id string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[id]
	return d, ok
}

type recordingSNS struct {
	mu    sync.Mutex
	calls []*sns.PublishInput
}

func (m *recordingSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, in)
	id := fmt.Sprintf("msg-%d", len(m.calls))
	return &sns.PublishOutput{MessageId: &id}, nil
}

type recordingSES struct {
	mu    sync.Mutex
	calls []*ses.SendEmailInput
}

func (m *recordingSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, in)
	return &ses.SendEmailOutput{}, nil
}

type environment struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	search *searchBackend
	sns    *recordingSNS
	ses    *recordingSES
}

const configTemplate = `
app:
  name: credit-assessment-e2e
  environment: test
logging:
  level: error
storage:
  driver: sqlite
  sqlite_path: "file:%s?mode=memory&cache=shared"
database:
  redis:
    enabled: true
    address: %s
    report_ttl: 600
  elasticsearch:
    enabled: true
    addresses: [%s]
notifications:
  region: eu-west-1
  sns:
    enabled: true
    topic_arn: arn:aws:sns:eu-west-1:000000000000:credit-decisions
  ses:
    enabled: true
    from_email: credit@example.com
    recipients: [underwriting@example.com]
camunda:
  enabled: true
  broker_address: localhost:26500
`

func setup(t *testing.T) *environment {
	t.Helper()
	env := &environment{
		redis:  miniredis.RunT(t),
		search: &searchBackend{docs: map[string][]byte{}},
		sns:    &recordingSNS{},
		ses:    &recordingSES{},
	}
	es := httptest.NewServer(env.search)
	t.Cleanup(es.Close)

	path := filepath.Join(t.TempDir(), "config.yaml")
	dbName := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	body := fmt.Sprintf(configTemplate, dbName, env.redis.Addr(), es.URL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	a, err := app.Build(context.Background(), cfg, app.Options{
		TraceWriter: io.Discard,
		AWS:         &awsclients.Clients{SNS: env.sns, SES: env.ses},
		SkipWorker:  true,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	env.server = httptest.NewServer(a.Server.Handler())
	t.Cleanup(func() {
		env.server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return env
}

func (e *environment) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *environment) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ==========================
// Full flow
// ==========================

func TestAssessmentFlow(t *testing.T) {
	env := setup(t)

	ready := env.get(t, "/ready")
	require.Equal(t, http.StatusOK, ready.StatusCode)

	resp := env.post(t, "/api/v1/assess", map[string]interface{}{
		"application": analyzertest.Application(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	envelope := decode[models.AssessmentResponse](t, resp)
	require.True(t, envelope.Success)
	require.NotNil(t, envelope.Report)
	report := envelope.Report
	require.NotNil(t, envelope.CorrelationReference)
	correlationID := *envelope.CorrelationReference
	assert.True(t, strings.HasPrefix(correlationID, "credit-"))
	assert.Equal(t, correlationID, report.TraceID)

	t.Run("report is served from the cache", func(t *testing.T) {
		assert.True(t, env.redis.Exists("credit:report:"+report.ReportID))

		got := env.get(t, "/api/v1/reports/"+report.ReportID)
		require.Equal(t, http.StatusOK, got.StatusCode)
		stored := decode[models.CreditAssessmentReport](t, got)
		assert.Equal(t, report.ApplicationID, stored.ApplicationID)
		assert.Equal(t, report.CreditDecision.Decision, stored.CreditDecision.Decision)
	})

	t.Run("report survives cache expiry", func(t *testing.T) {
		env.redis.FastForward(time.Hour)
		require.False(t, env.redis.Exists("credit:report:"+report.ReportID))

		got := env.get(t, "/api/v1/reports/"+report.ReportID)
		require.Equal(t, http.StatusOK, got.StatusCode)
		assert.True(t, env.redis.Exists("credit:report:"+report.ReportID), "lookup refills the cache")
	})

	t.Run("decision is indexed", func(t *testing.T) {
		doc, ok := env.search.doc(report.ReportID)
		require.True(t, ok)
		var indexed map[string]interface{}
		require.NoError(t, json.Unmarshal(doc, &indexed))
		assert.Equal(t, string(report.CreditDecision.Decision), indexed["decision"])
		assert.Equal(t, correlationID, indexed["correlationId"])
	})

	t.Run("notifications are sent", func(t *testing.T) {
		require.Len(t, env.sns.calls, 1)
		assert.Contains(t, *env.sns.calls[0].Message, report.ReportID)

		wantEmail := slices.Contains(notify.DefaultEmailDecisions, report.CreditDecision.Decision)
		if wantEmail {
			assert.Len(t, env.ses.calls, 1)
		} else {
			assert.Empty(t, env.ses.calls)
		}
	})

	t.Run("unknown report", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, env.get(t, "/api/v1/reports/missing").StatusCode)
	})
}

func TestInvalidApplicationIsRejected(t *testing.T) {
	env := setup(t)

	app := analyzertest.Application()
	app.LoanRequest.RequestedTermMonths = 0
	resp := env.post(t, "/api/v1/assess", map[string]interface{}{"application": app})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, env.sns.calls, "nothing is published for a rejected application")
	assert.Empty(t, env.search.docs)
}

func TestStreamingFlow(t *testing.T) {
	env := setup(t)

	resp := env.post(t, "/api/v1/assess/stream", map[string]interface{}{
		"application": analyzertest.SecuredApplication(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []models.ProgressEvent
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var ev models.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, 100, last.Progress)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Progress, events[i-1].Progress, "progress never goes back")
	}

	reportID, _ := last.Data["reportId"].(string)
	require.NotEmpty(t, reportID)
	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/reports/"+reportID).StatusCode)
	assert.Len(t, env.sns.calls, 1)
}
