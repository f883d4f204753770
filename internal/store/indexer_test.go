package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
)

type esRequest struct {
	method string
	path   string
	body   []byte
}

// fakeElasticsearch answers the handful of endpoints the indexer uses.
type fakeElasticsearch struct {
	mu          sync.Mutex
	requests    []esRequest
	indexExists bool
	indexStatus int
}

func (f *fakeElasticsearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, esRequest{method: r.Method, path: r.URL.Path, body: body})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodHead:
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/credit-decisions":
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	default:
		status := f.indexStatus
		if status == 0 {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}
}

func newTestIndexer(t *testing.T, fake *fakeElasticsearch) *Indexer {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndexer(es, "", logger.NewTestLogger(t))
}

func TestIndexer_IndexesDecisionDocument(t *testing.T) {
	fake := &fakeElasticsearch{}
	idx := newTestIndexer(t, fake)

	require.NoError(t, idx.Deliver(context.Background(), sampleReport("rpt-1")))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/credit-decisions/_doc/rpt-1", req.path)

	var doc DecisionDocument
	require.NoError(t, json.Unmarshal(req.body, &doc))
	assert.Equal(t, models.DecisionApproved, doc.Decision)
	assert.Equal(t, models.RiskVeryLow, doc.RiskLevel)
	assert.Equal(t, 0.2755, doc.ProjectedDTI)
	assert.Equal(t, 20000.0, doc.ApprovedAmount)
	assert.Equal(t, "credit-20240615-103000-0a1b2c3d", doc.CorrelationID)
}

func TestIndexer_ErrorResponse(t *testing.T) {
	idx := newTestIndexer(t, &fakeElasticsearch{indexStatus: http.StatusServiceUnavailable})

	err := idx.Index(context.Background(), sampleReport("rpt-1"))
	assertCode(t, err, stderrors.ErrCodeStoreFailed)
	stdErr, _ := stderrors.AsStandardError(err)
	assert.Contains(t, stdErr.Details, "503")
}

func TestIndexer_EnsureIndex(t *testing.T) {
	t.Run("creates a missing index", func(t *testing.T) {
		fake := &fakeElasticsearch{}
		require.NoError(t, newTestIndexer(t, fake).EnsureIndex(context.Background()))

		require.Len(t, fake.requests, 2)
		assert.Equal(t, http.MethodHead, fake.requests[0].method)
		assert.Equal(t, http.MethodPut, fake.requests[1].method)
		assert.Contains(t, string(fake.requests[1].body), `"decision":`)
	})

	t.Run("leaves an existing index alone", func(t *testing.T) {
		fake := &fakeElasticsearch{indexExists: true}
		require.NoError(t, newTestIndexer(t, fake).EnsureIndex(context.Background()))
		assert.Len(t, fake.requests, 1)
	})
}
