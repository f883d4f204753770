package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/analyzers"
	"credit-assessment/internal/analyzers/analyzertest"
	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/validation"
	"credit-assessment/internal/models"
)

func newFinancial(t *testing.T, url string, retries int, timeout time.Duration) *Analyzer[analyzers.FinancialInput, models.FinancialSummary] {
	cfg := &Config{BaseURL: url, APIKey: "secret", Timeout: timeout, MaxRetries: retries, Backoff: time.Millisecond}
	return New[analyzers.FinancialInput, models.FinancialSummary](
		analyzers.FinancialCollector, validation.SchemaFinancialSummary, cfg, logger.NewTestLogger(t))
}

func input() analyzers.FinancialInput {
	return analyzers.FinancialInput{Base: analyzertest.Base(analyzertest.Application())}
}

func TestAnalyze_Success(t *testing.T) {
	want := analyzertest.ApprovedOutputs().Financial
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analyzers/financial-collector", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "financial-collector", req["stage"])
		assert.Equal(t, "credit-20240615-103000-0a1b2c3d", req["correlationId"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"output": want, "model": "scorer-v2"})
	}))
	defer srv.Close()

	got, err := newFinancial(t, srv.URL, 0, time.Second).Analyze(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAnalyze_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"output": analyzertest.ApprovedOutputs().Financial})
	}))
	defer srv.Close()

	_, err := newFinancial(t, srv.URL, 2, time.Second).Analyze(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAnalyze_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad input", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newFinancial(t, srv.URL, 3, time.Second).Analyze(context.Background(), input())

	var failure *analyzers.Failure
	require.ErrorAs(t, err, &failure)
	assert.ErrorIs(t, err, ErrAnalyzerUnavailable)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "bad input")
	assert.False(t, stderrors.Normalize(err).Retryable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAnalyze_ServerErrorKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newFinancial(t, srv.URL, 1, time.Second).Analyze(context.Background(), input())

	assert.ErrorIs(t, err, ErrAnalyzerUnavailable)
	assert.NotErrorIs(t, err, ErrRejected)
	stdErr, ok := stderrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeAnalyzerFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, err.Error(), "status 503")
}

func TestAnalyze_RejectsOffSchemaOutput(t *testing.T) {
	bad := analyzertest.ApprovedOutputs().Financial
	bad.IncomeStabilityScore = 140
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"output": bad})
	}))
	defer srv.Close()

	_, err := newFinancial(t, srv.URL, 0, time.Second).Analyze(context.Background(), input())

	stdErr, ok := stderrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeSchemaValidationFailed, stdErr.Code)
}

func TestAnalyze_MissingOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"x"}`))
	}))
	defer srv.Close()

	_, err := newFinancial(t, srv.URL, 0, time.Second).Analyze(context.Background(), input())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestAnalyze_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := newFinancial(t, srv.URL, 0, 20*time.Millisecond).Analyze(context.Background(), input())

	stdErr, ok := stderrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeAnalyzerTimeout, stdErr.Code)
}
