// Package remote implements analyzers backed by an external judgment
// service. Each stage input is posted as JSON and the response is checked
// against the stage output schema before it is returned.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"credit-assessment/internal/analyzers"
	stderrors "credit-assessment/internal/common/errors"
	httpclient "credit-assessment/internal/common/http"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/common/validation"
)

var (
	ErrAnalyzerUnavailable = errors.New("ANALYZER_UNAVAILABLE")
	ErrInvalidResponse     = errors.New("INVALID_ANALYZER_RESPONSE")
	// ErrRejected marks a status the service will not change its mind about.
	ErrRejected = errors.New("ANALYZER_REJECTED")
)

type request[In any] struct {
	Stage         string `json:"stage"`
	CorrelationID string `json:"correlationId"`
	FastMode      bool   `json:"fastMode"`
	Input         In     `json:"input"`
}

type response[Out any] struct {
	Output *Out   `json:"output"`
	Model  string `json:"model,omitempty"`
}

// Analyzer posts stage inputs to {BaseURL}/v1/analyzers/{stage}.
type Analyzer[In analyzers.StageInput, Out any] struct {
	name   string
	schema string
	config *Config
	client *http.Client
	logger logger.Logger
}

func New[In analyzers.StageInput, Out any](name, schema string, config *Config, log logger.Logger) *Analyzer[In, Out] {
	return &Analyzer[In, Out]{
		name:   name,
		schema: schema,
		config: config,
		client: httpclient.NewClient(0),
		logger: log.WithFields(map[string]interface{}{"analyzer": name, "mode": "remote"}),
	}
}

// WithHTTPClient replaces the transport client, keeping its instrumentation
// up to the caller.
func (a *Analyzer[In, Out]) WithHTTPClient(c *http.Client) *Analyzer[In, Out] {
	a.client = c
	return a
}

func (a *Analyzer[In, Out]) Name() string { return a.name }

func (a *Analyzer[In, Out]) Analyze(ctx context.Context, in In) (Out, error) {
	var zero Out

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	base := in.Common()
	correlationID := base.CorrelationID
	body, err := json.Marshal(request[In]{Stage: a.name, CorrelationID: correlationID, FastMode: base.FastMode, Input: in})
	if err != nil {
		return zero, analyzers.Fail(a.name, fmt.Errorf("%w: encode request: %v", ErrInvalidResponse, err))
	}

	start := time.Now()
	payload, err := a.post(ctx, body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return zero, analyzers.Fail(a.name, stderrors.NewAnalyzerTimeoutError(a.name, a.config.Timeout))
		}
		if errors.Is(err, ErrRejected) {
			return zero, analyzers.Fail(a.name, err)
		}
		return zero, analyzers.Fail(a.name, stderrors.NewAnalyzerFailedError(a.name, err))
	}

	var resp response[Out]
	if err := json.Unmarshal(payload, &resp); err != nil {
		return zero, analyzers.Fail(a.name, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}
	if resp.Output == nil {
		return zero, analyzers.Fail(a.name, fmt.Errorf("%w: missing output", ErrInvalidResponse))
	}

	a.logger.Info("remote analysis completed", map[string]interface{}{
		"correlationId": correlationID,
		"model":         resp.Model,
		"durationMs":    time.Since(start).Milliseconds(),
	})
	if err := validation.ValidateStageOutput(a.schema, resp.Output); err != nil {
		return zero, analyzers.Fail(a.name, err)
	}
	return *resp.Output, nil
}

// post sends body with exponential backoff. Transport errors, 429 and 5xx
// responses are retried; other statuses fail immediately.
func (a *Analyzer[In, Out]) post(ctx context.Context, body []byte) ([]byte, error) {
	url := strings.TrimRight(a.config.BaseURL, "/") + "/v1/analyzers/" + a.name

	var lastErr error
	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.config.Backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAnalyzerUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if a.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			a.logger.Warn("remote analyzer request failed", map[string]interface{}{"attempt": attempt + 1, "error": err.Error()})
			continue
		}

		payload, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, fmt.Errorf("%w: read body: %v", ErrAnalyzerUnavailable, readErr)
			}
			return payload, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			a.logger.Warn("remote analyzer returned retryable status", map[string]interface{}{
				"attempt": attempt + 1,
				"status":  resp.StatusCode,
			})
		default:
			return nil, fmt.Errorf("%w: %w: status %d: %s", ErrAnalyzerUnavailable, ErrRejected, resp.StatusCode, strings.TrimSpace(string(payload)))
		}
	}
	return nil, fmt.Errorf("%w: %d attempts: %v", ErrAnalyzerUnavailable, a.config.MaxRetries+1, lastErr)
}
