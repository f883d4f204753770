package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/models"
	"credit-assessment/internal/service"
)

const maxBodyBytes = 1 << 20

// errorBody is returned for requests rejected before an assessment runs.
type errorBody struct {
	Success   bool     `json:"success"`
	Error     string   `json:"error"`
	ErrorCode string   `json:"errorCode"`
	Issues    []string `json:"issues,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	view := s.svc.Config()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":     view.AppName,
		"version":     view.Version,
		"environment": view.Environment,
		"status":      "running",
		"endpoints": map[string]string{
			"assess":   "POST /api/v1/assess",
			"stream":   "POST /api/v1/assess/stream",
			"validate": "POST /api/v1/validate",
			"config":   "GET /api/v1/config",
			"reports":  "GET /api/v1/reports/{id}",
			"health":   "GET /health",
			"metrics":  "GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.clock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"version":       s.svc.Config().Version,
		"timestamp":     now.UTC().Format(time.RFC3339),
		"uptimeSeconds": int64(now.Sub(s.started).Seconds()),
	})
}

// handleReady runs the dependency checks concurrently and reports 503 if any
// of them fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(s.checks))
		ready   = true
	)
	for name, check := range s.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := "ok"
			if err := check(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = status
			if status != "ok" {
				ready = false
			}
		}()
	}
	wg.Wait()

	code, status := http.StatusOK, "ready"
	if !ready {
		code, status = http.StatusServiceUnavailable, "not_ready"
		failed := make([]string, 0, len(results))
		for name, st := range results {
			if st != "ok" {
				failed = append(failed, name)
			}
		}
		sort.Strings(failed)
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
	}
	writeJSON(w, code, map[string]interface{}{"status": status, "checks": results})
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req models.AssessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.svc.Assess(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	code := http.StatusOK
	if !resp.Success {
		code = stderrors.HTTPStatus(stderrors.ErrorCode(resp.ErrorCode))
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var app models.LoanApplication
	if err := decodeJSON(w, r, &app); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Validate(&app))
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Config())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Report(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return stderrors.NewInvalidInputError("request body is empty")
		}
		return stderrors.NewInvalidInputError(fmt.Sprintf("decode request: %v", err))
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), ErrorCode: string(stderrors.ErrCodeSystemFailure)}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		body.Issues = verr.Result.Issues
		body.Warnings = verr.Result.Warnings
	}
	code := http.StatusInternalServerError
	if stdErr, ok := stderrors.AsStandardError(err); ok {
		body.ErrorCode = string(stdErr.Code)
		body.Error = stdErr.Message
		if stdErr.Details != "" {
			body.Error += ": " + stdErr.Details
		}
		code = stderrors.HTTPStatus(stdErr.Code)
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
