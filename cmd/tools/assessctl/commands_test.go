package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/analyzers/analyzertest"
	"credit-assessment/internal/models"
	"credit-assessment/internal/service"
)

const testConfig = `
app:
  name: assessctl-test
logging:
  level: error
storage:
  driver: none
`

func writeFile(t *testing.T, name string, v interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var data []byte
	switch body := v.(type) {
	case string:
		data = []byte(body)
	default:
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := writeFile(t, "config.yaml", testConfig)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", cfg, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// ==========================
// validate
// ==========================

func TestValidateCommand(t *testing.T) {
	t.Run("valid application", func(t *testing.T) {
		out, err := run(t, "validate", writeFile(t, "app.json", analyzertest.Application()))
		require.NoError(t, err)

		var result models.ValidationResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.True(t, result.Valid)
	})

	t.Run("invalid application exits non-zero", func(t *testing.T) {
		app := analyzertest.Application()
		app.CreditHistory.CreditScore = 120

		out, err := run(t, "validate", writeFile(t, "app.json", app))
		assert.ErrorIs(t, err, errInvalidApplication)
		assert.Contains(t, out, "Credit score must be between")
	})

	t.Run("request body wrapper is accepted", func(t *testing.T) {
		body := map[string]interface{}{"application": analyzertest.Application()}
		_, err := run(t, "validate", writeFile(t, "req.json", body))
		assert.NoError(t, err)
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := run(t, "validate", filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})
}

// ==========================
// assess
// ==========================

func TestAssessCommand(t *testing.T) {
	path := writeFile(t, "app.json", analyzertest.Application())

	t.Run("envelope", func(t *testing.T) {
		out, err := run(t, "assess", path)
		require.NoError(t, err)

		var resp models.AssessmentResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Report)
		assert.Equal(t, "APP-TEST-0001", resp.Report.ApplicationID)
	})

	t.Run("stream", func(t *testing.T) {
		out, err := run(t, "assess", "--stream", path)
		require.NoError(t, err)

		var events []models.ProgressEvent
		sc := bufio.NewScanner(bytes.NewBufferString(out))
		sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for sc.Scan() {
			var ev models.ProgressEvent
			require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
			events = append(events, ev)
		}
		require.NotEmpty(t, events)
		assert.Equal(t, 0, events[0].Progress)
		last := events[len(events)-1]
		assert.Equal(t, service.StageComplete, last.Stage)
		assert.Equal(t, 100, last.Progress)
	})

	t.Run("validation failure", func(t *testing.T) {
		app := analyzertest.Application()
		app.LoanRequest.RequestedAmount = 0

		out, err := run(t, "assess", writeFile(t, "bad.json", app))
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, out, `"valid": false`)
	})
}

// ==========================
// policy
// ==========================

func TestPolicyShowCommand(t *testing.T) {
	out, err := run(t, "policy", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "version: \"2024.1\"")

	doc := writeFile(t, "policy.yaml", "policy:\n  version: \"2025.2\"\n")
	out, err = run(t, "policy", "show", "--file", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "2025.2")
}

func TestPolicyValidateCommand(t *testing.T) {
	good := writeFile(t, "good.yaml", "activate: true\npolicy:\n  version: \"2025.2\"\n")
	out, err := run(t, "policy", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "version 2025.2 ok")
	assert.Contains(t, out, "active: 2025.2")
	assert.Contains(t, out, "2024.1, 2025.2")

	bad := writeFile(t, "bad.yaml", "policy:\n  version: \"\"\n")
	_, err = run(t, "policy", "validate", bad)
	assert.Error(t, err)
}
