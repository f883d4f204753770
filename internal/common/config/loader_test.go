package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  environment: test\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Credit Risk Assessment AI", cfg.App.Name)
	assert.Equal(t, "1.0.0", cfg.App.Version)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 300, cfg.Policy.MinCreditScore)
	assert.Equal(t, 850, cfg.Policy.MaxCreditScore)
	assert.InDelta(t, 0.43, cfg.Policy.MaxDTIRatio, 1e-9)
	assert.InDelta(t, 0.05, cfg.Policy.QuoteRate, 1e-9)
	assert.Equal(t, "EUR", cfg.Policy.Currency)
	assert.Equal(t, "rule", cfg.Analyzers.Mode)
	assert.Equal(t, "none", cfg.Storage.Driver)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("CREDIT_SERVER_PORT", "9090")
	t.Setenv("CREDIT_STORAGE_DRIVER", "sqlite")
	path := writeConfig(t, "server:\n  port: 8081\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("JUDGE_URL", "http://judge:9000")
	path := writeConfig(t, `
analyzers:
  mode: remote
  remote:
    base_url: ${JUDGE_URL}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://judge:9000", cfg.Analyzers.Remote.BaseURL)
	assert.Equal(t, "remote", cfg.Analyzers.ModeFor("risk-scorer"))
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"remote without url", "analyzers:\n  mode: remote\n", "analyzers.remote.base_url"},
		{"stage override without url", "analyzers:\n  stages:\n    risk-scorer: remote\n", "analyzers.remote.base_url"},
		{"unknown mode", "analyzers:\n  mode: oracle\n", "analyzers.mode"},
		{"unknown driver", "storage:\n  driver: mongo\n", "storage.driver"},
		{"postgres without host", "storage:\n  driver: postgres\n", "database.postgres.host"},
		{"dti out of range", "policy:\n  max_dti_ratio: 1.5\n", "max_dti_ratio"},
		{"redis without address", "database:\n  redis:\n    enabled: true\n", "database.redis.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestModeFor(t *testing.T) {
	a := AnalyzersConfig{Mode: "rule", Stages: map[string]string{"decision-writer": "remote"}}
	assert.Equal(t, "remote", a.ModeFor("decision-writer"))
	assert.Equal(t, "rule", a.ModeFor("income-analyzer"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
