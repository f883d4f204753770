// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CREDIT"

// Load reads .env, configs/config.yaml (optional), configs/config.<env>.yaml
// (optional) and CREDIT_* environment variables.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnv(v)
	return v
}

// bindEnv registers keys that have no file default so AutomaticEnv can see them
// during Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"app.environment",
		"server.port",
		"logging.level",
		"logging.format",
		"policy.path",
		"analyzers.mode",
		"analyzers.remote.base_url",
		"analyzers.remote.api_key",
		"storage.driver",
		"storage.sqlite_path",
		"database.postgres.host",
		"database.postgres.user",
		"database.postgres.password",
		"database.postgres.database",
		"database.redis.enabled",
		"database.redis.address",
		"database.redis.password",
		"database.elasticsearch.enabled",
		"notifications.sns.topic_arn",
		"camunda.enabled",
		"camunda.broker_address",
		"tracing.enabled",
	} {
		_ = v.BindEnv(key)
	}
}

func unmarshal(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "Credit Risk Assessment AI"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Policy.MinCreditScore == 0 {
		cfg.Policy.MinCreditScore = 300
	}
	if cfg.Policy.MaxCreditScore == 0 {
		cfg.Policy.MaxCreditScore = 850
	}
	if cfg.Policy.MaxDTIRatio == 0 {
		cfg.Policy.MaxDTIRatio = 0.43
	}
	if cfg.Policy.Currency == "" {
		cfg.Policy.Currency = "EUR"
	}
	if cfg.Policy.QuoteRate == 0 {
		cfg.Policy.QuoteRate = 0.05
	}

	if cfg.Analyzers.Mode == "" {
		cfg.Analyzers.Mode = "rule"
	}
	if cfg.Analyzers.Remote.Timeout == 0 {
		cfg.Analyzers.Remote.Timeout = 30000
	}
	if cfg.Analyzers.Remote.MaxRetries == 0 {
		cfg.Analyzers.Remote.MaxRetries = 2
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "none"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "credit-reports.db"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.ReportTTL == 0 {
		cfg.Database.Redis.ReportTTL = 86400
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "credit-decisions"
	}

	if cfg.Notifications.Region == "" {
		cfg.Notifications.Region = "eu-west-1"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 120000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Tracing.Project == "" {
		cfg.Tracing.Project = "credit-risk-assessment"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Policy.MinCreditScore >= cfg.Policy.MaxCreditScore {
		return fmt.Errorf("policy.min_credit_score must be below policy.max_credit_score")
	}
	if cfg.Policy.MaxDTIRatio <= 0 || cfg.Policy.MaxDTIRatio > 1 {
		return fmt.Errorf("policy.max_dti_ratio must be within (0, 1]")
	}

	switch cfg.Analyzers.Mode {
	case "rule", "remote":
	default:
		return fmt.Errorf("analyzers.mode must be rule or remote, got %q", cfg.Analyzers.Mode)
	}
	remoteUsed := cfg.Analyzers.Mode == "remote"
	for stage, mode := range cfg.Analyzers.Stages {
		switch mode {
		case "rule":
		case "remote":
			remoteUsed = true
		default:
			return fmt.Errorf("analyzers.stages.%s must be rule or remote, got %q", stage, mode)
		}
	}
	if remoteUsed && cfg.Analyzers.Remote.BaseURL == "" {
		return fmt.Errorf("analyzers.remote.base_url is required when a remote analyzer is configured")
	}

	switch cfg.Storage.Driver {
	case "none", "sqlite":
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	default:
		return fmt.Errorf("storage.driver must be none, sqlite or postgres, got %q", cfg.Storage.Driver)
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required")
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required")
	}
	if cfg.Notifications.SES.Enabled && (cfg.Notifications.SES.FromEmail == "" || len(cfg.Notifications.SES.Recipients) == 0) {
		return fmt.Errorf("notifications.ses.from_email and recipients are required")
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
