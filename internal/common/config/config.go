// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Policy        PolicyConfig       `mapstructure:"policy"`
	Analyzers     AnalyzersConfig    `mapstructure:"analyzers"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Camunda       CamundaConfig      `mapstructure:"camunda"`
	Tracing       TracingConfig      `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds; 0 disables, streaming responses are long-lived
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PolicyConfig points at the versioned credit policy document and carries the
// request-level limits exposed through config introspection.
type PolicyConfig struct {
	Path           string  `mapstructure:"path"`
	MinCreditScore int     `mapstructure:"min_credit_score"`
	MaxCreditScore int     `mapstructure:"max_credit_score"`
	MaxDTIRatio    float64 `mapstructure:"max_dti_ratio"`
	Currency       string  `mapstructure:"currency"`
	QuoteRate      float64 `mapstructure:"quote_rate"` // annual rate used for the pre-assessment payment estimate
}

// AnalyzersConfig selects how each stage's judgment is produced.
type AnalyzersConfig struct {
	Mode   string            `mapstructure:"mode"`   // "rule" or "remote"
	Stages map[string]string `mapstructure:"stages"` // per-stage mode override keyed by stage name
	Remote RemoteConfig      `mapstructure:"remote"`
}

type RemoteConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// ModeFor returns the analyzer mode configured for a stage.
func (a AnalyzersConfig) ModeFor(stage string) string {
	if mode, ok := a.Stages[stage]; ok && mode != "" {
		return mode
	}
	return a.Mode
}

// StorageConfig selects the report store backend.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"` // "none", "sqlite" or "postgres"
	SQLitePath string `mapstructure:"sqlite_path"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	ReportTTL int    `mapstructure:"report_ttl"` // seconds
}

// NotificationConfig holds settings for decision notifications.
type NotificationConfig struct {
	Region string `mapstructure:"region"`
	SNS    struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled    bool     `mapstructure:"enabled"`
		FromEmail  string   `mapstructure:"from_email"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"ses"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type TracingConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Project          string `mapstructure:"project"`
	TraceURLTemplate string `mapstructure:"trace_url_template"` // fmt template receiving the correlation id
}
