package remote

import (
	"time"

	"credit-assessment/internal/common/config"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

func LoadConfig(cfg config.RemoteConfig) *Config {
	c := &Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    30 * time.Second,
		MaxRetries: cfg.MaxRetries,
		Backoff:    100 * time.Millisecond,
	}
	if cfg.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.Timeout)
	}
	return c
}
