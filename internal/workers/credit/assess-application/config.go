// internal/workers/credit/assess-application/config.go
package assessapplication

import (
	"time"

	"credit-assessment/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	MaxJobsActive  int
	RequestTimeout time.Duration
}

func LoadConfig(cfg config.CamundaConfig) *Config {
	c := &Config{
		Timeout:        2 * time.Minute,
		MaxJobsActive:  cfg.MaxJobsActive,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Millisecond,
	}
	if cfg.Timeout > 0 {
		c.Timeout = time.Duration(cfg.Timeout) * time.Millisecond
	}
	if c.MaxJobsActive <= 0 {
		c.MaxJobsActive = 4
	}
	return c
}
