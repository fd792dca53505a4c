// internal/workers/crm/register-lead/config.go
package registerlead

import (
	"time"

	"assessment-workers/internal/common/config"
)

type Config struct {
	Timeout    time.Duration
	APIKey     string
	AuthToken  string
	MaxRetries int
}

func LoadConfig(cfg *config.Config) *Config {
	wc := cfg.GetWorkerConfig(TaskType)

	return &Config{
		Timeout:    cfg.GetDuration(wc.Timeout),
		APIKey:     cfg.CRM.Zoho.APIKey,
		AuthToken:  cfg.CRM.Zoho.AuthToken,
		MaxRetries: wc.MaxRetries,
	}
}
