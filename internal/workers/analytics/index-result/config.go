// internal/workers/analytics/index-result/config.go
package indexresult

import (
	"time"

	"assessment-workers/internal/common/config"
)

type Config struct {
	Timeout    time.Duration
	Index      string
	MaxRetries int
}

func LoadConfig(cfg *config.Config) *Config {
	wc := cfg.GetWorkerConfig(TaskType)

	return &Config{
		Timeout:    cfg.GetDuration(wc.Timeout),
		Index:      cfg.Analytics.Index,
		MaxRetries: wc.MaxRetries,
	}
}
