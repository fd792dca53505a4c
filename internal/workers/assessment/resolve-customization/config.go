// internal/workers/assessment/resolve-customization/config.go
package resolvecustomization

import (
	"time"

	"assessment-workers/internal/common/config"
)

type Config struct {
	Timeout    time.Duration
	PacksDir   string
	MaxRetries int
}

func LoadConfig(cfg *config.Config) *Config {
	wc := cfg.GetWorkerConfig(TaskType)

	return &Config{
		Timeout:    cfg.GetDuration(wc.Timeout),
		PacksDir:   cfg.Assessment.PacksDir,
		MaxRetries: wc.MaxRetries,
	}
}
