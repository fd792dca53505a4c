// internal/workers/assessment/score-assessment/config.go
package scoreassessment

import (
	"time"

	"assessment-workers/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	ResultCacheTTL time.Duration
	ResultsBaseURL string
	MaxRetries     int
}

func LoadConfig(cfg *config.Config) *Config {
	wc := cfg.GetWorkerConfig(TaskType)

	return &Config{
		Timeout:        cfg.GetDuration(wc.Timeout),
		ResultCacheTTL: cfg.GetDuration(cfg.Assessment.ResultCacheTTL),
		ResultsBaseURL: cfg.Assessment.ResultsBaseURL,
		MaxRetries:     wc.MaxRetries,
	}
}
