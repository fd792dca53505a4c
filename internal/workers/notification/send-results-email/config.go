// internal/workers/notification/send-results-email/config.go
package sendresultsemail

import (
	"time"

	"assessment-workers/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	EmailEnabled   bool
	SMSEnabled     bool
	FromEmail      string
	SalesPhone     string
	AWSRegion      string
	ResultsBaseURL string
	MaxRetries     int
}

func LoadConfig(cfg *config.Config) *Config {
	wc := cfg.GetWorkerConfig(TaskType)

	return &Config{
		Timeout:        cfg.GetDuration(wc.Timeout),
		EmailEnabled:   cfg.Notifications.Email.Enabled,
		SMSEnabled:     cfg.Notifications.SMS.Enabled,
		FromEmail:      cfg.Notifications.Email.FromEmail,
		SalesPhone:     cfg.Notifications.SMS.SalesPhone,
		AWSRegion:      cfg.Notifications.AWS.Region,
		ResultsBaseURL: cfg.Assessment.ResultsBaseURL,
		MaxRetries:     wc.MaxRetries,
	}
}
