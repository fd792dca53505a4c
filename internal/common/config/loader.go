// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	v := viper.New()

	// Set config file details
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Enable environment variable support
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is okay, we'll use env vars and defaults
	}

	// Expand ${VAR} placeholders in string values before unmarshalling
	expandEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references in all string settings with
// the value of the corresponding environment variable.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		value := v.Get(key)
		if str, ok := value.(string); ok {
			expanded := envVarPattern.ReplaceAllStringFunc(str, func(match string) string {
				name := envVarPattern.FindStringSubmatch(match)[1]
				if env, found := os.LookupEnv(name); found {
					return env
				}
				return match
			})
			v.Set(key, expanded)
		}
	}
}

// applyDefaults fills in sensible defaults for anything the file and
// environment left unset.
func applyDefaults(config *Config) {
	if config.App.Name == "" {
		config.App.Name = "assessment-workers"
	}
	if config.App.Environment == "" {
		config.App.Environment = "development"
	}

	if config.Camunda.BrokerAddress == "" {
		config.Camunda.BrokerAddress = "localhost:26500"
	}
	if config.Camunda.MaxJobsActive == 0 {
		config.Camunda.MaxJobsActive = 32
	}
	if config.Camunda.Timeout == 0 {
		config.Camunda.Timeout = 30000
	}
	if config.Camunda.RequestTimeout == 0 {
		config.Camunda.RequestTimeout = 10000
	}

	if config.Database.Postgres.Port == 0 {
		config.Database.Postgres.Port = 5432
	}
	if config.Database.Postgres.MaxConnections == 0 {
		config.Database.Postgres.MaxConnections = 25
	}
	if config.Database.Postgres.MaxIdle == 0 {
		config.Database.Postgres.MaxIdle = 5
	}
	if config.Database.Postgres.SSLMode == "" {
		config.Database.Postgres.SSLMode = "disable"
	}
	if config.Database.Redis.Address == "" {
		config.Database.Redis.Address = "localhost:6379"
	}

	if config.Assessment.ConfigCacheTTL == 0 {
		config.Assessment.ConfigCacheTTL = 60000
	}
	if config.Assessment.ResultCacheTTL == 0 {
		config.Assessment.ResultCacheTTL = 3600000
	}
	if config.Assessment.PacksDir == "" {
		config.Assessment.PacksDir = "./configs/customization"
	}

	if config.Analytics.Index == "" {
		config.Analytics.Index = "assessment-results"
	}

	if config.Notifications.AWS.Region == "" {
		config.Notifications.AWS.Region = "us-east-1"
	}

	if config.Observability.MetricsAddress == "" {
		config.Observability.MetricsAddress = ":8080"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "json"
	}
	if config.Logging.Output == "" {
		config.Logging.Output = "stdout"
	}

	if config.Workers == nil {
		config.Workers = make(map[string]WorkerConfig)
	}
	for name, wc := range config.Workers {
		if wc.MaxJobsActive == 0 {
			wc.MaxJobsActive = 10
		}
		if wc.Timeout == 0 {
			wc.Timeout = 30000
		}
		if wc.MaxRetries == 0 {
			wc.MaxRetries = 3
		}
		config.Workers[name] = wc
	}
}

// validateConfig checks the settings that no worker can run without.
func validateConfig(config *Config) error {
	if config.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if config.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if config.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if config.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if config.Notifications.Email.Enabled && config.Notifications.Email.FromEmail == "" {
		return fmt.Errorf("notifications.email.from_email is required when email is enabled")
	}
	if config.Notifications.SMS.Enabled && config.Notifications.SMS.SalesPhone == "" {
		return fmt.Errorf("notifications.sms.sales_phone is required when sms is enabled")
	}
	if config.Assessment.ConfigCacheTTL < 0 {
		return fmt.Errorf("assessment.config_cache_ttl must not be negative")
	}
	return nil
}

// GetDuration converts milliseconds config values to time.Duration
func (c *Config) GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig returns configuration for a specific worker with
// fleet-level fallbacks applied.
func (c *Config) GetWorkerConfig(workerName string) WorkerConfig {
	if wc, exists := c.Workers[workerName]; exists {
		return wc
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: c.Camunda.MaxJobsActive,
		Timeout:       c.Camunda.Timeout,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled reports whether a worker should be started.
func (c *Config) IsWorkerEnabled(workerName string) bool {
	wc, exists := c.Workers[workerName]
	if !exists {
		return true
	}
	return wc.Enabled
}
