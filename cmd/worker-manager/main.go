// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"assessment-workers/internal/common/camunda"
	"assessment-workers/internal/common/config"
	"assessment-workers/internal/common/database"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/common/observability"
	"assessment-workers/internal/scoring/loader"
	"assessment-workers/pkg/registry"

	// Assessment Workers (2)
	rc "assessment-workers/internal/workers/assessment/resolve-customization"
	sa "assessment-workers/internal/workers/assessment/score-assessment"

	// Notification Workers (1)
	sre "assessment-workers/internal/workers/notification/send-results-email"

	// CRM Workers (1)
	rl "assessment-workers/internal/workers/crm/register-lead"

	// Analytics Workers (1)
	ir "assessment-workers/internal/workers/analytics/index-result"
)

const registryPath = "./configs/activity-registry.json"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.App.Name, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Activity Registry ---
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	zapLog.Info("Activity registry loaded",
		zap.String("version", reg.Version),
		zap.Int("activities", len(reg.Activities)),
	)

	// --- Init Camunda Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Scoring Config Loader ---
	// Warmed eagerly: a missing or malformed config table is a deployment
	// error and every scoring job would fail anyway.
	configLoader := loader.NewCached(
		loader.New(pg.DB, log),
		cfg.GetDuration(cfg.Assessment.ConfigCacheTTL),
	)
	err = retryWithBackoff(func() error {
		_, err := configLoader.Load(ctx)
		return err
	}, 5, 2*time.Second, zapLog, "Scoring config warm-up")
	if err != nil {
		zapLog.Fatal("scoring config unavailable", zap.Error(err))
	}
	zapLog.Info("Scoring config loaded and cached")

	var workers []*camunda.CamundaWorker
	zeebeClient := camundaClient.GetClient()

	// --- 1. Assessment Workers (2) ---
	if cfg.IsWorkerEnabled(sa.TaskType) {
		handler := sa.NewHandler(sa.LoadConfig(cfg), configLoader, pg.DB, redis, obs, log)
		wc := cfg.GetWorkerConfig(sa.TaskType)
		workers = append(workers, camunda.NewWorker(
			zeebeClient, sa.TaskType, wc.MaxJobsActive, cfg.GetDuration(wc.Timeout), handler, zapLog,
		))
	}

	if cfg.IsWorkerEnabled(rc.TaskType) {
		handler, err := rc.NewHandler(rc.LoadConfig(cfg), pg.DB, log)
		if err != nil {
			zapLog.Fatal("failed to create resolve-customization handler", zap.Error(err))
		}
		wc := cfg.GetWorkerConfig(rc.TaskType)
		workers = append(workers, camunda.NewWorker(
			zeebeClient, rc.TaskType, wc.MaxJobsActive, cfg.GetDuration(wc.Timeout), handler, zapLog,
		))
	}

	// --- 2. Notification Workers (1) ---
	if cfg.IsWorkerEnabled(sre.TaskType) {
		handler, err := sre.NewHandler(sre.LoadConfig(cfg), log)
		if err != nil {
			zapLog.Fatal("failed to create send-results-email handler", zap.Error(err))
		}
		wc := cfg.GetWorkerConfig(sre.TaskType)
		workers = append(workers, camunda.NewWorker(
			zeebeClient, sre.TaskType, wc.MaxJobsActive, cfg.GetDuration(wc.Timeout), handler, zapLog,
		))
	}

	// --- 3. CRM Workers (1) ---
	if cfg.IsWorkerEnabled(rl.TaskType) {
		handler := rl.NewHandler(rl.LoadConfig(cfg), log)
		wc := cfg.GetWorkerConfig(rl.TaskType)
		workers = append(workers, camunda.NewWorker(
			zeebeClient, rl.TaskType, wc.MaxJobsActive, cfg.GetDuration(wc.Timeout), handler, zapLog,
		))
	}

	// --- 4. Analytics Workers (1) ---
	if cfg.IsWorkerEnabled(ir.TaskType) {
		handler := ir.NewHandler(ir.LoadConfig(cfg), esClient, log)
		wc := cfg.GetWorkerConfig(ir.TaskType)
		workers = append(workers, camunda.NewWorker(
			zeebeClient, ir.TaskType, wc.MaxJobsActive, cfg.GetDuration(wc.Timeout), handler, zapLog,
		))
	}

	for _, taskType := range []string{sa.TaskType, rc.TaskType, sre.TaskType, rl.TaskType, ir.TaskType} {
		if _, ok := reg.FindByTaskType(taskType); !ok {
			zapLog.Warn("worker has no activity registry entry", zap.String("taskType", taskType))
		}
	}
	zapLog.Info("All workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			checks := map[string]error{
				"zeebe":    camundaClient.HealthCheck(r.Context()),
				"postgres": pg.Ping(r.Context()),
				"redis":    redis.Ping(r.Context()),
			}

			status := "ready"
			code := http.StatusOK
			failures := map[string]string{}
			for name, err := range checks {
				if err != nil {
					status = "not_ready"
					code = http.StatusServiceUnavailable
					failures[name] = err.Error()
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			body := map[string]interface{}{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			}
			if len(failures) > 0 {
				body["failures"] = failures
			}
			json.NewEncoder(w).Encode(body)
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Observability.MetricsAddress))
		if err := http.ListenAndServe(cfg.Observability.MetricsAddress, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
