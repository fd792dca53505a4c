// internal/workers/assessment/score-assessment/handler.go
package scoreassessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/common/metrics"
	"assessment-workers/internal/common/observability"
	"assessment-workers/internal/models"
	"assessment-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "score-assessment"

	resultCacheKeyPrefix = "assessment:result:"
)

// ConfigLoader supplies the current scoring configuration.
type ConfigLoader interface {
	Load(ctx context.Context) (*scoring.Config, error)
}

// ResultCache caches the public results payload keyed by token.
type ResultCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type Handler struct {
	config       *Config
	loader       ConfigLoader
	db           *sql.DB
	cache        ResultCache
	logger       logger.Logger
	obs          *observability.Observability
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, loader ConfigLoader, db *sql.DB, cache ResultCache, obs *observability.Observability, log logger.Logger) *Handler {
	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		loader:       loader,
		db:           db,
		cache:        cache,
		logger:       workerLog,
		obs:          obs,
		errorHandler: apperrors.NewErrorHandler(workerLog),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "PARSE_ERROR").Inc()
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := h.obs.StartSpan(ctx, TaskType+".execute")
	output, err := h.execute(ctx, &input)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	if err != nil {
		code := string(apperrors.CodeOf(err))
		if code == "" {
			code = "SCORE_FAILED"
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.obs.RecordJobProcessed(ctx, "failed")
		h.obs.RecordJobDuration(ctx, time.Since(start), "failed")
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
		return err
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "completed")
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	cfg, err := h.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := scoring.ValidateAnswers(scoring.Input{Answers: input.Answers}, cfg); err != nil {
		return nil, err
	}

	result, err := scoring.Score(cfg, scoring.Input{Answers: input.Answers})
	if err != nil {
		return nil, err
	}

	scoredAt := time.Now().UTC().Format(time.RFC3339)
	resultID := uuid.New().String()
	resultsToken := uuid.New().String()

	dims := make([]models.DimensionSummary, 0, len(cfg.Dimensions))
	for _, d := range cfg.Dimensions {
		dims = append(dims, models.DimensionSummary{
			DimensionID: d.ID,
			Order:       d.Order,
			Name:        d.Name,
			Score:       result.DimensionScores[d.ID],
			Tier:        result.DimensionTiers[d.ID],
		})
	}

	if err := h.persistResult(ctx, resultID, input, result, scoredAt); err != nil {
		return nil, err
	}

	if err := h.cacheResult(ctx, resultsToken, input, result, dims, scoredAt); err != nil {
		// Cache is a read-side optimization; the row is already persisted.
		h.logger.Warn("result cache write failed", map[string]interface{}{
			"resultId": resultID,
			"error":    err.Error(),
		})
	}

	metrics.AssessmentsScored.WithLabelValues(fmt.Sprintf("%d", result.OverallLevel.Level)).Inc()
	if result.CapApplied {
		metrics.AssessmentsCapApplied.Inc()
	}
	metrics.LeadsByIntensity.WithLabelValues(string(result.Cta.Intensity)).Inc()

	h.logger.Info("assessment scored", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"resultId":     resultID,
		"overallScore": result.OverallScoreCapped,
		"level":        result.OverallLevel.Level,
		"capApplied":   result.CapApplied,
		"ctaIntensity": string(result.Cta.Intensity),
	})

	return &Output{
		SubmissionID: input.SubmissionID,
		ResultID:     resultID,
		ResultsToken: resultsToken,
		Status:       StatusScored,
		ScoredAt:     scoredAt,
		Result:       result,
		Dimensions:   dims,
	}, nil
}

func (h *Handler) persistResult(ctx context.Context, resultID string, input *Input, result *scoring.Output, scoredAt string) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return apperrors.NewResultPersistFailedError(err)
	}

	query := `
		INSERT INTO assessment_results
			(id, submission_id, email, company, overall_score, overall_level, cta_intensity, cap_applied, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = h.db.ExecContext(ctx, query,
		resultID,
		input.SubmissionID,
		input.Contact.Email,
		input.Contact.Company,
		result.OverallScoreCapped,
		result.OverallLevel.Level,
		string(result.Cta.Intensity),
		result.CapApplied,
		payload,
		scoredAt,
	)
	if err != nil {
		return apperrors.NewResultPersistFailedError(err)
	}
	return nil
}

func (h *Handler) cacheResult(ctx context.Context, token string, input *Input, result *scoring.Output, dims []models.DimensionSummary, scoredAt string) error {
	doc := map[string]interface{}{
		"submissionId": input.SubmissionID,
		"scoredAt":     scoredAt,
		"result":       result,
		"dimensions":   dims,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return h.cache.Set(ctx, resultCacheKeyPrefix+token, body, h.config.ResultCacheTTL)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"error": err.Error()})
	}
}

// Execute runs the business logic without Camunda plumbing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
