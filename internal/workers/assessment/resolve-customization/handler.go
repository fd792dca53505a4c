// internal/workers/assessment/resolve-customization/handler.go
package resolvecustomization

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/common/metrics"
	"assessment-workers/internal/customization"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "resolve-customization"
)

type Handler struct {
	config       *Config
	packs        *customization.Packs
	db           *sql.DB
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

// NewHandler loads the content packs once; a pack failure aborts startup
// rather than failing every job at runtime.
func NewHandler(config *Config, db *sql.DB, log logger.Logger) (*Handler, error) {
	packs, err := customization.LoadPacks(config.PacksDir)
	if err != nil {
		return nil, fmt.Errorf("load content packs: %w", err)
	}

	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		packs:        packs,
		db:           db,
		logger:       workerLog,
		errorHandler: apperrors.NewErrorHandler(workerLog),
		now:          time.Now,
	}, nil
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

	output, err := h.execute(ctx, &input)
	if err != nil {
		code := string(apperrors.CodeOf(err))
		if code == "" {
			code = "RESOLVE_FAILED"
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
		return err
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Result == nil {
		return nil, apperrors.NewInvalidInputError("missing scored result variables")
	}

	results := customization.Results{
		OverallLevel: input.Result.OverallLevel.Level,
	}
	for _, d := range input.Dimensions {
		results.Dimensions = append(results.Dimensions, customization.DimensionResult{
			DimensionID: d.DimensionID,
			Order:       d.Order,
			Name:        d.Name,
			Score:       d.Score,
			Tier:        d.Tier,
		})
	}

	snapshot := customization.Resolve(customization.ResolveArgs{
		Results:   results,
		Answers:   input.Answers,
		Packs:     h.packs,
		CreatedAt: h.now(),
	})

	for _, w := range snapshot.CopyWarnings {
		h.logger.Warn("copy consistency warning", map[string]interface{}{
			"submissionId": input.SubmissionID,
			"warning":      w,
		})
	}

	snapshotID := uuid.New().String()
	if err := h.persistSnapshot(ctx, snapshotID, input, snapshot); err != nil {
		return nil, err
	}

	h.logger.Info("customization resolved", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"snapshotId":   snapshotID,
		"observations": len(snapshot.Observations),
		"alerts":       len(snapshot.DependencyAlerts),
		"impacts":      len(snapshot.Impacts),
	})

	return &Output{
		SubmissionID: input.SubmissionID,
		SnapshotID:   snapshotID,
		Status:       StatusResolved,
		ResolvedAt:   snapshot.CreatedAtISO,
		Snapshot:     snapshot,
	}, nil
}

func (h *Handler) persistSnapshot(ctx context.Context, snapshotID string, input *Input, snapshot *customization.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return apperrors.NewSnapshotPersistFailedError(err)
	}

	query := `
		INSERT INTO assessment_snapshots
			(id, result_id, submission_id, version, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = h.db.ExecContext(ctx, query,
		snapshotID,
		input.ResultID,
		input.SubmissionID,
		snapshot.Version,
		payload,
		snapshot.CreatedAtISO,
	)
	if err != nil {
		return apperrors.NewSnapshotPersistFailedError(err)
	}
	return nil
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
