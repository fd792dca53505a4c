// internal/workers/analytics/index-result/handler.go
package indexresult

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/common/metrics"
	"assessment-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "index-result"
)

// Indexer wraps the Elasticsearch client for mocking.
type Indexer interface {
	Index(ctx context.Context, index, documentID string, body []byte) error
}

type Handler struct {
	config       *Config
	indexer      Indexer
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, indexer Indexer, log logger.Logger) *Handler {
	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		indexer:      indexer,
		logger:       workerLog,
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

	output, err := h.execute(ctx, &input)
	if err != nil {
		code := string(apperrors.CodeOf(err))
		if code == "" {
			code = "INDEX_FAILED"
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
	if input.ResultID == "" {
		return nil, apperrors.NewInvalidInputError("missing resultId")
	}

	doc := models.ResultDocument{
		SubmissionID:       input.SubmissionID,
		Email:              input.Contact.Email,
		Company:            input.Contact.Company,
		OverallScore:       input.Result.OverallScore,
		OverallScoreCapped: input.Result.OverallScoreCapped,
		CapApplied:         input.Result.CapApplied,
		Level:              input.Result.OverallLevel.Level,
		LevelKey:           input.Result.OverallLevel.Key,
		PrimaryGap:         input.Result.PrimaryGap.DimensionID,
		CriticalGapCount:   len(input.Result.CriticalGaps),
		CtaIntensity:       input.Result.Cta.Intensity,
		ReasonCodes:        input.Result.Cta.ReasonCodes,
		DimensionScores:    input.Result.DimensionScores,
		ScoredAt:           input.ScoredAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, apperrors.NewIndexFailedError(err)
	}

	if err := h.indexer.Index(ctx, h.config.Index, input.ResultID, body); err != nil {
		return nil, apperrors.NewIndexFailedError(err)
	}

	indexedAt := time.Now().UTC().Format(time.RFC3339)

	h.logger.Info("result indexed", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"documentId":   input.ResultID,
		"index":        h.config.Index,
	})

	return &Output{
		SubmissionID: input.SubmissionID,
		DocumentID:   input.ResultID,
		Index:        h.config.Index,
		Status:       StatusIndexed,
		IndexedAt:    indexedAt,
	}, nil
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
