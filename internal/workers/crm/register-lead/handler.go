// internal/workers/crm/register-lead/handler.go
package registerlead

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/common/metrics"
	"assessment-workers/internal/common/zoho"
	"assessment-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "register-lead"

	leadSource = "Maturity Assessment"
)

// CRMService wraps the Zoho client for mocking.
type CRMService interface {
	SearchLeads(ctx context.Context, email string) ([]zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	UpdateLead(ctx context.Context, leadID string, lead *zoho.Lead) error
}

type Handler struct {
	config       *Config
	crm          CRMService
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		crm:          zoho.NewCRMClient(config.APIKey, config.AuthToken),
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
			code = "CRM_PUSH_FAILED"
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

	registeredAt := time.Now().UTC().Format(time.RFC3339)

	if input.Contact.Email == "" {
		h.logger.Info("no contact email, skipping CRM push", map[string]interface{}{
			"submissionId": input.SubmissionID,
		})
		return &Output{
			SubmissionID: input.SubmissionID,
			Status:       StatusSkipped,
			RegisteredAt: registeredAt,
		}, nil
	}

	lead := h.buildLead(input)

	existing, err := h.crm.SearchLeads(ctx, input.Contact.Email)
	if err != nil {
		return nil, apperrors.NewCRMPushFailedError(err)
	}

	if len(existing) > 0 {
		leadID := existing[0].ID
		if err := h.crm.UpdateLead(ctx, leadID, lead); err != nil {
			return nil, apperrors.NewCRMPushFailedError(err)
		}
		h.logger.Info("lead updated", map[string]interface{}{
			"submissionId": input.SubmissionID,
			"leadId":       leadID,
			"rating":       lead.Rating,
		})
		return &Output{
			SubmissionID: input.SubmissionID,
			LeadID:       leadID,
			Status:       StatusUpdated,
			RegisteredAt: registeredAt,
		}, nil
	}

	leadID, err := h.crm.CreateLead(ctx, lead)
	if err != nil {
		return nil, apperrors.NewCRMPushFailedError(err)
	}

	h.logger.Info("lead created", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"leadId":       leadID,
		"rating":       lead.Rating,
	})

	return &Output{
		SubmissionID: input.SubmissionID,
		LeadID:       leadID,
		Status:       StatusCreated,
		RegisteredAt: registeredAt,
	}, nil
}

func (h *Handler) buildLead(input *Input) *zoho.Lead {
	return &zoho.Lead{
		Email:     input.Contact.Email,
		FirstName: input.Contact.FirstName,
		LastName:  input.Contact.LastName,
		Company:   input.Contact.Company,
		Phone:     input.Contact.Phone,
		Source:    leadSource,
		Rating:    ratingFromIntensity(input.Result.Cta.Intensity),
		Description: fmt.Sprintf(
			"Scored %.1f/5 (%s). Primary gap: %s.",
			input.Result.OverallScoreCapped,
			input.Result.OverallLevel.Name,
			input.Result.PrimaryGap.DimensionID,
		),
	}
}

func ratingFromIntensity(intensity scoring.Intensity) string {
	switch intensity {
	case scoring.IntensityHot:
		return "Hot"
	case scoring.IntensityWarm:
		return "Warm"
	default:
		return "Cold"
	}
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
