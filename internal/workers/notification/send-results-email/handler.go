// internal/workers/notification/send-results-email/handler.go
package sendresultsemail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	awsclient "assessment-workers/internal/common/aws"
	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/common/metrics"
	"assessment-workers/internal/scoring"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-results-email"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	sesClient    SESService
	snsClient    SNSService
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	awsCfg, err := awsclient.LoadConfig(context.Background(), config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		logger:       workerLog,
		sesClient:    awsclient.NewSESClient(awsCfg),
		snsClient:    awsclient.NewSNSClient(awsCfg),
		errorHandler: apperrors.NewErrorHandler(workerLog),
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
			code = "EMAIL_SEND_FAILED"
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

	sentAt := time.Now().UTC().Format(time.RFC3339)
	notificationID := uuid.New().String()

	if !h.config.EmailEnabled || input.Contact.Email == "" {
		h.logger.Info("email delivery skipped", map[string]interface{}{
			"submissionId": input.SubmissionID,
			"enabled":      h.config.EmailEnabled,
		})
		return &Output{
			NotificationID: notificationID,
			Status:         StatusDisabled,
			SentAt:         sentAt,
		}, nil
	}

	data := map[string]interface{}{
		"firstName":    input.Contact.FirstName,
		"levelName":    input.Result.OverallLevel.Name,
		"heroTitle":    input.Result.OverallLevel.HeroTitle,
		"overallScore": fmt.Sprintf("%.1f", input.Result.OverallScoreCapped),
		"reportLink":   h.reportLink(input.ResultsToken),
	}

	subject := renderTemplate(emailSubjectTemplate, data)
	body := renderTemplate(emailBodyTemplate, data)

	if err := h.sendEmail(ctx, input.Contact.Email, subject, body); err != nil {
		h.logger.Error("email send failed", map[string]interface{}{
			"submissionId": input.SubmissionID,
			"error":        err.Error(),
		})
		return nil, apperrors.NewEmailSendFailedError(err)
	}

	// The sales alert is best effort: a scored hot lead still gets the
	// report even when SNS is down.
	smsSent := false
	if h.config.SMSEnabled && h.config.SalesPhone != "" && input.Result.Cta.Intensity == scoring.IntensityHot {
		smsBody := renderTemplate(salesAlertTemplate, map[string]interface{}{
			"company":      input.Contact.Company,
			"email":        input.Contact.Email,
			"overallScore": fmt.Sprintf("%.1f", input.Result.OverallScoreCapped),
			"levelName":    input.Result.OverallLevel.Name,
		})
		if err := h.sendSMS(ctx, h.config.SalesPhone, smsBody); err != nil {
			h.logger.Error("sales SMS send failed", map[string]interface{}{
				"submissionId": input.SubmissionID,
				"error":        err.Error(),
			})
		} else {
			smsSent = true
		}
	}

	return &Output{
		NotificationID: notificationID,
		Status:         StatusSent,
		EmailSent:      true,
		SMSSent:        smsSent,
		SentAt:         sentAt,
	}, nil
}

const (
	emailSubjectTemplate = "Your marketing maturity results: {{levelName}}"
	emailBodyTemplate    = "Hi {{firstName}},\n\n" +
		"{{heroTitle}}\n\n" +
		"You scored {{overallScore}} out of 5. Your full report, including your " +
		"biggest gaps and what to fix first, is ready here:\n\n{{reportLink}}\n\n" +
		"The link stays live for 30 days."
	salesAlertTemplate = "Hot lead: {{company}} ({{email}}) scored {{overallScore}} ({{levelName}})."
)

func (h *Handler) reportLink(token string) string {
	return strings.TrimSuffix(h.config.ResultsBaseURL, "/") + "/results/" + token
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
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

// renderTemplate fills {{placeholder}} slots and strips any that stay unbound.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

// Execute runs the business logic without Camunda plumbing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
