// internal/workers/notification/send-results-email/handler_test.go
package sendresultsemail

import (
	"context"
	"errors"
	"testing"
	"time"

	awsclient "assessment-workers/internal/common/aws"
	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/scoring"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
)

// The shared AWS wrapper clients must keep satisfying the worker's
// service interfaces.
var (
	_ SESService = (*awsclient.SESClient)(nil)
	_ SNSService = (*awsclient.SNSClient)(nil)
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		EmailEnabled:   true,
		SMSEnabled:     true,
		FromEmail:      "reports@example.com",
		SalesPhone:     "+15551230000",
		AWSRegion:      "us-east-1",
		ResultsBaseURL: "https://results.example.com",
	}
}

func createTestInput(intensity scoring.Intensity) *Input {
	result := &scoring.Output{}
	result.OverallScoreCapped = 2.4
	result.OverallLevel.Level = 2
	result.OverallLevel.Name = "Emerging"
	result.OverallLevel.HeroTitle = "You have the basics, but gaps are costing you."
	result.Cta.Intensity = intensity

	input := &Input{
		SubmissionID: "sub-001",
		ResultsToken: "tok-123",
		Result:       result,
	}
	input.Contact.Email = "lead@example.com"
	input.Contact.FirstName = "Sam"
	input.Contact.Company = "Acme"
	return input
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name         string
		intensity    scoring.Intensity
		smsEnabled   bool
		expectSMS    bool
		expectStatus string
	}{
		{
			name:         "hot lead sends email and sales SMS",
			intensity:    scoring.IntensityHot,
			smsEnabled:   true,
			expectSMS:    true,
			expectStatus: StatusSent,
		},
		{
			name:         "warm lead sends email only",
			intensity:    scoring.IntensityWarm,
			smsEnabled:   true,
			expectSMS:    false,
			expectStatus: StatusSent,
		},
		{
			name:         "hot lead with SMS disabled sends email only",
			intensity:    scoring.IntensityHot,
			smsEnabled:   false,
			expectSMS:    false,
			expectStatus: StatusSent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			smsCalls := 0

			mockSES := &MockSESService{
				SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
					assert.Equal(t, "lead@example.com", params.Destination.ToAddresses[0])
					assert.Equal(t, "reports@example.com", *params.Source)
					assert.Contains(t, *params.Message.Subject.Data, "Emerging")
					assert.Contains(t, *params.Message.Body.Text.Data, "Hi Sam")
					assert.Contains(t, *params.Message.Body.Text.Data, "https://results.example.com/results/tok-123")
					return &ses.SendEmailOutput{}, nil
				},
			}
			mockSNS := &MockSNSService{
				PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
					smsCalls++
					assert.Equal(t, "+15551230000", *params.PhoneNumber)
					assert.Contains(t, *params.Message, "Acme")
					return &sns.PublishOutput{}, nil
				},
			}

			config := createTestConfig()
			config.SMSEnabled = tt.smsEnabled

			handler := &Handler{
				config:    config,
				logger:    logger.NewTestLogger(t),
				sesClient: mockSES,
				snsClient: mockSNS,
			}

			output, err := handler.Execute(context.Background(), createTestInput(tt.intensity))

			assert.NoError(t, err)
			assert.NotNil(t, output)
			assert.Equal(t, tt.expectStatus, output.Status)
			assert.True(t, output.EmailSent)
			assert.Equal(t, tt.expectSMS, output.SMSSent)
			if tt.expectSMS {
				assert.Equal(t, 1, smsCalls)
			} else {
				assert.Equal(t, 0, smsCalls)
			}
		})
	}
}

func TestHandler_Execute_EmailDisabled(t *testing.T) {
	config := createTestConfig()
	config.EmailEnabled = false

	handler := &Handler{
		config:    config,
		logger:    logger.NewTestLogger(t),
		sesClient: &MockSESService{},
		snsClient: &MockSNSService{},
	}

	output, err := handler.Execute(context.Background(), createTestInput(scoring.IntensityHot))

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, StatusDisabled, output.Status)
	assert.False(t, output.EmailSent)
	assert.NotEmpty(t, output.NotificationID)
}

func TestHandler_Execute_EmailFailure(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("SES service unavailable")
		},
	}

	handler := &Handler{
		config:    createTestConfig(),
		logger:    logger.NewTestLogger(t),
		sesClient: mockSES,
		snsClient: &MockSNSService{},
	}

	output, err := handler.Execute(context.Background(), createTestInput(scoring.IntensityWarm))

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, apperrors.ErrCodeEmailSendFailed, apperrors.CodeOf(err))
}

func TestHandler_Execute_SMSFailureIsNonFatal(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{}, nil
		},
	}
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("SNS service unavailable")
		},
	}

	handler := &Handler{
		config:    createTestConfig(),
		logger:    logger.NewTestLogger(t),
		sesClient: mockSES,
		snsClient: mockSNS,
	}

	output, err := handler.Execute(context.Background(), createTestInput(scoring.IntensityHot))

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, StatusSent, output.Status)
	assert.True(t, output.EmailSent)
	assert.False(t, output.SMSSent)
}

func TestNewHandler_UsesSharedAWSClients(t *testing.T) {
	handler, err := NewHandler(createTestConfig(), logger.NewTestLogger(t))

	assert.NoError(t, err)
	assert.NotNil(t, handler)
	assert.IsType(t, &awsclient.SESClient{}, handler.sesClient)
	assert.IsType(t, &awsclient.SNSClient{}, handler.snsClient)
	assert.NotNil(t, handler.errorHandler)
}

func TestRenderTemplate_RemovesUnboundPlaceholders(t *testing.T) {
	out := renderTemplate("Hi {{firstName}}, level {{missing}} done", map[string]interface{}{
		"firstName": "Sam",
	})
	assert.Equal(t, "Hi Sam, level  done", out)
}
