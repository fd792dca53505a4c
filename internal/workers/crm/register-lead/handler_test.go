// internal/workers/crm/register-lead/handler_test.go
package registerlead

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/common/zoho"
	"assessment-workers/internal/scoring"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Mock Implementations
// ==========================

type MockCRMService struct {
	SearchLeadsFunc func(ctx context.Context, email string) ([]zoho.Lead, error)
	CreateLeadFunc  func(ctx context.Context, lead *zoho.Lead) (string, error)
	UpdateLeadFunc  func(ctx context.Context, leadID string, lead *zoho.Lead) error
}

func (m *MockCRMService) SearchLeads(ctx context.Context, email string) ([]zoho.Lead, error) {
	return m.SearchLeadsFunc(ctx, email)
}

func (m *MockCRMService) CreateLead(ctx context.Context, lead *zoho.Lead) (string, error) {
	return m.CreateLeadFunc(ctx, lead)
}

func (m *MockCRMService) UpdateLead(ctx context.Context, leadID string, lead *zoho.Lead) error {
	return m.UpdateLeadFunc(ctx, leadID, lead)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestInput(intensity scoring.Intensity) *Input {
	result := &scoring.Output{}
	result.OverallScoreCapped = 2.1
	result.OverallLevel.Name = "Emerging"
	result.PrimaryGap.DimensionID = "tracking"
	result.Cta.Intensity = intensity

	input := &Input{
		SubmissionID: "sub-001",
		ResultID:     "res-001",
		Result:       result,
	}
	input.Contact.Email = "lead@example.com"
	input.Contact.FirstName = "Sam"
	input.Contact.LastName = "Rivera"
	input.Contact.Company = "Acme"
	return input
}

func newTestHandler(t *testing.T, crm CRMService) *Handler {
	t.Helper()
	return &Handler{
		config: &Config{Timeout: 30 * time.Second},
		crm:    crm,
		logger: logger.NewTestLogger(t),
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_CreatesNewLead(t *testing.T) {
	var created *zoho.Lead
	crm := &MockCRMService{
		SearchLeadsFunc: func(ctx context.Context, email string) ([]zoho.Lead, error) {
			assert.Equal(t, "lead@example.com", email)
			return nil, nil
		},
		CreateLeadFunc: func(ctx context.Context, lead *zoho.Lead) (string, error) {
			created = lead
			return "zoho-001", nil
		},
	}

	output, err := newTestHandler(t, crm).Execute(context.Background(), createTestInput(scoring.IntensityHot))

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, StatusCreated, output.Status)
	assert.Equal(t, "zoho-001", output.LeadID)

	assert.NotNil(t, created)
	assert.Equal(t, "Hot", created.Rating)
	assert.Equal(t, "Maturity Assessment", created.Source)
	assert.Contains(t, created.Description, "2.1/5")
	assert.Contains(t, created.Description, "tracking")
}

func TestHandler_Execute_UpdatesExistingLead(t *testing.T) {
	var updatedID string
	crm := &MockCRMService{
		SearchLeadsFunc: func(ctx context.Context, email string) ([]zoho.Lead, error) {
			return []zoho.Lead{{ID: "zoho-042", Email: email}}, nil
		},
		UpdateLeadFunc: func(ctx context.Context, leadID string, lead *zoho.Lead) error {
			updatedID = leadID
			assert.Equal(t, "Warm", lead.Rating)
			return nil
		},
	}

	output, err := newTestHandler(t, crm).Execute(context.Background(), createTestInput(scoring.IntensityWarm))

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, StatusUpdated, output.Status)
	assert.Equal(t, "zoho-042", output.LeadID)
	assert.Equal(t, "zoho-042", updatedID)
}

func TestHandler_Execute_SkipsWithoutEmail(t *testing.T) {
	input := createTestInput(scoring.IntensityCool)
	input.Contact.Email = ""

	output, err := newTestHandler(t, &MockCRMService{}).Execute(context.Background(), input)

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, StatusSkipped, output.Status)
	assert.Empty(t, output.LeadID)
}

func TestHandler_Execute_SearchFailure(t *testing.T) {
	crm := &MockCRMService{
		SearchLeadsFunc: func(ctx context.Context, email string) ([]zoho.Lead, error) {
			return nil, errors.New("zoho unavailable")
		},
	}

	output, err := newTestHandler(t, crm).Execute(context.Background(), createTestInput(scoring.IntensityHot))

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, apperrors.ErrCodeCRMPushFailed, apperrors.CodeOf(err))
}

func TestHandler_Execute_CreateFailure(t *testing.T) {
	crm := &MockCRMService{
		SearchLeadsFunc: func(ctx context.Context, email string) ([]zoho.Lead, error) {
			return nil, nil
		},
		CreateLeadFunc: func(ctx context.Context, lead *zoho.Lead) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}

	output, err := newTestHandler(t, crm).Execute(context.Background(), createTestInput(scoring.IntensityHot))

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, apperrors.ErrCodeCRMPushFailed, apperrors.CodeOf(err))
}

func TestRatingFromIntensity(t *testing.T) {
	assert.Equal(t, "Hot", ratingFromIntensity(scoring.IntensityHot))
	assert.Equal(t, "Warm", ratingFromIntensity(scoring.IntensityWarm))
	assert.Equal(t, "Cold", ratingFromIntensity(scoring.IntensityCool))
}
