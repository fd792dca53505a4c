// internal/workers/analytics/index-result/handler_test.go
package indexresult

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/models"
	"assessment-workers/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockIndexer struct {
	IndexFunc func(ctx context.Context, index, documentID string, body []byte) error
}

func (m *MockIndexer) Index(ctx context.Context, index, documentID string, body []byte) error {
	return m.IndexFunc(ctx, index, documentID, body)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestInput() *Input {
	result := &scoring.Output{
		DimensionScores: map[string]float64{"tracking": 1.5, "attribution": 3.0},
		OverallScore:    2.8,
	}
	result.OverallScoreCapped = 2.5
	result.CapApplied = true
	result.OverallLevel.Level = 2
	result.OverallLevel.Key = "level_2"
	result.PrimaryGap.DimensionID = "tracking"
	result.CriticalGaps = []scoring.CriticalGap{{DimensionID: "tracking", Score: 1.5, DeltaFromAvg: 1.3}}
	result.Cta.Intensity = scoring.IntensityHot
	result.Cta.ReasonCodes = []string{"CAP_APPLIED"}

	input := &Input{
		SubmissionID: "sub-001",
		ResultID:     "res-001",
		ScoredAt:     "2025-06-01T12:00:00Z",
		Result:       result,
	}
	input.Contact.Email = "lead@example.com"
	input.Contact.Company = "Acme"
	return input
}

func newTestHandler(t *testing.T, indexer Indexer) *Handler {
	t.Helper()
	return NewHandler(&Config{Timeout: 30 * time.Second, Index: "assessment-results"}, indexer, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	var gotIndex, gotID string
	var gotDoc models.ResultDocument

	indexer := &MockIndexer{
		IndexFunc: func(ctx context.Context, index, documentID string, body []byte) error {
			gotIndex = index
			gotID = documentID
			require.NoError(t, json.Unmarshal(body, &gotDoc))
			return nil
		},
	}

	output, err := newTestHandler(t, indexer).Execute(context.Background(), createTestInput())

	assert.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, StatusIndexed, output.Status)
	assert.Equal(t, "res-001", output.DocumentID)
	assert.Equal(t, "assessment-results", output.Index)

	assert.Equal(t, "assessment-results", gotIndex)
	assert.Equal(t, "res-001", gotID)
	assert.Equal(t, "sub-001", gotDoc.SubmissionID)
	assert.Equal(t, 2.5, gotDoc.OverallScoreCapped)
	assert.True(t, gotDoc.CapApplied)
	assert.Equal(t, "tracking", gotDoc.PrimaryGap)
	assert.Equal(t, 1, gotDoc.CriticalGapCount)
	assert.Equal(t, scoring.IntensityHot, gotDoc.CtaIntensity)
	assert.Equal(t, 1.5, gotDoc.DimensionScores["tracking"])
	assert.Equal(t, "2025-06-01T12:00:00Z", gotDoc.ScoredAt)
}

func TestHandler_Execute_IndexFailure(t *testing.T) {
	indexer := &MockIndexer{
		IndexFunc: func(ctx context.Context, index, documentID string, body []byte) error {
			return errors.New("cluster unavailable")
		},
	}

	output, err := newTestHandler(t, indexer).Execute(context.Background(), createTestInput())

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, apperrors.ErrCodeIndexFailed, apperrors.CodeOf(err))
}

func TestHandler_Execute_MissingResult(t *testing.T) {
	input := createTestInput()
	input.Result = nil

	output, err := newTestHandler(t, &MockIndexer{}).Execute(context.Background(), input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestHandler_Execute_MissingResultID(t *testing.T) {
	input := createTestInput()
	input.ResultID = ""

	output, err := newTestHandler(t, &MockIndexer{}).Execute(context.Background(), input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}
