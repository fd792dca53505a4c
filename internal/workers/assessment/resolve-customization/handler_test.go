// internal/workers/assessment/resolve-customization/handler_test.go
package resolvecustomization

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "assessment-workers/internal/common/errors"
	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/customization"
	"assessment-workers/internal/models"
	"assessment-workers/internal/scoring"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var packFixtures = map[string]string{
	customization.FileAnswerObservations: `{
		"answer_observations": {
			"_meta": {"version": "v1"},
			"tracking_q1": {
				"dimension": "tracking",
				"options": {
					"tracking_q1_o1": {"score": 1, "red_flag": true, "observation_short": "No tracking in place", "observation_detail": "Campaign results are invisible."},
					"o3": {"score": 3, "observation_short": "Partial tracking", "observation_detail": "Some events are captured."}
				}
			}
		}
	}`,
	customization.FileDependencyRules: `{
		"dependency_rules": {
			"rules": [
				{
					"id": "tracking_blocks_attribution",
					"priority": 1,
					"severity": "critical",
					"title": "Tracking gap",
					"message": "Tracking at {tracking_score} blocks attribution work.",
					"recommendation": "Fix tracking first.",
					"blocks": ["attribution"],
					"condition": {"dimension": "tracking", "operator": "lt", "value": 2.5}
				}
			]
		}
	}`,
	customization.FileImpactEstimates: `{
		"impact_estimates": {
			"tracking": {
				"low": {
					"headline": "You are flying blind",
					"metric_value": "30%",
					"metric_label": "of ad spend unaccounted for",
					"detail": "Without tracking you cannot see what returns.",
					"business_impact": ["Budget decisions are guesses"]
				}
			}
		}
	}`,
	customization.FileLevelBenchmarks: `{
		"level_benchmarks": {
			"tracking": {
				"2_to_3": {
					"current_state": ["Pixels missing on key pages"],
					"target_state": ["Server-side events with QA"],
					"gap_summary": "Move from partial pixels to reliable events.",
					"success_indicator": "Match rate above 90%",
					"typical_timeline": "4-6 weeks"
				}
			}
		}
	}`,
	customization.FileToolRecommendations: `{
		"tool_recommendations": {
			"tracking": {
				"low": {
					"context": "Start with the basics.",
					"quick_wins": ["Install a tag manager"],
					"recommended_tools": [
						{"name": "GTM", "category": "Tag management", "price": "$0", "fit": "Fast start"}
					]
				}
			}
		}
	}`,
}

func writePackFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range packFixtures {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func createTestInput() *Input {
	result := &scoring.Output{}
	result.OverallLevel.Level = 2
	result.Cta.Intensity = scoring.IntensityHot

	return &Input{
		SubmissionID: "sub-001",
		ResultID:     "res-001",
		Answers: []scoring.Answer{
			{QuestionID: "tracking_q1", OptionID: "tracking_q1_o1"},
		},
		Result: result,
		Dimensions: []models.DimensionSummary{
			{DimensionID: "tracking", Order: 1, Name: "Tracking", Score: 1.5, Tier: scoring.TierLow},
			{DimensionID: "attribution", Order: 2, Name: "Attribution", Score: 4.0, Tier: scoring.TierHigh},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestNewHandler_MissingPacks(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewHandler(&Config{Timeout: time.Second, PacksDir: t.TempDir()}, db, logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO assessment_snapshots`).
		WithArgs(sqlmock.AnyArg(), "res-001", "sub-001", "v1", sqlmock.AnyArg(), "2025-06-01T12:00:00Z").
		WillReturnResult(sqlmock.NewResult(1, 1))

	dir := writePackFixtures(t)
	handler, err := NewHandler(&Config{Timeout: 30 * time.Second, PacksDir: dir}, db, logger.NewTestLogger(t))
	require.NoError(t, err)
	handler.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Equal(t, StatusResolved, output.Status)
	assert.NotEmpty(t, output.SnapshotID)
	assert.Equal(t, "2025-06-01T12:00:00Z", output.ResolvedAt)

	snapshot := output.Snapshot
	require.NotNil(t, snapshot)

	// Red-flag answer surfaces as an observation.
	require.Len(t, snapshot.Observations, 1)
	assert.Equal(t, "tracking_q1", snapshot.Observations[0].QuestionID)
	assert.True(t, snapshot.Observations[0].RedFlag)

	// Dependency rule fires with templated score.
	require.Len(t, snapshot.DependencyAlerts, 1)
	assert.Equal(t, "tracking_blocks_attribution", snapshot.DependencyAlerts[0].ID)
	assert.Contains(t, snapshot.DependencyAlerts[0].Message, "1.5")

	// Weakest dimension gets impact, tools and the single benchmark.
	require.Len(t, snapshot.Impacts, 1)
	assert.Equal(t, "tracking", snapshot.Impacts[0].DimensionID)
	require.Len(t, snapshot.Tools, 1)
	require.Len(t, snapshot.Benchmarks, 1)
	assert.Equal(t, 2, snapshot.Benchmarks[0].FromLevel)
	assert.Equal(t, 3, snapshot.Benchmarks[0].ToLevel)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_MissingResult(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := writePackFixtures(t)
	handler, err := NewHandler(&Config{Timeout: time.Second, PacksDir: dir}, db, logger.NewTestLogger(t))
	require.NoError(t, err)

	input := createTestInput()
	input.Result = nil

	output, err := handler.Execute(context.Background(), input)

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestHandler_Execute_PersistFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO assessment_snapshots`).
		WillReturnError(errors.New("connection reset"))

	dir := writePackFixtures(t)
	handler, err := NewHandler(&Config{Timeout: time.Second, PacksDir: dir}, db, logger.NewTestLogger(t))
	require.NoError(t, err)

	output, err := handler.Execute(context.Background(), createTestInput())

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, apperrors.ErrCodeSnapshotPersistFailed, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Deterministic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO assessment_snapshots`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO assessment_snapshots`).WillReturnResult(sqlmock.NewResult(1, 1))

	dir := writePackFixtures(t)
	handler, err := NewHandler(&Config{Timeout: 30 * time.Second, PacksDir: dir}, db, logger.NewTestLogger(t))
	require.NoError(t, err)
	handler.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	first, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	second, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	a, err := json.Marshal(first.Snapshot)
	require.NoError(t, err)
	b, err := json.Marshal(second.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
