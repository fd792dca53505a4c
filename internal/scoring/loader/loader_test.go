// internal/scoring/loader/loader_test.go
package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assessment-workers/internal/common/logger"
	"assessment-workers/internal/scoring"

	apperrors "assessment-workers/internal/common/errors"
)

// ==========================
// Test Helper Functions
// ==========================

var testDimensionIDs = []string{"tracking", "attribution", "reporting", "experimentation", "lifecycle", "infrastructure"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func dimensionRows() *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "order", "section", "short_label", "name", "weight"})
	for i, dimID := range testDimensionIDs {
		rows.AddRow(dimID, i+1, "core", dimID, dimID, 1.0)
	}
	return rows
}

func questionRows() *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "order", "dimension_id"})
	order := 0
	for _, dimID := range testDimensionIDs {
		for q := 1; q <= 4; q++ {
			order++
			rows.AddRow(fmt.Sprintf("%s_q%d", dimID, q), order, dimID)
		}
	}
	return rows
}

func optionRows() *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "question_id", "score"})
	for _, dimID := range testDimensionIDs {
		for q := 1; q <= 4; q++ {
			qID := fmt.Sprintf("%s_q%d", dimID, q)
			for o := 1; o <= 5; o++ {
				rows.AddRow(fmt.Sprintf("%s_o%d", qID, o), qID, o)
			}
		}
	}
	return rows
}

func levelsDocJSON(t *testing.T) []byte {
	t.Helper()
	doc := struct {
		Version string          `json:"version"`
		Levels  []scoring.Level `json:"levels"`
	}{Version: "v1"}

	bounds := []float64{1, 1.8, 2.6, 3.4, 4.2, 5}
	for lvl := 1; lvl <= 5; lvl++ {
		doc.Levels = append(doc.Levels, scoring.Level{
			Level:      lvl,
			Key:        fmt.Sprintf("level_%d", lvl),
			Name:       fmt.Sprintf("Level %d", lvl),
			HeroTitle:  "title",
			HeroCopy:   "copy",
			ColorToken: "green",
			ScoreRange: scoring.Range{
				Min: bounds[lvl-1], Max: bounds[lvl],
				MinInclusive: true, MaxInclusive: lvl == 5,
			},
		})
	}

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func rulesDocJSON(t *testing.T) []byte {
	t.Helper()
	var rules scoring.Rules
	rules.Rounding.ScoreDecimalPlaces = 1
	rules.Rounding.DisplayDecimalPlaces = 1
	rules.TierThresholds.Tiers = []scoring.TierRange{
		{Tier: scoring.TierLow, Min: 1, Max: 2.5, MinInclusive: true},
		{Tier: scoring.TierMedium, Min: 2.5, Max: 4, MinInclusive: true},
		{Tier: scoring.TierHigh, Min: 4, Max: 5, MinInclusive: true, MaxInclusive: true},
	}
	rules.OverallScoring.WeakestLink.Enabled = true
	rules.OverallScoring.WeakestLink.TriggerMinDimLt = 2.5
	rules.OverallScoring.WeakestLink.CapDelta = 1.0
	rules.Gaps.CriticalGap.Delta = 1.0
	rules.Gaps.FoundationGap.Threshold = 2.5
	rules.CtaRules = []scoring.CtaRule{}

	raw, err := json.Marshal(rules)
	require.NoError(t, err)
	return raw
}

// expectFullLoad queues one complete, healthy config load.
func expectFullLoad(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	mock.ExpectQuery(queryDimensions).WillReturnRows(dimensionRows())
	mock.ExpectQuery(queryQuestions).WillReturnRows(questionRows())
	mock.ExpectQuery(queryOptions).WillReturnRows(optionRows())
	mock.ExpectQuery(queryAppSetting).WithArgs("levels").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(levelsDocJSON(t)))
	mock.ExpectQuery(queryAppSetting).WithArgs("scoring_rules").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(rulesDocJSON(t)))
}

// ==========================
// LoadFresh Tests
// ==========================

func TestLoadFresh_Success(t *testing.T) {
	db, mock := newMockDB(t)
	expectFullLoad(t, mock)

	cfg, err := New(db, logger.NewTestLogger(t)).LoadFresh(context.Background())
	require.NoError(t, err)

	assert.Len(t, cfg.Dimensions, 6)
	assert.Len(t, cfg.Questions, 24)
	assert.Len(t, cfg.Levels, 5)
	assert.Equal(t, 1, cfg.DimensionOrder["tracking"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFresh_NullWeightDefaultsToOne(t *testing.T) {
	db, mock := newMockDB(t)

	dims := sqlmock.NewRows([]string{"id", "order", "section", "short_label", "name", "weight"})
	for i, dimID := range testDimensionIDs {
		if i == 0 {
			dims.AddRow(dimID, i+1, "core", dimID, dimID, nil)
			continue
		}
		dims.AddRow(dimID, i+1, "core", dimID, dimID, 1.0)
	}
	mock.ExpectQuery(queryDimensions).WillReturnRows(dims)
	mock.ExpectQuery(queryQuestions).WillReturnRows(questionRows())
	mock.ExpectQuery(queryOptions).WillReturnRows(optionRows())
	mock.ExpectQuery(queryAppSetting).WithArgs("levels").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(levelsDocJSON(t)))
	mock.ExpectQuery(queryAppSetting).WithArgs("scoring_rules").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(rulesDocJSON(t)))

	cfg, err := New(db, logger.NewTestLogger(t)).LoadFresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Dimensions[0].Weight)
}

func TestLoadFresh_MissingLevelsSetting(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(queryDimensions).WillReturnRows(dimensionRows())
	mock.ExpectQuery(queryQuestions).WillReturnRows(questionRows())
	mock.ExpectQuery(queryOptions).WillReturnRows(optionRows())
	mock.ExpectQuery(queryAppSetting).WithArgs("levels").WillReturnError(sql.ErrNoRows)

	_, err := New(db, logger.NewTestLogger(t)).LoadFresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigMissing, apperrors.CodeOf(err))
}

func TestLoadFresh_EmptySettingValue(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(queryDimensions).WillReturnRows(dimensionRows())
	mock.ExpectQuery(queryQuestions).WillReturnRows(questionRows())
	mock.ExpectQuery(queryOptions).WillReturnRows(optionRows())
	mock.ExpectQuery(queryAppSetting).WithArgs("levels").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte{}))

	_, err := New(db, logger.NewTestLogger(t)).LoadFresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigMissing, apperrors.CodeOf(err))
}

func TestLoadFresh_QueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(queryDimensions).WillReturnError(errors.New("connection reset"))

	_, err := New(db, logger.NewTestLogger(t)).LoadFresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query dimensions")
}

func TestLoadFresh_StructurallyInvalidConfig(t *testing.T) {
	db, mock := newMockDB(t)

	// Five dimensions instead of six.
	dims := sqlmock.NewRows([]string{"id", "order", "section", "short_label", "name", "weight"})
	for i, dimID := range testDimensionIDs[:5] {
		dims.AddRow(dimID, i+1, "core", dimID, dimID, 1.0)
	}
	mock.ExpectQuery(queryDimensions).WillReturnRows(dims)
	mock.ExpectQuery(queryQuestions).WillReturnRows(questionRows())
	mock.ExpectQuery(queryOptions).WillReturnRows(optionRows())
	mock.ExpectQuery(queryAppSetting).WithArgs("levels").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(levelsDocJSON(t)))
	mock.ExpectQuery(queryAppSetting).WithArgs("scoring_rules").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(rulesDocJSON(t)))

	_, err := New(db, logger.NewTestLogger(t)).LoadFresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.CodeOf(err))
}
