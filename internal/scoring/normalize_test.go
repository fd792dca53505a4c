// internal/scoring/normalize_test.go
package scoring

import (
	"encoding/json"
	"fmt"
	"testing"

	apperrors "assessment-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func testRows() ([]DimensionRow, []QuestionRow, []OptionRow) {
	var dims []DimensionRow
	var questions []QuestionRow
	var options []OptionRow

	qOrder := 0
	for i, dimID := range testDimensionIDs {
		dims = append(dims, DimensionRow{ID: dimID, Order: i + 1, Name: dimID, Weight: 1})
		for q := 1; q <= QuestionsPerDimension; q++ {
			qOrder++
			qID := fmt.Sprintf("%s_q%d", dimID, q)
			questions = append(questions, QuestionRow{ID: qID, Order: qOrder, DimensionID: dimID})
			for o := 1; o <= OptionsPerQuestion; o++ {
				options = append(options, OptionRow{
					ID:         fmt.Sprintf("%s_o%d", qID, o),
					QuestionID: qID,
					Score:      o,
				})
			}
		}
	}
	return dims, questions, options
}

func testLevelsDoc(t *testing.T) json.RawMessage {
	t.Helper()
	doc := struct {
		Version string  `json:"version"`
		Levels  []Level `json:"levels"`
	}{Version: "v1"}

	bounds := []float64{1, 1.8, 2.6, 3.4, 4.2, 5}
	for lvl := 1; lvl <= 5; lvl++ {
		doc.Levels = append(doc.Levels, Level{
			Level:      lvl,
			Key:        fmt.Sprintf("level_%d", lvl),
			Name:       fmt.Sprintf("Level %d", lvl),
			HeroTitle:  "title",
			HeroCopy:   "copy",
			ColorToken: "green",
			ScoreRange: Range{
				Min: bounds[lvl-1], Max: bounds[lvl],
				MinInclusive: true, MaxInclusive: lvl == 5,
			},
		})
	}

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func testRulesDoc(t *testing.T) json.RawMessage {
	t.Helper()
	var rules Rules
	rules.Rounding.ScoreDecimalPlaces = 1
	rules.Rounding.DisplayDecimalPlaces = 1
	rules.TierThresholds.Tiers = []TierRange{
		{Tier: TierLow, Min: 1, Max: 2.5, MinInclusive: true},
		{Tier: TierMedium, Min: 2.5, Max: 4, MinInclusive: true},
		{Tier: TierHigh, Min: 4, Max: 5, MinInclusive: true, MaxInclusive: true},
	}
	rules.OverallScoring.WeakestLink.Enabled = true
	rules.OverallScoring.WeakestLink.TriggerMinDimLt = 2.5
	rules.OverallScoring.WeakestLink.CapDelta = 1.0
	rules.Gaps.CriticalGap.Delta = 1.0
	rules.Gaps.FoundationGap.Threshold = 2.5
	rules.CtaRules = []CtaRule{}

	raw, err := json.Marshal(rules)
	require.NoError(t, err)
	return raw
}

func normalizeInput(t *testing.T) NormalizeInput {
	t.Helper()
	dims, questions, options := testRows()
	return NormalizeInput{
		Dimensions: dims,
		Questions:  questions,
		Options:    options,
		LevelsDoc:  testLevelsDoc(t),
		RulesDoc:   testRulesDoc(t),
	}
}

func assertConfigInvalid(t *testing.T, err error, detail string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.CodeOf(err))
	se, ok := err.(*apperrors.StandardError)
	require.True(t, ok)
	assert.Contains(t, se.Details, detail)
}

// ==========================
// Normalization Tests
// ==========================

func TestNormalizeConfig_Success(t *testing.T) {
	cfg, err := NormalizeConfig(normalizeInput(t))
	require.NoError(t, err)

	assert.Len(t, cfg.Dimensions, DimensionCount)
	assert.Len(t, cfg.Questions, TotalQuestions)
	assert.Len(t, cfg.Levels, 5)
	assert.Len(t, cfg.QuestionsByID, TotalQuestions)

	// Dimensions come out sorted by configured order.
	for i := 1; i < len(cfg.Dimensions); i++ {
		assert.Less(t, cfg.Dimensions[i-1].Order, cfg.Dimensions[i].Order)
	}

	for _, dimID := range testDimensionIDs {
		assert.Len(t, cfg.QuestionIDsByDimension[dimID], QuestionsPerDimension)
	}

	q := cfg.QuestionsByID["tracking_q1"]
	require.NotNil(t, q)
	assert.Len(t, q.OptionScores, OptionsPerQuestion)
	assert.Equal(t, 5.0, q.OptionScores["tracking_q1_o5"])
}

func TestNormalizeConfig_DefaultWeight(t *testing.T) {
	input := normalizeInput(t)
	input.Dimensions[0].Weight = 0

	cfg, err := NormalizeConfig(input)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Dimensions[0].Weight)
}

func TestNormalizeConfig_WrongDimensionCount(t *testing.T) {
	input := normalizeInput(t)
	input.Dimensions = input.Dimensions[:DimensionCount-1]

	_, err := NormalizeConfig(input)
	assertConfigInvalid(t, err, "expected 6 dimensions")
}

func TestNormalizeConfig_WrongQuestionCount(t *testing.T) {
	input := normalizeInput(t)
	input.Questions = input.Questions[:TotalQuestions-1]

	_, err := NormalizeConfig(input)
	assertConfigInvalid(t, err, "expected 24 questions")
}

func TestNormalizeConfig_MissingOption(t *testing.T) {
	input := normalizeInput(t)
	input.Options = input.Options[:len(input.Options)-1]

	_, err := NormalizeConfig(input)
	assertConfigInvalid(t, err, "expected 5 options")
}

func TestNormalizeConfig_OptionScoreOutOfRange(t *testing.T) {
	input := normalizeInput(t)
	input.Options[0].Score = 6

	_, err := NormalizeConfig(input)
	assertConfigInvalid(t, err, "outside [1,5]")
}

func TestNormalizeConfig_UnknownQuestionDimension(t *testing.T) {
	input := normalizeInput(t)
	input.Questions[0].DimensionID = "bogus"

	_, err := NormalizeConfig(input)
	assertConfigInvalid(t, err, "unknown dimension")
}

func TestNormalizeConfig_LevelRangeGap(t *testing.T) {
	input := normalizeInput(t)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(input.LevelsDoc, &doc))
	levels := doc["levels"].([]interface{})
	secondRange := levels[1].(map[string]interface{})["score_range"].(map[string]interface{})
	secondRange["min"] = 2.0 // leaves (1.8, 2.0) uncovered

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	input.LevelsDoc = raw

	_, err = NormalizeConfig(input)
	assertConfigInvalid(t, err, "does not adjoin")
}

func TestNormalizeConfig_LevelBoundaryOwnedTwice(t *testing.T) {
	input := normalizeInput(t)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(input.LevelsDoc, &doc))
	levels := doc["levels"].([]interface{})
	firstRange := levels[0].(map[string]interface{})["score_range"].(map[string]interface{})
	firstRange["max_inclusive"] = true // 1.8 now covered by levels 1 and 2

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	input.LevelsDoc = raw

	_, err = NormalizeConfig(input)
	assertConfigInvalid(t, err, "covered twice")
}

func TestNormalizeConfig_TierRangesNotCoveringMax(t *testing.T) {
	input := normalizeInput(t)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(input.RulesDoc, &doc))
	tiers := doc["tier_thresholds"].(map[string]interface{})["tiers"].([]interface{})
	high := tiers[2].(map[string]interface{})
	high["max_inclusive"] = false // 5.0 no longer covered

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	input.RulesDoc = raw

	_, err = NormalizeConfig(input)
	assertConfigInvalid(t, err, "do not cover score 5")
}

func TestNormalizeConfig_LevelsDocMissingField(t *testing.T) {
	input := normalizeInput(t)
	input.LevelsDoc = json.RawMessage(`{"levels": [{"level": 1, "key": "a", "name": "A"}]}`)

	_, err := NormalizeConfig(input)
	assertConfigInvalid(t, err, "levels document invalid")
}

func TestNormalizeConfig_RulesDocNotJSON(t *testing.T) {
	input := normalizeInput(t)
	input.RulesDoc = json.RawMessage(`{not json`)

	_, err := NormalizeConfig(input)
	assertConfigInvalid(t, err, "not valid JSON")
}

func TestNormalizeConfig_RulesDocBadOperator(t *testing.T) {
	input := normalizeInput(t)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(input.RulesDoc, &doc))
	doc["cta_rules"] = []interface{}{
		map[string]interface{}{
			"id":       "r1",
			"priority": 1,
			"when": []interface{}{
				map[string]interface{}{"fact": "cap_applied", "op": "between", "value": true},
			},
			"then": map[string]interface{}{"cta_tone": "hot", "reason": "x"},
		},
	}

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	input.RulesDoc = raw

	_, err = NormalizeConfig(input)
	assertConfigInvalid(t, err, "scoring_rules document invalid")
}
