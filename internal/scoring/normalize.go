// internal/scoring/normalize.go
package scoring

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	apperrors "assessment-workers/internal/common/errors"
)

// Fixed cardinalities of the assessment. Validated once at config load,
// never re-checked per request.
const (
	DimensionCount        = 6
	QuestionsPerDimension = 4
	OptionsPerQuestion    = 5
	TotalQuestions        = DimensionCount * QuestionsPerDimension
	MinOptionScore        = 1
	MaxOptionScore        = 5
)

// DimensionRow is a raw dimension record from the config source.
type DimensionRow struct {
	ID         string  `json:"id"`
	Order      int     `json:"order"`
	Section    string  `json:"section"`
	ShortLabel string  `json:"short_label"`
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
}

// QuestionRow is a raw question record from the config source.
type QuestionRow struct {
	ID          string `json:"id"`
	Order       int    `json:"order"`
	DimensionID string `json:"dimension_id"`
}

// OptionRow is a raw option record from the config source.
type OptionRow struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Score      int    `json:"score"`
}

// NormalizeInput bundles everything a fresh config build needs.
type NormalizeInput struct {
	Dimensions []DimensionRow
	Questions  []QuestionRow
	Options    []OptionRow
	LevelsDoc  json.RawMessage
	RulesDoc   json.RawMessage
}

var levelsDocSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"levels"},
	"properties": map[string]interface{}{
		"version": map[string]interface{}{"type": "string"},
		"levels": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type": "object",
				"required": []interface{}{
					"level", "key", "name", "hero_title", "hero_copy", "color_token", "score_range",
				},
				"properties": map[string]interface{}{
					"level":       map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 5},
					"key":         map[string]interface{}{"type": "string"},
					"name":        map[string]interface{}{"type": "string"},
					"hero_title":  map[string]interface{}{"type": "string"},
					"hero_copy":   map[string]interface{}{"type": "string"},
					"color_token": map[string]interface{}{"type": "string"},
					"score_range": map[string]interface{}{
						"type":     "object",
						"required": []interface{}{"min", "max", "min_inclusive", "max_inclusive"},
						"properties": map[string]interface{}{
							"min":           map[string]interface{}{"type": "number"},
							"max":           map[string]interface{}{"type": "number"},
							"min_inclusive": map[string]interface{}{"type": "boolean"},
							"max_inclusive": map[string]interface{}{"type": "boolean"},
						},
					},
				},
			},
		},
	},
}

var rulesDocSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"rounding", "tier_thresholds", "overall_scoring", "gaps", "cta_rules"},
	"properties": map[string]interface{}{
		"version": map[string]interface{}{"type": "string"},
		"rounding": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"score_decimal_places", "display_decimal_places"},
			"properties": map[string]interface{}{
				"score_decimal_places":   map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 6},
				"display_decimal_places": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 6},
			},
		},
		"tier_thresholds": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"tiers"},
			"properties": map[string]interface{}{
				"tiers": map[string]interface{}{
					"type":     "array",
					"minItems": 1,
					"items": map[string]interface{}{
						"type":     "object",
						"required": []interface{}{"tier", "min", "max", "min_inclusive", "max_inclusive"},
						"properties": map[string]interface{}{
							"tier":          map[string]interface{}{"enum": []interface{}{"low", "medium", "high"}},
							"min":           map[string]interface{}{"type": "number"},
							"max":           map[string]interface{}{"type": "number"},
							"min_inclusive": map[string]interface{}{"type": "boolean"},
							"max_inclusive": map[string]interface{}{"type": "boolean"},
						},
					},
				},
			},
		},
		"overall_scoring": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"weakest_link"},
			"properties": map[string]interface{}{
				"weakest_link": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"enabled", "trigger_min_dim_lt", "cap_delta"},
					"properties": map[string]interface{}{
						"enabled":            map[string]interface{}{"type": "boolean"},
						"trigger_min_dim_lt": map[string]interface{}{"type": "number"},
						"cap_delta":          map[string]interface{}{"type": "number"},
					},
				},
			},
		},
		"gaps": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"critical_gap", "foundation_gap"},
			"properties": map[string]interface{}{
				"critical_gap": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"delta"},
					"properties": map[string]interface{}{
						"delta": map[string]interface{}{"type": "number"},
					},
				},
				"foundation_gap": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"threshold"},
					"properties": map[string]interface{}{
						"threshold": map[string]interface{}{"type": "number"},
					},
				},
			},
		},
		"cta_rules": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"id", "priority", "when", "then"},
				"properties": map[string]interface{}{
					"id":       map[string]interface{}{"type": "string"},
					"priority": map[string]interface{}{"type": "integer"},
					"when": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":     "object",
							"required": []interface{}{"fact", "op", "value"},
							"properties": map[string]interface{}{
								"fact": map[string]interface{}{"type": "string"},
								"op":   map[string]interface{}{"enum": []interface{}{"gte", "gt", "lte", "lt", "eq", "neq"}},
							},
						},
					},
					"then": map[string]interface{}{
						"type":     "object",
						"required": []interface{}{"cta_tone", "reason"},
						"properties": map[string]interface{}{
							"cta_tone": map[string]interface{}{"enum": []interface{}{"hot", "warm", "cool"}},
							"reason":   map[string]interface{}{"type": "string"},
						},
					},
				},
			},
		},
	},
}

func validateDoc(doc json.RawMessage, schema map[string]interface{}, name string) error {
	var parsed interface{}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("%s document is not valid JSON: %v", name, err))
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(parsed)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("%s schema validation failed: %v", name, err))
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return apperrors.NewConfigInvalidError(fmt.Sprintf("%s document invalid: %s: %s", name, first.Field(), first.Description()))
	}
	return nil
}

// NormalizeConfig validates raw config rows and rule documents and builds
// the immutable, indexed Config. Any structural violation fails with
// CONFIG_INVALID; nothing is silently coerced.
func NormalizeConfig(input NormalizeInput) (*Config, error) {
	if err := validateDoc(input.LevelsDoc, levelsDocSchema, "levels"); err != nil {
		return nil, err
	}
	if err := validateDoc(input.RulesDoc, rulesDocSchema, "scoring_rules"); err != nil {
		return nil, err
	}

	var levelsDoc struct {
		Version string  `json:"version"`
		Levels  []Level `json:"levels"`
	}
	if err := json.Unmarshal(input.LevelsDoc, &levelsDoc); err != nil {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("failed to decode levels document: %v", err))
	}

	var rules Rules
	if err := json.Unmarshal(input.RulesDoc, &rules); err != nil {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("failed to decode scoring_rules document: %v", err))
	}

	levels := make([]Level, len(levelsDoc.Levels))
	copy(levels, levelsDoc.Levels)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

	if err := checkLevelCoverage(levels); err != nil {
		return nil, err
	}
	if err := checkTierCoverage(rules.TierThresholds.Tiers); err != nil {
		return nil, err
	}

	dimensions := make([]Dimension, 0, len(input.Dimensions))
	for _, d := range input.Dimensions {
		weight := d.Weight
		if weight == 0 {
			weight = 1
		}
		dimensions = append(dimensions, Dimension{
			ID:         d.ID,
			Order:      d.Order,
			Section:    d.Section,
			ShortLabel: d.ShortLabel,
			Name:       d.Name,
			Weight:     weight,
		})
	}
	sort.Slice(dimensions, func(i, j int) bool { return dimensions[i].Order < dimensions[j].Order })

	if len(dimensions) != DimensionCount {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("expected %d dimensions, got %d", DimensionCount, len(dimensions)))
	}

	questions := make([]Question, 0, len(input.Questions))
	for _, q := range input.Questions {
		questions = append(questions, Question{
			ID:           q.ID,
			Order:        q.Order,
			DimensionID:  q.DimensionID,
			OptionScores: make(map[string]float64),
		})
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })

	if len(questions) != TotalQuestions {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("expected %d questions, got %d", TotalQuestions, len(questions)))
	}

	questionsByID := make(map[string]*Question, len(questions))
	for i := range questions {
		questionsByID[questions[i].ID] = &questions[i]
	}

	// Attach option scores per question
	for _, o := range input.Options {
		q, ok := questionsByID[o.QuestionID]
		if !ok {
			continue
		}
		if o.Score < MinOptionScore || o.Score > MaxOptionScore {
			return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("option %s has score %d outside [%d,%d]", o.ID, o.Score, MinOptionScore, MaxOptionScore))
		}
		q.OptionScores[o.ID] = float64(o.Score)
	}

	for i := range questions {
		if got := len(questions[i].OptionScores); got != OptionsPerQuestion {
			return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("question %s expected %d options, got %d", questions[i].ID, OptionsPerQuestion, got))
		}
	}

	// Derived maps
	dimensionOrder := make(map[string]int, len(dimensions))
	questionIDsByDim := make(map[string][]string, len(dimensions))
	for _, d := range dimensions {
		dimensionOrder[d.ID] = d.Order
		questionIDsByDim[d.ID] = []string{}
	}

	for i := range questions {
		q := &questions[i]
		if _, ok := questionIDsByDim[q.DimensionID]; !ok {
			return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("question %s references unknown dimension %s", q.ID, q.DimensionID))
		}
		questionIDsByDim[q.DimensionID] = append(questionIDsByDim[q.DimensionID], q.ID)
	}

	for dim, ids := range questionIDsByDim {
		if len(ids) != QuestionsPerDimension {
			return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("dimension %s expected %d questions, got %d", dim, QuestionsPerDimension, len(ids)))
		}
	}

	return &Config{
		Dimensions:             dimensions,
		Questions:              questions,
		Levels:                 levels,
		Rules:                  rules,
		DimensionOrder:         dimensionOrder,
		QuestionsByID:          questionsByID,
		QuestionIDsByDimension: questionIDsByDim,
	}, nil
}

// checkLevelCoverage verifies the sorted levels partition [1,5]: adjacent
// ranges with no gaps or overlaps. Mismatches are a content bug that would
// otherwise be masked by the boundary-level fallback at lookup time.
func checkLevelCoverage(levels []Level) error {
	if len(levels) == 0 {
		return apperrors.NewConfigInvalidError("levels document has no levels")
	}

	first := levels[0].ScoreRange
	if !first.Contains(float64(MinOptionScore)) {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("level ranges do not cover score %d", MinOptionScore))
	}
	last := levels[len(levels)-1].ScoreRange
	if !last.Contains(float64(MaxOptionScore)) {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("level ranges do not cover score %d", MaxOptionScore))
	}

	for i := 1; i < len(levels); i++ {
		prev := levels[i-1].ScoreRange
		cur := levels[i].ScoreRange
		if cur.Min != prev.Max {
			return apperrors.NewConfigInvalidError(fmt.Sprintf("level %d range does not adjoin level %d (gap or overlap at %v/%v)", levels[i].Level, levels[i-1].Level, prev.Max, cur.Min))
		}
		// Exactly one side owns the boundary value.
		if prev.MaxInclusive == cur.MinInclusive {
			return apperrors.NewConfigInvalidError(fmt.Sprintf("level boundary %v between levels %d and %d is covered %s", cur.Min, levels[i-1].Level, levels[i].Level, boundaryProblem(prev.MaxInclusive)))
		}
	}
	return nil
}

// checkTierCoverage verifies tier ranges partition [1,5] the same way.
func checkTierCoverage(tiers []TierRange) error {
	if len(tiers) == 0 {
		return apperrors.NewConfigInvalidError("tier_thresholds has no tiers")
	}

	sorted := make([]TierRange, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	if !sorted[0].asRange().Contains(float64(MinOptionScore)) {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("tier ranges do not cover score %d", MinOptionScore))
	}
	if !sorted[len(sorted)-1].asRange().Contains(float64(MaxOptionScore)) {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("tier ranges do not cover score %d", MaxOptionScore))
	}

	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		cur := sorted[i]
		if cur.Min != prev.Max {
			return apperrors.NewConfigInvalidError(fmt.Sprintf("tier %s range does not adjoin tier %s (gap or overlap at %v/%v)", cur.Tier, prev.Tier, prev.Max, cur.Min))
		}
		if prev.MaxInclusive == cur.MinInclusive {
			return apperrors.NewConfigInvalidError(fmt.Sprintf("tier boundary %v between %s and %s is covered %s", cur.Min, prev.Tier, cur.Tier, boundaryProblem(prev.MaxInclusive)))
		}
	}
	return nil
}

func boundaryProblem(bothInclusive bool) string {
	if bothInclusive {
		return "twice (both bounds inclusive)"
	}
	return "by neither range (both bounds exclusive)"
}
