// internal/customization/packs.go
package customization

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"

	apperrors "assessment-workers/internal/common/errors"
)

// ObservationEntry is one authored option observation.
type ObservationEntry struct {
	Score             float64 `json:"score"`
	RedFlag           bool    `json:"red_flag"`
	ObservationShort  string  `json:"observation_short"`
	ObservationDetail string  `json:"observation_detail"`
}

// QuestionObservations holds the authored observations for one question,
// keyed by full option id or short suffix (o1..o5).
type QuestionObservations struct {
	Dimension string                      `json:"dimension"`
	Options   map[string]ObservationEntry `json:"options"`
}

// DependencyRule is one authored rule evaluated against dimension scores
// and selected options.
type DependencyRule struct {
	ID             string    `json:"id"`
	Priority       int       `json:"priority"`
	Severity       Severity  `json:"severity"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
	Blocks         []string  `json:"blocks,omitempty"`
	Condition      Condition `json:"condition"`
}

// ImpactEntry is the authored impact copy for one (dimension, tier).
type ImpactEntry struct {
	Headline       string   `json:"headline"`
	MetricValue    string   `json:"metric_value"`
	MetricLabel    string   `json:"metric_label"`
	Detail         string   `json:"detail"`
	BusinessImpact []string `json:"business_impact"`
	CostExample    string   `json:"cost_example,omitempty"`
	Opportunity    string   `json:"opportunity,omitempty"`
}

// BenchmarkEntry is the authored copy for one level transition.
type BenchmarkEntry struct {
	CurrentState     []string `json:"current_state"`
	TargetState      []string `json:"target_state"`
	GapSummary       string   `json:"gap_summary"`
	SuccessIndicator string   `json:"success_indicator"`
	TypicalTimeline  string   `json:"typical_timeline"`
}

// ToolEntry is the authored tool copy for one (dimension, tier).
type ToolEntry struct {
	Context          string    `json:"context"`
	QuickWins        []string  `json:"quick_wins"`
	RecommendedTools []ToolRec `json:"recommended_tools"`
	DIYAlternative   string    `json:"diy_alternative,omitempty"`
}

// Packs bundles the five independently versioned content packs. Loaded
// once, read-only at request time.
type Packs struct {
	AnswerObservations  map[string]QuestionObservations     `json:"answer_observations"`
	DependencyRules     []DependencyRule                    `json:"dependency_rules"`
	ImpactEstimates     map[string]map[string]ImpactEntry   `json:"impact_estimates"`
	LevelBenchmarks     map[string]map[string]BenchmarkEntry `json:"level_benchmarks"`
	ToolRecommendations map[string]map[string]ToolEntry     `json:"tool_recommendations"`
}

// Pack file names inside the customization config directory.
const (
	FileAnswerObservations  = "answer-observations.json"
	FileDependencyRules     = "dependency-rules.json"
	FileImpactEstimates     = "impact-estimates.json"
	FileLevelBenchmarks     = "level-benchmarks.json"
	FileToolRecommendations = "tool-recommendations.json"
)

var packSchemas = map[string]map[string]interface{}{
	FileAnswerObservations: {
		"type":     "object",
		"required": []interface{}{"answer_observations"},
		"properties": map[string]interface{}{
			"answer_observations": map[string]interface{}{"type": "object"},
		},
	},
	FileDependencyRules: {
		"type":     "object",
		"required": []interface{}{"dependency_rules"},
		"properties": map[string]interface{}{
			"dependency_rules": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"rules"},
				"properties": map[string]interface{}{
					"rules": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":     "object",
							"required": []interface{}{"id", "priority", "severity", "title", "message", "condition"},
							"properties": map[string]interface{}{
								"id":       map[string]interface{}{"type": "string"},
								"priority": map[string]interface{}{"type": "integer"},
								"severity": map[string]interface{}{"enum": []interface{}{"critical", "warning", "info"}},
							},
						},
					},
				},
			},
		},
	},
	FileImpactEstimates: {
		"type":     "object",
		"required": []interface{}{"impact_estimates"},
		"properties": map[string]interface{}{
			"impact_estimates": map[string]interface{}{"type": "object"},
		},
	},
	FileLevelBenchmarks: {
		"type":     "object",
		"required": []interface{}{"level_benchmarks"},
		"properties": map[string]interface{}{
			"level_benchmarks": map[string]interface{}{"type": "object"},
		},
	},
	FileToolRecommendations: {
		"type":     "object",
		"required": []interface{}{"tool_recommendations"},
		"properties": map[string]interface{}{
			"tool_recommendations": map[string]interface{}{"type": "object"},
		},
	},
}

func validatePackDoc(name string, raw []byte) (interface{}, error) {
	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.NewPackInvalidError(name, fmt.Sprintf("not valid JSON: %v", err))
	}

	schemaLoader := gojsonschema.NewGoLoader(packSchemas[name])
	documentLoader := gojsonschema.NewGoLoader(parsed)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, apperrors.NewPackInvalidError(name, fmt.Sprintf("schema validation failed: %v", err))
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return nil, apperrors.NewPackInvalidError(name, fmt.Sprintf("%s: %s", first.Field(), first.Description()))
	}
	return parsed, nil
}

func readPackFile(dir, name string) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewConfigMissingError(name)
		}
		return nil, apperrors.NewPackInvalidError(name, err.Error())
	}
	if _, err := validatePackDoc(name, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeSection pulls the named top-level object out of a pack document
// as raw members, dropping the authoring-metadata "_meta" key so it never
// collides with dimension/question keys.
func decodeSection(name string, raw []byte, key string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.NewPackInvalidError(name, err.Error())
	}
	var section map[string]json.RawMessage
	if err := json.Unmarshal(doc[key], &section); err != nil {
		return nil, apperrors.NewPackInvalidError(name, fmt.Sprintf("%s: %v", key, err))
	}
	delete(section, "_meta")
	return section, nil
}

// LoadPacks reads and validates the five content packs from dir. A
// structurally broken pack fails the whole load; callers keep serving
// their last-known-good packs in that case.
func LoadPacks(dir string) (*Packs, error) {
	packs := &Packs{}

	raw, err := readPackFile(dir, FileAnswerObservations)
	if err != nil {
		return nil, err
	}
	obsSection, err := decodeSection(FileAnswerObservations, raw, "answer_observations")
	if err != nil {
		return nil, err
	}
	packs.AnswerObservations = make(map[string]QuestionObservations, len(obsSection))
	for qid, member := range obsSection {
		var q QuestionObservations
		if err := json.Unmarshal(member, &q); err != nil {
			return nil, apperrors.NewPackInvalidError(FileAnswerObservations, fmt.Sprintf("question %s: %v", qid, err))
		}
		packs.AnswerObservations[qid] = q
	}

	raw, err = readPackFile(dir, FileDependencyRules)
	if err != nil {
		return nil, err
	}
	var rulesDoc struct {
		DependencyRules struct {
			Rules []DependencyRule `json:"rules"`
		} `json:"dependency_rules"`
	}
	if err := json.Unmarshal(raw, &rulesDoc); err != nil {
		return nil, apperrors.NewPackInvalidError(FileDependencyRules, err.Error())
	}
	packs.DependencyRules = rulesDoc.DependencyRules.Rules

	raw, err = readPackFile(dir, FileImpactEstimates)
	if err != nil {
		return nil, err
	}
	impactSection, err := decodeSection(FileImpactEstimates, raw, "impact_estimates")
	if err != nil {
		return nil, err
	}
	packs.ImpactEstimates = make(map[string]map[string]ImpactEntry, len(impactSection))
	for dim, member := range impactSection {
		var tiers map[string]ImpactEntry
		if err := json.Unmarshal(member, &tiers); err != nil {
			return nil, apperrors.NewPackInvalidError(FileImpactEstimates, fmt.Sprintf("dimension %s: %v", dim, err))
		}
		packs.ImpactEstimates[dim] = tiers
	}

	raw, err = readPackFile(dir, FileLevelBenchmarks)
	if err != nil {
		return nil, err
	}
	bmSection, err := decodeSection(FileLevelBenchmarks, raw, "level_benchmarks")
	if err != nil {
		return nil, err
	}
	packs.LevelBenchmarks = make(map[string]map[string]BenchmarkEntry, len(bmSection))
	for dim, member := range bmSection {
		var transitions map[string]BenchmarkEntry
		if err := json.Unmarshal(member, &transitions); err != nil {
			return nil, apperrors.NewPackInvalidError(FileLevelBenchmarks, fmt.Sprintf("dimension %s: %v", dim, err))
		}
		packs.LevelBenchmarks[dim] = transitions
	}

	raw, err = readPackFile(dir, FileToolRecommendations)
	if err != nil {
		return nil, err
	}
	toolSection, err := decodeSection(FileToolRecommendations, raw, "tool_recommendations")
	if err != nil {
		return nil, err
	}
	packs.ToolRecommendations = make(map[string]map[string]ToolEntry, len(toolSection))
	for dim, member := range toolSection {
		var tiers map[string]ToolEntry
		if err := json.Unmarshal(member, &tiers); err != nil {
			return nil, apperrors.NewPackInvalidError(FileToolRecommendations, fmt.Sprintf("dimension %s: %v", dim, err))
		}
		packs.ToolRecommendations[dim] = tiers
	}

	return packs, nil
}
