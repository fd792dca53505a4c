// internal/customization/types.go
package customization

import "assessment-workers/internal/scoring"

// Severity grades a dependency alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Observation is one notable "what you told us" entry in a snapshot.
type Observation struct {
	QuestionID        string  `json:"question_id"`
	OptionID          string  `json:"option_id"`
	Score             float64 `json:"score"`
	ObservationShort  string  `json:"observation_short"`
	ObservationDetail string  `json:"observation_detail"`
	RedFlag           bool    `json:"red_flag"`
}

// DependencyAlert is one fired dependency rule, templated and clamped.
type DependencyAlert struct {
	ID             string   `json:"id"`
	Priority       int      `json:"priority"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
	Blocks         []string `json:"blocks,omitempty"`
}

// ImpactBlock is the "why this matters" narrative for one weak dimension.
type ImpactBlock struct {
	DimensionID    string       `json:"dimension_id"`
	Tier           scoring.Tier `json:"tier"`
	Headline       string       `json:"headline"`
	MetricValue    string       `json:"metric_value"`
	MetricLabel    string       `json:"metric_label"`
	Detail         string       `json:"detail"`
	BusinessImpact []string     `json:"business_impact"`
	CostExample    string       `json:"cost_example,omitempty"`
	Opportunity    string       `json:"opportunity,omitempty"`
}

// ToolRec is one recommended tool inside a ToolBlock.
type ToolRec struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Fit      string `json:"fit"`
	URL      string `json:"url,omitempty"`
	Note     string `json:"note,omitempty"`
}

// ToolBlock is the tool-recommendation section for one weak dimension.
type ToolBlock struct {
	DimensionID      string       `json:"dimension_id"`
	Tier             scoring.Tier `json:"tier"`
	Context          string       `json:"context"`
	QuickWins        []string     `json:"quick_wins"`
	RecommendedTools []ToolRec    `json:"recommended_tools"`
	DIYAlternative   string       `json:"diy_alternative,omitempty"`
}

// BenchmarkBlock describes the next-level transition for the top gap.
type BenchmarkBlock struct {
	DimensionID      string   `json:"dimension_id"`
	FromLevel        int      `json:"from_level"`
	ToLevel          int      `json:"to_level"`
	CurrentState     []string `json:"current_state"`
	TargetState      []string `json:"target_state"`
	GapSummary       string   `json:"gap_summary"`
	SuccessIndicator string   `json:"success_indicator"`
	TypicalTimeline  string   `json:"typical_timeline"`
}

// Snapshot is the full personalization bundle for one scored submission.
// It is serializable and must be byte-identical across repeated calls
// with the same input.
type Snapshot struct {
	Version      string `json:"version"`
	CreatedAtISO string `json:"created_at_iso"`

	Observations     []Observation     `json:"observations"`
	DependencyAlerts []DependencyAlert `json:"dependency_alerts"`
	Impacts          []ImpactBlock     `json:"impacts"`
	Benchmarks       []BenchmarkBlock  `json:"benchmarks"`
	Tools            []ToolBlock       `json:"tools"`

	// Non-fatal content-QA warnings from the copy consistency check.
	CopyWarnings []string `json:"copy_warnings,omitempty"`
}

// DimensionResult is the per-dimension slice of a scored result that the
// resolver needs.
type DimensionResult struct {
	DimensionID string       `json:"dimension_id"`
	Order       int          `json:"order"`
	Name        string       `json:"name"`
	Score       float64      `json:"score"`
	Tier        scoring.Tier `json:"tier"`
}

// Results is the scored-result view consumed by Resolve.
type Results struct {
	OverallLevel int               `json:"overall_level"`
	Dimensions   []DimensionResult `json:"dimensions"`
}
