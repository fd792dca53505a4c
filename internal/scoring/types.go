// internal/scoring/types.go
package scoring

// Tier classifies a single dimension score.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Intensity is the coarse hot/warm/cool lead classification that drives
// follow-up messaging.
type Intensity string

const (
	IntensityHot  Intensity = "hot"
	IntensityWarm Intensity = "warm"
	IntensityCool Intensity = "cool"
)

// Answer is one (question, selected option) pair from a submission.
type Answer struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// Input is a full answer set for one assessment.
type Input struct {
	Answers []Answer `json:"answers"`
}

// Range is a numeric interval with explicit inclusivity per bound.
type Range struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	MinInclusive bool    `json:"min_inclusive"`
	MaxInclusive bool    `json:"max_inclusive"`
}

// Contains reports whether x falls inside the range.
func (r Range) Contains(x float64) bool {
	aboveMin := x > r.Min
	if r.MinInclusive {
		aboveMin = x >= r.Min
	}
	belowMax := x < r.Max
	if r.MaxInclusive {
		belowMax = x <= r.Max
	}
	return aboveMin && belowMax
}

// Level is one maturity level with its hero copy and score range.
type Level struct {
	Level      int    `json:"level"`
	Key        string `json:"key"`
	Name       string `json:"name"`
	HeroTitle  string `json:"hero_title"`
	HeroCopy   string `json:"hero_copy"`
	ColorToken string `json:"color_token"`
	ScoreRange Range  `json:"score_range"`
}

// TierRange maps a score interval to a tier.
type TierRange struct {
	Tier         Tier    `json:"tier"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	MinInclusive bool    `json:"min_inclusive"`
	MaxInclusive bool    `json:"max_inclusive"`
}

func (t TierRange) asRange() Range {
	return Range{Min: t.Min, Max: t.Max, MinInclusive: t.MinInclusive, MaxInclusive: t.MaxInclusive}
}

// CtaCondition is one fact comparison inside a CTA rule.
type CtaCondition struct {
	Fact  string      `json:"fact"`
	Op    string      `json:"op"` // gte|gt|lte|lt|eq|neq
	Value interface{} `json:"value"`
}

// CtaRule maps a conjunction of fact conditions to a lead tone. Rules are
// evaluated in ascending priority order, first full match wins.
type CtaRule struct {
	ID       string         `json:"id"`
	Priority int            `json:"priority"`
	When     []CtaCondition `json:"when"`
	Then     struct {
		CtaTone Intensity `json:"cta_tone"`
		Reason  string    `json:"reason"`
	} `json:"then"`
}

// Rules is the versioned scoring-rules document, post-validation.
type Rules struct {
	Rounding struct {
		ScoreDecimalPlaces   int `json:"score_decimal_places"`
		DisplayDecimalPlaces int `json:"display_decimal_places"`
	} `json:"rounding"`
	TierThresholds struct {
		Tiers []TierRange `json:"tiers"`
	} `json:"tier_thresholds"`
	OverallScoring struct {
		WeakestLink struct {
			Enabled         bool    `json:"enabled"`
			TriggerMinDimLt float64 `json:"trigger_min_dim_lt"`
			CapDelta        float64 `json:"cap_delta"`
		} `json:"weakest_link"`
	} `json:"overall_scoring"`
	Gaps struct {
		CriticalGap struct {
			Delta float64 `json:"delta"`
		} `json:"critical_gap"`
		FoundationGap struct {
			Threshold float64 `json:"threshold"`
		} `json:"foundation_gap"`
	} `json:"gaps"`
	CtaRules []CtaRule `json:"cta_rules"`
}

// Dimension is one capability axis being assessed.
type Dimension struct {
	ID         string  `json:"id"`
	Order      int     `json:"order"`
	Section    string  `json:"section"`
	ShortLabel string  `json:"short_label"`
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
}

// Question carries its option scores so an answer's option can be
// validated as belonging to the question.
type Question struct {
	ID           string             `json:"id"`
	Order        int                `json:"order"`
	DimensionID  string             `json:"dimension_id"`
	OptionScores map[string]float64 `json:"option_scores"`
}

// Config is the immutable, indexed scoring configuration. Built once by
// NormalizeConfig and shared read-only across requests.
type Config struct {
	Dimensions []Dimension `json:"dimensions"`
	Questions  []Question  `json:"questions"`
	Levels     []Level     `json:"levels"`
	Rules      Rules       `json:"rules"`

	// Derived lookup structures, built at normalization time.
	DimensionOrder         map[string]int       `json:"dimension_order"`
	QuestionsByID          map[string]*Question `json:"-"`
	QuestionIDsByDimension map[string][]string  `json:"question_ids_by_dimension"`
}

// LevelInfo is the level block embedded in an Output.
type LevelInfo struct {
	Level      int    `json:"level"`
	Key        string `json:"key"`
	Name       string `json:"name"`
	HeroTitle  string `json:"hero_title"`
	HeroCopy   string `json:"hero_copy"`
	ColorToken string `json:"color_token"`
}

// CapDetails records the weakest-link cap math when the rule triggered.
type CapDetails struct {
	MinDimScore     float64 `json:"min_dim_score"`
	CapAdditive     float64 `json:"cap_additive"`
	OriginalOverall float64 `json:"original_overall"`
	CappedOverall   float64 `json:"capped_overall"`
}

// Gap identifies one weak dimension.
type Gap struct {
	DimensionID string  `json:"dimension_id"`
	Score       float64 `json:"score"`
}

// CriticalGap is a dimension significantly below the assessment average.
type CriticalGap struct {
	DimensionID  string  `json:"dimension_id"`
	Score        float64 `json:"score"`
	DeltaFromAvg float64 `json:"delta_from_avg"`
}

// Cta is the resolved call-to-action tone plus telemetry reason codes.
type Cta struct {
	Intensity   Intensity `json:"intensity"`
	ReasonCodes []string  `json:"reason_codes"`
}

// Output is the full scoring result for one submission. All numeric
// fields are rounded to the configured precision; internal comparisons
// always use un-rounded values.
type Output struct {
	DimensionScores map[string]float64 `json:"dimension_scores"`
	DimensionTiers  map[string]Tier    `json:"dimension_tiers"`

	OverallScore       float64 `json:"overall_score"`
	OverallScoreCapped float64 `json:"overall_score_capped"`

	CapApplied bool        `json:"cap_applied"`
	CapDetails *CapDetails `json:"cap_details,omitempty"`

	OverallLevel LevelInfo `json:"overall_level"`

	PrimaryGap Gap `json:"primary_gap"`

	CriticalGaps      []CriticalGap `json:"critical_gaps"`
	CriticalThreshold float64       `json:"critical_threshold"`

	Cta Cta `json:"cta"`
}
