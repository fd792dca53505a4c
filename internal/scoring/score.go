// internal/scoring/score.go
package scoring

import (
	"fmt"
	"math"
	"sort"

	apperrors "assessment-workers/internal/common/errors"
)

func roundTo(value float64, decimals int) float64 {
	f := math.Pow(10, float64(decimals))
	return math.Round(value*f) / f
}

type dimScore struct {
	id    string
	score float64
}

// compareDimTieBreak orders dimensions by ascending score, then by
// ascending configured dimension order. The tie-break must never depend
// on input iteration order.
func compareDimTieBreak(a, b dimScore, order map[string]int) int {
	if a.score != b.score {
		if a.score < b.score {
			return -1
		}
		return 1
	}
	ao, ok := order[a.id]
	if !ok {
		ao = 999
	}
	bo, ok := order[b.id]
	if !ok {
		bo = 999
	}
	return ao - bo
}

func getLevelByScore(levels []Level, score float64) Level {
	for _, l := range levels {
		if l.ScoreRange.Contains(score) {
			return l
		}
	}
	// Defensive fallback (should not happen, coverage is checked at load)
	if score >= MaxOptionScore {
		return levels[len(levels)-1]
	}
	return levels[0]
}

func getTierByScore(tiers []TierRange, score float64) Tier {
	for _, t := range tiers {
		if t.asRange().Contains(score) {
			return t.Tier
		}
	}
	return TierLow
}

type facts map[string]interface{}

// evalCondition applies one fact comparison. Ordering operators only
// match numeric facts; eq/neq compare loosely across types.
func evalCondition(factValue interface{}, op string, value interface{}) bool {
	switch op {
	case "gte", "gt", "lte", "lt":
		fv, fok := toNumber(factValue)
		v, vok := toNumber(value)
		if !fok || !vok {
			return false
		}
		switch op {
		case "gte":
			return fv >= v
		case "gt":
			return fv > v
		case "lte":
			return fv <= v
		default:
			return fv < v
		}
	case "eq":
		return looseEqual(factValue, value)
	case "neq":
		return !looseEqual(factValue, value)
	default:
		return false
	}
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func looseEqual(a, b interface{}) bool {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an == bn
		}
		return false
	}
	return a == b
}

// reasonCodesFromFacts synthesizes telemetry reason codes from the same
// fact set the CTA rules see, independent of which rule fired.
func reasonCodesFromFacts(f facts) []string {
	codes := []string{}

	capApplied, _ := f["cap_applied"].(bool)
	foundationCount, _ := toNumber(f["foundation_gap_count"])
	criticalCount, _ := toNumber(f["critical_gap_count"])
	level, hasLevel := toNumber(f["overall_level"])

	if capApplied {
		codes = append(codes, "CAP_APPLIED")
	}
	if foundationCount >= 2 {
		codes = append(codes, "FOUNDATION_GAPS_2PLUS")
	} else if foundationCount >= 1 {
		codes = append(codes, "FOUNDATION_GAPS_1PLUS")
	}

	if criticalCount >= 2 {
		codes = append(codes, "CRITICAL_GAPS_2PLUS")
	} else if criticalCount >= 1 {
		codes = append(codes, "CRITICAL_GAPS_1PLUS")
	}

	if hasLevel && level <= 2 {
		codes = append(codes, "LOW_MATURITY")
	}
	if hasLevel && level >= 4 {
		codes = append(codes, "HIGH_MATURITY")
	}

	return codes
}

// Score is the pure scoring function: config-driven, deterministic, no
// I/O. All internal comparisons use un-rounded floats; rounding to the
// configured precision happens only at the output boundary.
func Score(cfg *Config, input Input) (*Output, error) {
	decimals := cfg.Rules.Rounding.ScoreDecimalPlaces

	// Build answer score map: question_id -> score
	answerScore := make(map[string]float64, len(input.Answers))
	for _, a := range input.Answers {
		q, ok := cfg.QuestionsByID[a.QuestionID]
		if !ok {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown question_id: %s", a.QuestionID))
		}
		score, ok := q.OptionScores[a.OptionID]
		if !ok {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("option %s does not belong to question %s", a.OptionID, a.QuestionID))
		}
		answerScore[a.QuestionID] = score
	}

	// Dimension scores (raw float for logic)
	dimScoresRaw := make([]dimScore, 0, len(cfg.Dimensions))
	dimTiers := make(map[string]Tier, len(cfg.Dimensions))

	for _, dim := range cfg.Dimensions {
		qids := cfg.QuestionIDsByDimension[dim.ID]
		if len(qids) != QuestionsPerDimension {
			return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("dimension %s missing question mapping", dim.ID))
		}

		var sum float64
		var n int
		for _, qid := range qids {
			s, ok := answerScore[qid]
			if !ok {
				continue
			}
			sum += s
			n++
		}
		if n != QuestionsPerDimension {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("incomplete answers for dimension %s", dim.ID))
		}

		avg := sum / float64(n)
		dimScoresRaw = append(dimScoresRaw, dimScore{id: dim.ID, score: avg})
		dimTiers[dim.ID] = getTierByScore(cfg.Rules.TierThresholds.Tiers, avg)
	}

	var baseOverallRaw float64
	for _, d := range dimScoresRaw {
		baseOverallRaw += d.score
	}
	baseOverallRaw /= float64(len(dimScoresRaw))

	// Weakest-link cap
	minDim := dimScoresRaw[0]
	for _, d := range dimScoresRaw[1:] {
		if compareDimTieBreak(d, minDim, cfg.DimensionOrder) < 0 {
			minDim = d
		}
	}

	weakest := cfg.Rules.OverallScoring.WeakestLink
	capApplied := false
	cappedOverallRaw := baseOverallRaw
	var capDetails *CapDetails

	if weakest.Enabled && minDim.score < weakest.TriggerMinDimLt {
		cappedOverallRaw = math.Min(baseOverallRaw, minDim.score+weakest.CapDelta)
		capApplied = cappedOverallRaw < baseOverallRaw
		capDetails = &CapDetails{
			MinDimScore:     roundTo(minDim.score, decimals),
			CapAdditive:     weakest.CapDelta,
			OriginalOverall: roundTo(baseOverallRaw, decimals),
			CappedOverall:   roundTo(cappedOverallRaw, decimals),
		}
	}

	// Level mapping uses capped overall (authoritative overall)
	level := getLevelByScore(cfg.Levels, cappedOverallRaw)

	// Gaps
	criticalDelta := cfg.Rules.Gaps.CriticalGap.Delta
	criticalThresholdRaw := baseOverallRaw - criticalDelta

	criticalGapsRaw := make([]dimScore, 0)
	for _, d := range dimScoresRaw {
		if d.score < criticalThresholdRaw {
			criticalGapsRaw = append(criticalGapsRaw, d)
		}
	}
	sort.SliceStable(criticalGapsRaw, func(i, j int) bool {
		return compareDimTieBreak(criticalGapsRaw[i], criticalGapsRaw[j], cfg.DimensionOrder) < 0
	})

	foundationThreshold := cfg.Rules.Gaps.FoundationGap.Threshold
	foundationCount := 0
	for _, d := range dimScoresRaw {
		if d.score < foundationThreshold {
			foundationCount++
		}
	}

	// CTA rules: config-driven condition evaluation, lowest priority wins
	f := facts{
		"foundation_gap_count": float64(foundationCount),
		"critical_gap_count":   float64(len(criticalGapsRaw)),
		"cap_applied":          capApplied,
		"min_dim_score":        minDim.score,
		"overall_level":        float64(level.Level),
		"overall_score_capped": roundTo(cappedOverallRaw, decimals),
	}

	selectedRuleID := ""
	intensity := IntensityCool

	sortedRules := make([]CtaRule, len(cfg.Rules.CtaRules))
	copy(sortedRules, cfg.Rules.CtaRules)
	sort.SliceStable(sortedRules, func(i, j int) bool { return sortedRules[i].Priority < sortedRules[j].Priority })

	for _, rule := range sortedRules {
		matched := true
		for _, cond := range rule.When {
			if !evalCondition(f[cond.Fact], cond.Op, cond.Value) {
				matched = false
				break
			}
		}
		if matched {
			intensity = rule.Then.CtaTone
			selectedRuleID = rule.ID
			break
		}
	}

	reasonCodes := reasonCodesFromFacts(f)
	if selectedRuleID != "" {
		reasonCodes = append(reasonCodes, "CTA_RULE:"+selectedRuleID)
	}

	// Output rounding: stable and predictable. Logic used raw floats.
	dimensionScores := make(map[string]float64, len(dimScoresRaw))
	for _, d := range dimScoresRaw {
		dimensionScores[d.id] = roundTo(d.score, decimals)
	}

	criticalGaps := make([]CriticalGap, 0, len(criticalGapsRaw))
	for _, g := range criticalGapsRaw {
		criticalGaps = append(criticalGaps, CriticalGap{
			DimensionID:  g.id,
			Score:        roundTo(g.score, decimals),
			DeltaFromAvg: roundTo(baseOverallRaw-g.score, decimals),
		})
	}

	return &Output{
		DimensionScores:    dimensionScores,
		DimensionTiers:     dimTiers,
		OverallScore:       roundTo(baseOverallRaw, decimals),
		OverallScoreCapped: roundTo(cappedOverallRaw, decimals),
		CapApplied:         capApplied,
		CapDetails:         capDetails,
		OverallLevel: LevelInfo{
			Level:      level.Level,
			Key:        level.Key,
			Name:       level.Name,
			HeroTitle:  level.HeroTitle,
			HeroCopy:   level.HeroCopy,
			ColorToken: level.ColorToken,
		},
		PrimaryGap:        Gap{DimensionID: minDim.id, Score: roundTo(minDim.score, decimals)},
		CriticalGaps:      criticalGaps,
		CriticalThreshold: roundTo(criticalThresholdRaw, decimals),
		Cta:               Cta{Intensity: intensity, ReasonCodes: reasonCodes},
	}, nil
}
