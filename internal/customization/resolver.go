// internal/customization/resolver.go
package customization

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"assessment-workers/internal/scoring"
)

// Text clamp lengths. Downstream renderers assume bounded text, so these
// are a hard contract, not formatting.
const (
	maxObservationShort  = 120
	maxObservationDetail = 500
	maxAlertTitle        = 120
	maxAlertMessage      = 520
	maxRecommendation    = 360
	maxHeadline          = 120
	maxMetricValue       = 40
	maxMetricLabel       = 60
	maxImpactDetail      = 520
	maxImpactItem        = 120
	maxCostExample       = 240
	maxOpportunity       = 240
	maxStateItem         = 120
	maxGapSummary        = 420
	maxSuccessIndicator  = 220
	maxTimeline          = 80
	maxToolContext       = 280
	maxQuickWin          = 120
	maxToolName          = 60
	maxToolCategory      = 60
	maxToolPrice         = 10
	maxToolFit           = 120
	maxToolURL           = 200
	maxToolNote          = 140
	maxDIYAlternative    = 240

	maxQuickWins        = 5
	maxRecommendedTools = 6
	maxImpactDimensions = 3
)

// observationScoreCutoff: answers scoring at or above this are only
// included when red-flagged.
const observationScoreCutoff = 4

// clampText bounds s to max characters, replacing the tail with an
// ellipsis when it overflows.
func clampText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func clampItems(items []string, maxLen int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, clampText(item, maxLen))
	}
	return out
}

// fillTemplate substitutes {name} placeholders with their values.
func fillTemplate(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// ResolveArgs bundles the inputs to Resolve. CreatedAt is supplied by
// the caller so repeated calls with identical input serialize
// byte-identically.
type ResolveArgs struct {
	Results   Results
	Answers   []scoring.Answer
	Packs     *Packs
	Version   string
	CreatedAt time.Time
}

// Resolve builds the personalization snapshot for one scored submission:
// notable observations, fired dependency alerts, impact blocks for the
// three weakest dimensions, at most one level benchmark, and tool
// recommendations. Pure and deterministic; a pack entry missing for a
// key is an omission, never an error.
func Resolve(args ResolveArgs) *Snapshot {
	version := args.Version
	if version == "" {
		version = "v1"
	}

	results := args.Results
	packs := args.Packs

	dimScores := make(map[string]float64, len(results.Dimensions))
	dimTiers := make(map[string]scoring.Tier, len(results.Dimensions))
	for _, d := range results.Dimensions {
		dimScores[d.DimensionID] = d.Score
		dimTiers[d.DimensionID] = d.Tier
	}

	answersByQ := make(map[string]string, len(args.Answers))
	for _, a := range args.Answers {
		answersByQ[a.QuestionID] = a.OptionID
	}

	snapshot := &Snapshot{
		Version:          version,
		CreatedAtISO:     args.CreatedAt.UTC().Format(time.RFC3339),
		Observations:     []Observation{},
		DependencyAlerts: []DependencyAlert{},
		Impacts:          []ImpactBlock{},
		Benchmarks:       []BenchmarkBlock{},
		Tools:            []ToolBlock{},
	}

	// 1) Answer observations: include only red flags or low scores so
	// the report stays dense with signal.
	observationTexts := []string{}
	for _, a := range args.Answers {
		q, ok := packs.AnswerObservations[a.QuestionID]
		if !ok {
			continue
		}

		entry, ok := q.Options[a.OptionID]
		if !ok {
			suffix := optionSuffix(a.OptionID)
			if suffix == "" {
				continue
			}
			entry, ok = q.Options[suffix]
			if !ok {
				continue
			}
		}

		if !entry.RedFlag && entry.Score >= observationScoreCutoff {
			continue
		}

		detail := clampText(entry.ObservationDetail, maxObservationDetail)
		snapshot.Observations = append(snapshot.Observations, Observation{
			QuestionID:        a.QuestionID,
			OptionID:          a.OptionID,
			Score:             entry.Score,
			ObservationShort:  clampText(entry.ObservationShort, maxObservationShort),
			ObservationDetail: detail,
			RedFlag:           entry.RedFlag,
		})
		observationTexts = append(observationTexts, detail)
	}

	// 2) Dependency alerts: all matching rules, sorted by priority.
	ctx := conditionContext{dimScores: dimScores, answersByQ: answersByQ}

	templateVars := make(map[string]string, len(dimScores))
	for dim, score := range dimScores {
		templateVars[dim+"_score"] = fmt.Sprintf("%.1f", score)
	}

	sortedRules := make([]DependencyRule, len(packs.DependencyRules))
	copy(sortedRules, packs.DependencyRules)
	sort.SliceStable(sortedRules, func(i, j int) bool { return sortedRules[i].Priority < sortedRules[j].Priority })

	for _, rule := range sortedRules {
		if !rule.Condition.eval(ctx) {
			continue
		}
		severity := rule.Severity
		if severity == "" {
			severity = SeverityInfo
		}
		snapshot.DependencyAlerts = append(snapshot.DependencyAlerts, DependencyAlert{
			ID:             rule.ID,
			Priority:       rule.Priority,
			Severity:       severity,
			Title:          clampText(rule.Title, maxAlertTitle),
			Message:        clampText(fillTemplate(rule.Message, templateVars), maxAlertMessage),
			Recommendation: clampText(rule.Recommendation, maxRecommendation),
			Blocks:         rule.Blocks,
		})
	}

	// Top 3 gap dimensions: score ascending, configured order breaks ties.
	sortedDims := make([]DimensionResult, len(results.Dimensions))
	copy(sortedDims, results.Dimensions)
	sort.SliceStable(sortedDims, func(i, j int) bool {
		if sortedDims[i].Score != sortedDims[j].Score {
			return sortedDims[i].Score < sortedDims[j].Score
		}
		return sortedDims[i].Order < sortedDims[j].Order
	})
	top := sortedDims
	if len(top) > maxImpactDimensions {
		top = top[:maxImpactDimensions]
	}

	// 3) Impact blocks for the top gaps, with capability-aware copy.
	caps := ExtractCapabilities(BuildAnswerSummaries(results, args.Answers, packs))

	for _, d := range top {
		entry, ok := packs.ImpactEstimates[d.DimensionID][string(d.Tier)]
		if !ok {
			continue
		}

		variant := SelectCopyVariant(d.DimensionID, d.Tier, caps)
		copySel := ConditionalImpactCopy(d.DimensionID, d.Tier, variant, impactCopy{
			Headline: entry.Headline,
			Detail:   entry.Detail,
		})

		snapshot.CopyWarnings = append(snapshot.CopyWarnings,
			ValidateCopyConsistency(observationTexts, copySel, caps, d.DimensionID)...)

		snapshot.Impacts = append(snapshot.Impacts, ImpactBlock{
			DimensionID:    d.DimensionID,
			Tier:           d.Tier,
			Headline:       clampText(copySel.Headline, maxHeadline),
			MetricValue:    clampText(entry.MetricValue, maxMetricValue),
			MetricLabel:    clampText(entry.MetricLabel, maxMetricLabel),
			Detail:         clampText(copySel.Detail, maxImpactDetail),
			BusinessImpact: clampItems(entry.BusinessImpact, maxImpactItem),
			CostExample:    clampText(entry.CostExample, maxCostExample),
			Opportunity:    clampText(entry.Opportunity, maxOpportunity),
		})
	}

	// 4) Level benchmark: top gap dimension only, current -> next level.
	if len(top) > 0 && results.OverallLevel < 5 {
		topGap := top[0]
		nextLevel := results.OverallLevel + 1
		key := fmt.Sprintf("%d_to_%d", results.OverallLevel, nextLevel)
		if bm, ok := packs.LevelBenchmarks[topGap.DimensionID][key]; ok {
			snapshot.Benchmarks = append(snapshot.Benchmarks, BenchmarkBlock{
				DimensionID:      topGap.DimensionID,
				FromLevel:        results.OverallLevel,
				ToLevel:          nextLevel,
				CurrentState:     clampItems(bm.CurrentState, maxStateItem),
				TargetState:      clampItems(bm.TargetState, maxStateItem),
				GapSummary:       clampText(bm.GapSummary, maxGapSummary),
				SuccessIndicator: clampText(bm.SuccessIndicator, maxSuccessIndicator),
				TypicalTimeline:  clampText(bm.TypicalTimeline, maxTimeline),
			})
		}
	}

	// 5) Tool recommendations for the top gaps, bounded nested lists.
	for _, d := range top {
		entry, ok := packs.ToolRecommendations[d.DimensionID][string(d.Tier)]
		if !ok {
			continue
		}

		quickWins := entry.QuickWins
		if len(quickWins) > maxQuickWins {
			quickWins = quickWins[:maxQuickWins]
		}
		recTools := entry.RecommendedTools
		if len(recTools) > maxRecommendedTools {
			recTools = recTools[:maxRecommendedTools]
		}

		tools := make([]ToolRec, 0, len(recTools))
		for _, t := range recTools {
			tools = append(tools, ToolRec{
				Name:     clampText(t.Name, maxToolName),
				Category: clampText(t.Category, maxToolCategory),
				Price:    clampText(t.Price, maxToolPrice),
				Fit:      clampText(t.Fit, maxToolFit),
				URL:      clampText(t.URL, maxToolURL),
				Note:     clampText(t.Note, maxToolNote),
			})
		}

		snapshot.Tools = append(snapshot.Tools, ToolBlock{
			DimensionID:      d.DimensionID,
			Tier:             d.Tier,
			Context:          clampText(entry.Context, maxToolContext),
			QuickWins:        clampItems(quickWins, maxQuickWin),
			RecommendedTools: tools,
			DIYAlternative:   clampText(entry.DIYAlternative, maxDIYAlternative),
		})
	}

	return snapshot
}
