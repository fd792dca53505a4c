// internal/customization/capability.go
package customization

import (
	"strings"

	"assessment-workers/internal/scoring"
)

// CapabilityState is the flat set of boolean facts derived from a user's
// answers. Each flag records what the user claims to have or do; copy
// selection uses it to avoid contradicting the user's own report.
type CapabilityState struct {
	// Tracking
	HasBasicTracking       bool
	HasAdvancedTracking    bool
	HasServerSideTracking  bool
	HasTagManagement       bool
	HasDocumentedProcesses bool

	// Attribution
	HasAttributionModel      bool
	HasMultiTouchAttribution bool
	HasIncrementalityTesting bool

	// Reporting
	HasDashboards         bool
	HasAutomatedReporting bool
	HasSelfServeAnalytics bool

	// Experimentation
	HasABTesting        bool
	HasTestingRoadmap   bool
	HasStatisticalRigor bool

	// Lifecycle
	HasSegmentation       bool
	HasPersonalization    bool
	HasAutomatedCampaigns bool

	// Infrastructure
	HasDataWarehouse bool
	HasCleanData     bool
	HasRealTimeData  bool
}

// AnswerSummary groups one dimension's answers with its average score.
type AnswerSummary struct {
	DimensionID string
	AvgScore    float64
	Tier        scoring.Tier
	Answers     []SummaryAnswer
}

// SummaryAnswer is one answer with the score its option carries.
type SummaryAnswer struct {
	QuestionID string
	OptionID   string
	Score      float64
}

// BuildAnswerSummaries groups raw answers by dimension using the
// observation pack's question metadata. Answers for questions absent
// from the pack are skipped; they only matter for question-specific
// capability checks.
func BuildAnswerSummaries(results Results, answers []scoring.Answer, packs *Packs) []AnswerSummary {
	byDim := make(map[string]*AnswerSummary, len(results.Dimensions))
	order := make([]string, 0, len(results.Dimensions))
	for _, d := range results.Dimensions {
		byDim[d.DimensionID] = &AnswerSummary{
			DimensionID: d.DimensionID,
			AvgScore:    d.Score,
			Tier:        d.Tier,
		}
		order = append(order, d.DimensionID)
	}

	for _, a := range answers {
		q, ok := packs.AnswerObservations[a.QuestionID]
		if !ok {
			continue
		}
		summary, ok := byDim[q.Dimension]
		if !ok {
			continue
		}

		score := 0.0
		if entry, ok := q.Options[a.OptionID]; ok {
			score = entry.Score
		} else if suffix := optionSuffix(a.OptionID); suffix != "" {
			if entry, ok := q.Options[suffix]; ok {
				score = entry.Score
			}
		}

		summary.Answers = append(summary.Answers, SummaryAnswer{
			QuestionID: a.QuestionID,
			OptionID:   a.OptionID,
			Score:      score,
		})
	}

	out := make([]AnswerSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byDim[id])
	}
	return out
}

// ExtractCapabilities maps dimension averages and specific answers to
// capability flags.
func ExtractCapabilities(summaries []AnswerSummary) CapabilityState {
	var caps CapabilityState

	for _, s := range summaries {
		avg := s.AvgScore

		switch s.DimensionID {
		case "tracking":
			caps.HasBasicTracking = avg >= 2
			caps.HasAdvancedTracking = avg >= 3
			caps.HasServerSideTracking = avg >= 4.5
			for _, a := range s.Answers {
				if strings.Contains(a.QuestionID, "tag") && a.Score >= 3 {
					caps.HasTagManagement = true
				}
			}
			caps.HasDocumentedProcesses = avg >= 3

		case "attribution":
			caps.HasAttributionModel = avg >= 2
			caps.HasMultiTouchAttribution = avg >= 3
			caps.HasIncrementalityTesting = avg >= 4

		case "reporting":
			caps.HasDashboards = avg >= 2
			caps.HasAutomatedReporting = avg >= 3
			caps.HasSelfServeAnalytics = avg >= 4

		case "experimentation":
			caps.HasABTesting = avg >= 2
			caps.HasTestingRoadmap = avg >= 3
			caps.HasStatisticalRigor = avg >= 4

		case "lifecycle":
			caps.HasSegmentation = avg >= 2
			caps.HasPersonalization = avg >= 3
			caps.HasAutomatedCampaigns = avg >= 4

		case "infrastructure":
			caps.HasDataWarehouse = avg >= 2
			caps.HasCleanData = avg >= 3
			caps.HasRealTimeData = avg >= 4
		}
	}

	return caps
}

// CopyVariant names which capability state a copy template assumes.
type CopyVariant string

const (
	VariantNoCapability       CopyVariant = "no_capability"
	VariantBasicCapability    CopyVariant = "basic_capability"
	VariantAdvancedCapability CopyVariant = "advanced_capability"
	VariantDefault            CopyVariant = "default"
)

// SelectCopyVariant picks the copy variant matching the user's reported
// capabilities for a dimension.
func SelectCopyVariant(dimensionID string, tier scoring.Tier, caps CapabilityState) CopyVariant {
	switch dimensionID {
	case "tracking":
		if caps.HasServerSideTracking {
			return VariantAdvancedCapability
		}
		if caps.HasAdvancedTracking {
			return VariantBasicCapability
		}
		return VariantNoCapability

	case "attribution":
		if caps.HasIncrementalityTesting {
			return VariantAdvancedCapability
		}
		if caps.HasMultiTouchAttribution || caps.HasAttributionModel {
			return VariantBasicCapability
		}
		return VariantNoCapability

	case "reporting":
		if caps.HasSelfServeAnalytics {
			return VariantAdvancedCapability
		}
		if caps.HasAutomatedReporting || caps.HasDashboards {
			return VariantBasicCapability
		}
		return VariantNoCapability

	case "experimentation":
		if caps.HasStatisticalRigor {
			return VariantAdvancedCapability
		}
		if caps.HasTestingRoadmap || caps.HasABTesting {
			return VariantBasicCapability
		}
		return VariantNoCapability

	case "lifecycle":
		if caps.HasAutomatedCampaigns {
			return VariantAdvancedCapability
		}
		if caps.HasPersonalization || caps.HasSegmentation {
			return VariantBasicCapability
		}
		return VariantNoCapability

	case "infrastructure":
		if caps.HasRealTimeData {
			return VariantAdvancedCapability
		}
		if caps.HasCleanData || caps.HasDataWarehouse {
			return VariantBasicCapability
		}
		return VariantNoCapability

	default:
		return VariantDefault
	}
}

type impactCopy struct {
	Headline string
	Detail   string
}

// ConditionalImpactCopy returns variant-specific "why this matters" copy
// for a dimension/tier, falling back to the pack-authored copy when no
// variant template exists.
func ConditionalImpactCopy(dimensionID string, tier scoring.Tier, variant CopyVariant, fallback impactCopy) impactCopy {
	if variant != VariantDefault {
		if byTier, ok := conditionalImpactTemplates[dimensionID]; ok {
			if byVariant, ok := byTier[tier]; ok {
				if copySel, ok := byVariant[variant]; ok {
					return copySel
				}
			}
		}
	}

	if fallback.Headline == "" && fallback.Detail == "" {
		return impactCopy{
			Headline: "Opportunity for improvement",
			Detail:   "Based on your assessment, there are opportunities to improve in this area.",
		}
	}
	return fallback
}

// ValidateCopyConsistency flags contradictions between what the user
// reported having and what the selected impact copy assumes. The result
// is content-QA warnings only; it never blocks output.
func ValidateCopyConsistency(observations []string, copySel impactCopy, caps CapabilityState, dimensionID string) []string {
	detail := strings.ToLower(copySel.Detail)
	warnings := []string{}

	check := func(id string, contradiction bool) {
		if strings.HasPrefix(id, dimensionID) && contradiction {
			warnings = append(warnings, "copy contradiction detected: "+id)
		}
	}

	check("tracking_no_tracking", caps.HasBasicTracking &&
		(strings.Contains(detail, "without tracking") || strings.Contains(detail, "no tracking")))

	check("attribution_no_attribution", caps.HasAttributionModel &&
		(strings.Contains(detail, "without attribution") || strings.Contains(detail, "no attribution")))

	check("reporting_no_visibility", caps.HasDashboards &&
		strings.Contains(detail, "no visibility"))

	check("experimentation_no_testing", caps.HasABTesting &&
		(strings.Contains(detail, "no testing") || strings.Contains(detail, "aren't testing")))

	return warnings
}

// conditionalImpactTemplates provides alternative "why this matters"
// copy per dimension/tier/variant.
var conditionalImpactTemplates = map[string]map[scoring.Tier]map[CopyVariant]impactCopy{
	"tracking": {
		scoring.TierLow: {
			VariantNoCapability: {
				Headline: "You're missing most of the picture",
				Detail:   "Without comprehensive tracking, 40-70% of customer behavior is invisible. You can see that people visited and some purchased, but you can't see why they converted, where they hesitated, or what drove them to buy.",
			},
			VariantBasicCapability: {
				Headline: "Your tracking has significant gaps",
				Detail:   "While you have basic tracking in place, there are critical blind spots in your customer journey visibility. You're capturing some events but missing the micro-conversions and engagement signals that reveal true intent.",
			},
			VariantAdvancedCapability: {
				Headline: "Good foundation with room to grow",
				Detail:   "You have solid tracking infrastructure, but there are opportunities to capture additional signals that would enable more sophisticated analysis. Focus on edge cases and emerging channels.",
			},
		},
		scoring.TierMedium: {
			VariantNoCapability: {
				Headline: "Critical gaps limit your insights",
				Detail:   "You're tracking the core funnel but likely missing cross-device identity, offline touchpoints, or engagement signals that predict intent. These gaps limit advanced use cases.",
			},
			VariantBasicCapability: {
				Headline: "Specific gaps need attention",
				Detail:   "Your tracking captures most key events, but specific gaps are limiting your ability to build unified customer profiles. Cross-device and server-side tracking would unlock significant value.",
			},
			VariantAdvancedCapability: {
				Headline: "Fine-tune for maximum value",
				Detail:   "Your tracking is mature. The opportunity is ensuring it stays accurate as platforms change, and leveraging the data more fully for advanced analytics and personalization.",
			},
		},
	},
	"attribution": {
		scoring.TierLow: {
			VariantNoCapability: {
				Headline: "You're flying blind on channel contribution",
				Detail:   "Without proper attribution, you're letting platforms grade their own homework. Each ad platform claims credit using favorable methodologies, resulting in over-counting of conversions.",
			},
			VariantBasicCapability: {
				Headline: "Your attribution needs validation",
				Detail:   "You have some attribution in place, but without incrementality testing, you can't be confident the model reflects true channel contribution. Platform-reported metrics may be inflated.",
			},
			VariantAdvancedCapability: {
				Headline: "Refine and maintain your model",
				Detail:   "Your attribution is more sophisticated than most, but continuous calibration is needed as channel mix evolves and customer behavior changes.",
			},
		},
	},
	"reporting": {
		scoring.TierLow: {
			VariantNoCapability: {
				Headline: "Decisions are made on gut feel",
				Detail:   "Without accessible reporting, your team can't make data-driven decisions quickly. Ad-hoc analysis means insights come too late to act on, and different teams may be working from conflicting data.",
			},
			VariantBasicCapability: {
				Headline: "Reporting exists but isn't actionable",
				Detail:   "You have dashboards, but they may not be answering the right questions or reaching the right people. The gap is between having data and having insights that drive action.",
			},
		},
	},
	"experimentation": {
		scoring.TierLow: {
			VariantNoCapability: {
				Headline: "You're optimizing without validation",
				Detail:   "Without A/B testing, every change is a gamble. You might be making improvements, but you also might be hurting conversion without knowing it. Gut-feel optimization plateaus quickly.",
			},
			VariantBasicCapability: {
				Headline: "Testing exists but lacks rigor",
				Detail:   "You're running tests, but without proper statistical methodology and a testing roadmap, results may be unreliable. Ad-hoc testing captures low-hanging fruit but misses systematic optimization.",
			},
		},
	},
	"lifecycle": {
		scoring.TierLow: {
			VariantNoCapability: {
				Headline: "Every customer gets the same experience",
				Detail:   "Without segmentation and personalization, you're leaving significant revenue on the table. Your best customers get the same treatment as first-time visitors, and you can't target based on behavior or value.",
			},
			VariantBasicCapability: {
				Headline: "Segmentation exists but isn't activated",
				Detail:   "You have customer segments defined, but they're not being used to personalize experiences or automate campaigns. The data exists; the activation layer is missing.",
			},
		},
	},
	"infrastructure": {
		scoring.TierLow: {
			VariantNoCapability: {
				Headline: "Your data is scattered and inconsistent",
				Detail:   "Without a unified data layer, you're reconciling numbers from different sources that never match. Analysis requires manual data wrangling, and joining customer data across systems is nearly impossible.",
			},
			VariantBasicCapability: {
				Headline: "Data exists but isn't clean or accessible",
				Detail:   "You have data infrastructure, but quality issues and access barriers limit its utility. Teams may be working from stale or inconsistent data, and getting answers requires technical resources.",
			},
		},
	},
}
