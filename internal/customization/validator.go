// internal/customization/validator.go
package customization

import (
	"fmt"
	"regexp"

	"assessment-workers/internal/scoring"
)

// ValidationResult collects hard errors and soft warnings for one pack.
// Errors are broken references; warnings are coverage gaps that only
// affect content-authoring hygiene, never runtime behavior.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newResult() *ValidationResult {
	return &ValidationResult{Errors: []string{}, Warnings: []string{}}
}

func (r *ValidationResult) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) finish() *ValidationResult {
	r.Valid = len(r.Errors) == 0
	return r
}

var shortOptionPattern = regexp.MustCompile(`^o[1-5]$`)

// ValidatePacks runs the full referential-integrity pass of all five
// content packs against canonical config. Intended for CI and the
// pack-validator tool, not the request path.
func ValidatePacks(cfg *scoring.Config, packs *Packs) map[string]*ValidationResult {
	return map[string]*ValidationResult{
		FileAnswerObservations:  ValidateAnswerObservations(cfg, packs.AnswerObservations),
		FileDependencyRules:     ValidateDependencyRules(cfg, packs.DependencyRules),
		FileImpactEstimates:     validateDimensionTierPack(cfg, dimensionKeys(packs.ImpactEstimates), "impact estimates"),
		FileLevelBenchmarks:     validateDimensionTierPack(cfg, dimensionKeys(packs.LevelBenchmarks), "benchmarks"),
		FileToolRecommendations: validateDimensionTierPack(cfg, dimensionKeys(packs.ToolRecommendations), "tool recommendations"),
	}
}

// AllValid reports whether every pack passed with zero errors.
func AllValid(results map[string]*ValidationResult) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}

// ValidateAnswerObservations checks every referenced question, dimension,
// and option against canonical config, and warns on missing coverage.
func ValidateAnswerObservations(cfg *scoring.Config, obs map[string]QuestionObservations) *ValidationResult {
	r := newResult()

	knownDims := make(map[string]bool, len(cfg.Dimensions))
	for _, d := range cfg.Dimensions {
		knownDims[d.ID] = true
	}

	for qid, q := range obs {
		canonical, ok := cfg.QuestionsByID[qid]
		if !ok {
			r.errorf("unknown question_id: %s", qid)
			continue
		}

		if q.Dimension != canonical.DimensionID {
			r.errorf("question %s: dimension %q does not match canonical %q", qid, q.Dimension, canonical.DimensionID)
		}

		for oid := range q.Options {
			if shortOptionPattern.MatchString(oid) {
				// Short suffix keys cover every option position by construction.
				continue
			}
			if _, ok := canonical.OptionScores[oid]; !ok {
				r.errorf("question %s: unknown option_id %q", qid, oid)
			}
		}
	}

	for qid := range cfg.QuestionsByID {
		if _, ok := obs[qid]; !ok {
			r.warnf("missing observations for question_id: %s", qid)
		}
	}

	return r.finish()
}

// ValidateDependencyRules checks every dimension, question, and option
// reference inside rule condition trees.
func ValidateDependencyRules(cfg *scoring.Config, rules []DependencyRule) *ValidationResult {
	r := newResult()

	knownDims := make(map[string]bool, len(cfg.Dimensions))
	for _, d := range cfg.Dimensions {
		knownDims[d.ID] = true
	}

	for _, rule := range rules {
		checkCondition(cfg, knownDims, rule.ID, rule.Condition, r)
		for _, dim := range rule.Blocks {
			if !knownDims[dim] {
				r.errorf("rule %q: unknown dimension in blocks %q", rule.ID, dim)
			}
		}
	}

	return r.finish()
}

func checkCondition(cfg *scoring.Config, knownDims map[string]bool, ruleID string, cond Condition, r *ValidationResult) {
	if cond.Dimension != "" && !knownDims[cond.Dimension] {
		r.errorf("rule %q: unknown dimension %q", ruleID, cond.Dimension)
	}
	if cond.Question != "" {
		canonical, ok := cfg.QuestionsByID[cond.Question]
		if !ok {
			r.errorf("rule %q: unknown question %q", ruleID, cond.Question)
		} else {
			for _, oid := range cond.OptionIn {
				if shortOptionPattern.MatchString(oid) {
					continue
				}
				if _, ok := canonical.OptionScores[oid]; !ok {
					r.errorf("rule %q: option %q does not belong to question %q", ruleID, oid, cond.Question)
				}
			}
		}
	}
	for _, child := range cond.All {
		checkCondition(cfg, knownDims, ruleID, child, r)
	}
	for _, child := range cond.Any {
		checkCondition(cfg, knownDims, ruleID, child, r)
	}
}

func dimensionKeys[V any](pack map[string]map[string]V) []string {
	keys := make([]string, 0, len(pack))
	for k := range pack {
		keys = append(keys, k)
	}
	return keys
}

func validateDimensionTierPack(cfg *scoring.Config, packDims []string, label string) *ValidationResult {
	r := newResult()

	knownDims := make(map[string]bool, len(cfg.Dimensions))
	for _, d := range cfg.Dimensions {
		knownDims[d.ID] = true
	}

	present := make(map[string]bool, len(packDims))
	for _, dim := range packDims {
		present[dim] = true
		if !knownDims[dim] {
			r.errorf("unknown dimension_id: %s", dim)
		}
	}

	for _, d := range cfg.Dimensions {
		if !present[d.ID] {
			r.warnf("missing %s for dimension_id: %s", label, d.ID)
		}
	}

	return r.finish()
}
