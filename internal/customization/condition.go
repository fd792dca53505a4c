// internal/customization/condition.go
package customization

import (
	"regexp"
)

// Condition is one node of a dependency-rule condition tree. Exactly one
// of the variants is populated:
//   - Dimension/Operator/Value: compare a dimension score
//   - Question/OptionIn: selected-option membership (full id or suffix)
//   - All: conjunction of children
//   - Any: disjunction of children
type Condition struct {
	Dimension string      `json:"dimension,omitempty"`
	Operator  string      `json:"operator,omitempty"` // lt|lte|gt|gte|eq
	Value     float64     `json:"value,omitempty"`
	Question  string      `json:"question,omitempty"`
	OptionIn  []string    `json:"option_in,omitempty"`
	All       []Condition `json:"all,omitempty"`
	Any       []Condition `json:"any,omitempty"`
}

var optionSuffixPattern = regexp.MustCompile(`(o[1-5])$`)

// optionSuffix extracts the short enumerated token from a full option id,
// e.g. "q_tracking_1_o3" -> "o3".
func optionSuffix(optionID string) string {
	m := optionSuffixPattern.FindStringSubmatch(optionID)
	if m == nil {
		return ""
	}
	return m[1]
}

type conditionContext struct {
	dimScores  map[string]float64
	answersByQ map[string]string
}

// eval walks the condition tree by structural recursion. Unknown
// dimensions or unanswered questions make a leaf false, never an error.
func (c Condition) eval(ctx conditionContext) bool {
	if c.Dimension != "" {
		score, ok := ctx.dimScores[c.Dimension]
		if !ok {
			return false
		}
		switch c.Operator {
		case "lt":
			return score < c.Value
		case "lte":
			return score <= c.Value
		case "gt":
			return score > c.Value
		case "gte":
			return score >= c.Value
		case "eq":
			return score == c.Value
		default:
			return false
		}
	}

	if c.Question != "" {
		picked, ok := ctx.answersByQ[c.Question]
		if !ok {
			return false
		}
		pickedSuffix := optionSuffix(picked)
		for _, candidate := range c.OptionIn {
			if candidate == picked {
				return true
			}
			if pickedSuffix != "" && candidate == pickedSuffix {
				return true
			}
		}
		return false
	}

	if len(c.All) > 0 {
		for _, child := range c.All {
			if !child.eval(ctx) {
				return false
			}
		}
		return true
	}

	if len(c.Any) > 0 {
		for _, child := range c.Any {
			if child.eval(ctx) {
				return true
			}
		}
		return false
	}

	return false
}
