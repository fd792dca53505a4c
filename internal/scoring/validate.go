// internal/scoring/validate.go
package scoring

import (
	"fmt"

	apperrors "assessment-workers/internal/common/errors"
)

// ValidateAnswers checks a submitted answer set against the config:
// exactly one answer per known question, no duplicates, no unknown
// identifiers, every option belonging to its question. Violations fail
// with INVALID_INPUT naming the offender; they are caller defects and
// must never be retried.
func ValidateAnswers(input Input, cfg *Config) error {
	if len(input.Answers) != TotalQuestions {
		return apperrors.NewInvalidInputError(fmt.Sprintf("expected exactly %d answers, got %d", TotalQuestions, len(input.Answers)))
	}

	seen := make(map[string]bool, len(input.Answers))
	for _, a := range input.Answers {
		if a.QuestionID == "" || a.OptionID == "" {
			return apperrors.NewInvalidInputError("answer with empty question_id or option_id")
		}
		if seen[a.QuestionID] {
			return apperrors.NewInvalidInputError(fmt.Sprintf("duplicate question_id: %s", a.QuestionID))
		}
		seen[a.QuestionID] = true

		q, ok := cfg.QuestionsByID[a.QuestionID]
		if !ok {
			return apperrors.NewInvalidInputError(fmt.Sprintf("unknown question_id: %s", a.QuestionID))
		}

		score, ok := q.OptionScores[a.OptionID]
		if !ok {
			return apperrors.NewInvalidInputError(fmt.Sprintf("option %s does not belong to question %s", a.OptionID, a.QuestionID))
		}
		if score < MinOptionScore || score > MaxOptionScore {
			return apperrors.NewInvalidInputError(fmt.Sprintf("invalid score for option %s", a.OptionID))
		}
	}

	// Completeness: every question id the config knows must be answered.
	for qid := range cfg.QuestionsByID {
		if !seen[qid] {
			return apperrors.NewInvalidInputError(fmt.Sprintf("missing answer for question_id: %s", qid))
		}
	}

	return nil
}
