// internal/workers/assessment/score-assessment/models.go
package scoreassessment

import (
	"assessment-workers/internal/models"
	"assessment-workers/internal/scoring"
)

// Input carries the submitted answer set from the process instance.
type Input struct {
	SubmissionID string           `json:"submissionId"`
	Contact      models.Contact   `json:"contact"`
	Answers      []scoring.Answer `json:"answers"`
}

// Output is published back to the process as variables for the
// downstream customization, notification, CRM and analytics tasks.
type Output struct {
	SubmissionID string                    `json:"submissionId"`
	ResultID     string                    `json:"resultId"`
	ResultsToken string                    `json:"resultsToken"`
	Status       string                    `json:"status"`
	ScoredAt     string                    `json:"scoredAt"`
	Result       *scoring.Output           `json:"result"`
	Dimensions   []models.DimensionSummary `json:"dimensions"`
}

const (
	StatusScored = "scored"
	StatusFailed = "failed"
)
