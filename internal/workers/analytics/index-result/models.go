// internal/workers/analytics/index-result/models.go
package indexresult

import (
	"assessment-workers/internal/models"
	"assessment-workers/internal/scoring"
)

// Input consumes the scored-result variables published upstream.
type Input struct {
	SubmissionID string          `json:"submissionId"`
	ResultID     string          `json:"resultId"`
	ScoredAt     string          `json:"scoredAt"`
	Contact      models.Contact  `json:"contact"`
	Result       *scoring.Output `json:"result"`
}

// Output reports the indexing outcome back to the process.
type Output struct {
	SubmissionID string `json:"submissionId"`
	DocumentID   string `json:"documentId"`
	Index        string `json:"index"`
	Status       string `json:"status"`
	IndexedAt    string `json:"indexedAt"`
}

const (
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
)
