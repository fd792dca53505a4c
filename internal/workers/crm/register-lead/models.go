// internal/workers/crm/register-lead/models.go
package registerlead

import (
	"assessment-workers/internal/models"
	"assessment-workers/internal/scoring"
)

// Input consumes the scored-result variables published upstream.
type Input struct {
	SubmissionID string          `json:"submissionId"`
	ResultID     string          `json:"resultId"`
	Contact      models.Contact  `json:"contact"`
	Result       *scoring.Output `json:"result"`
}

// Output reports the CRM write back to the process.
type Output struct {
	SubmissionID string `json:"submissionId"`
	LeadID       string `json:"leadId"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registeredAt"`
}

const (
	StatusCreated = "created"
	StatusUpdated = "updated"
	StatusSkipped = "skipped"
)
