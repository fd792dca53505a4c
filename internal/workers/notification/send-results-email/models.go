// internal/workers/notification/send-results-email/models.go
package sendresultsemail

import (
	"assessment-workers/internal/models"
	"assessment-workers/internal/scoring"
)

// Input consumes the scored-result variables published upstream.
type Input struct {
	SubmissionID string          `json:"submissionId"`
	ResultsToken string          `json:"resultsToken"`
	Contact      models.Contact  `json:"contact"`
	Result       *scoring.Output `json:"result"`
}

// Output reports delivery status back to the process.
type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"`
	EmailSent      bool   `json:"emailSent"`
	SMSSent        bool   `json:"smsSent"`
	SentAt         string `json:"sentAt"`
}

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
