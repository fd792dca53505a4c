// internal/workers/assessment/resolve-customization/models.go
package resolvecustomization

import (
	"assessment-workers/internal/customization"
	"assessment-workers/internal/models"
	"assessment-workers/internal/scoring"
)

// Input consumes the scored-result variables published upstream.
type Input struct {
	SubmissionID string                    `json:"submissionId"`
	ResultID     string                    `json:"resultId"`
	Answers      []scoring.Answer          `json:"answers"`
	Result       *scoring.Output           `json:"result"`
	Dimensions   []models.DimensionSummary `json:"dimensions"`
}

// Output publishes the resolved snapshot back to the process.
type Output struct {
	SubmissionID string                  `json:"submissionId"`
	SnapshotID   string                  `json:"snapshotId"`
	Status       string                  `json:"status"`
	ResolvedAt   string                  `json:"resolvedAt"`
	Snapshot     *customization.Snapshot `json:"snapshot"`
}

const (
	StatusResolved = "resolved"
	StatusFailed   = "failed"
)
