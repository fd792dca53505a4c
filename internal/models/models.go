// internal/models/models.go
package models

import (
	"assessment-workers/internal/scoring"
)

// Contact identifies the person who took the assessment.
type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Company   string `json:"company,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// DimensionSummary is the per-dimension slice of a scored result that
// flows between workers as process variables.
type DimensionSummary struct {
	DimensionID string       `json:"dimension_id"`
	Order       int          `json:"order"`
	Name        string       `json:"name"`
	Score       float64      `json:"score"`
	Tier        scoring.Tier `json:"tier"`
}

// ResultDocument is the flattened result record persisted to Postgres
// and indexed into Elasticsearch for funnel analytics.
type ResultDocument struct {
	SubmissionID       string             `json:"submission_id"`
	Email              string             `json:"email,omitempty"`
	Company            string             `json:"company,omitempty"`
	OverallScore       float64            `json:"overall_score"`
	OverallScoreCapped float64            `json:"overall_score_capped"`
	CapApplied         bool               `json:"cap_applied"`
	Level              int                `json:"level"`
	LevelKey           string             `json:"level_key"`
	PrimaryGap         string             `json:"primary_gap"`
	CriticalGapCount   int                `json:"critical_gap_count"`
	CtaIntensity       scoring.Intensity  `json:"cta_intensity"`
	ReasonCodes        []string           `json:"reason_codes"`
	DimensionScores    map[string]float64 `json:"dimension_scores"`
	ScoredAt           string             `json:"scored_at"`
}
