package events

import "time"

type AssessmentSubmittedEvent struct {
	AssessmentID string `json:"assessment_id"`
	SubmittedBy  string `json:"submitted_by,omitempty"`
	JobID        string `json:"job_id"`
}

// RescoreRequestEvent asks the worker to rescore an existing assessment,
// typically after a ruleset or model version bump.
type RescoreRequestEvent struct {
	AssessmentID string `json:"assessment_id"`
	Priority     int    `json:"priority,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type ScoreCompletedEvent struct {
	AssessmentID    string  `json:"assessment_id"`
	FinalScore      float64 `json:"final_score"`
	CalibratedScore float64 `json:"calibrated_score"`
	Confidence      float64 `json:"confidence"`
	RuleSetVersion  string  `json:"ruleset_version"`
}

type JobCompletedEvent struct {
	JobID    string `json:"job_id"`
	Type     string `json:"type"`
	Attempts int    `json:"attempts"`
}

type JobRetriedEvent struct {
	JobID       string    `json:"job_id"`
	Type        string    `json:"type"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	NextRunAt   time.Time `json:"next_run_at"`
	Error       string    `json:"error"`
}

type JobFailedEvent struct {
	JobID    string `json:"job_id"`
	Type     string `json:"type"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

type ReportGeneratedEvent struct {
	AssessmentID string    `json:"assessment_id"`
	Report       string    `json:"report"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// CRMSyncEvent is a fire-and-forget trigger for the external CRM
// integration; delivery beyond the broker is not this service's concern.
type CRMSyncEvent struct {
	AssessmentID    string    `json:"assessment_id"`
	CalibratedScore float64   `json:"calibrated_score"`
	SyncedAt        time.Time `json:"synced_at"`
}
