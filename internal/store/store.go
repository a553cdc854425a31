package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/scoring"
)

var ErrNotFound = errors.New("not found")

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

type JobType string

const (
	JobRescore          JobType = "rescore"
	JobReportGeneration JobType = "report_generation"
	JobDataSync         JobType = "data_sync"
)

// Job is one unit of retryable background work. Lifecycle:
// pending → processing → completed, or back to pending while attempts
// remain, or failed once they are exhausted. Completed and failed are
// terminal.
type Job struct {
	ID           uuid.UUID              `json:"id"`
	Type         JobType                `json:"type"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Status       JobStatus              `json:"status"`
	Priority     int                    `json:"priority"`
	Attempts     int                    `json:"attempts"`
	MaxAttempts  int                    `json:"max_attempts"`
	ScheduledAt  time.Time              `json:"scheduled_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type JobFilter struct {
	Status *JobStatus
	Type   *JobType
	Limit  int
	Offset int
}

type QueueStats struct {
	Pending    int     `json:"pending"`
	Processing int     `json:"processing"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	AvgRunMs   float64 `json:"avg_run_ms"`
}

// Store is the persistence boundary the core requires: assessments, score
// results, and the job table's enqueue/claim/update operations.
type Store interface {
	CreateAssessment(ctx context.Context, in *assessment.Input) error
	GetAssessment(ctx context.Context, id uuid.UUID) (*assessment.Input, error)

	SaveScoreResult(ctx context.Context, r *scoring.BlendedScoreResult) error
	// GetLatestScoreResult returns the newest result for an assessment;
	// results are append-only and superseded, never overwritten.
	GetLatestScoreResult(ctx context.Context, assessmentID uuid.UUID) (*scoring.BlendedScoreResult, error)

	EnqueueJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)

	// ClaimDueJobs atomically claims up to limit pending jobs with
	// scheduled_at <= now, ordered by priority desc then creation time asc.
	// Under concurrent callers each job is claimed exactly once. Claiming
	// sets status=processing, increments attempts, and records started_at.
	ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	CompleteJob(ctx context.Context, id uuid.UUID) error
	// RetryJob reverts a processing job to pending with a new scheduled_at.
	RetryJob(ctx context.Context, id uuid.UUID, errMsg string, scheduledAt time.Time) error
	// FailJob marks a job terminally failed.
	FailJob(ctx context.Context, id uuid.UUID, errMsg string) error

	// RequeueStuckJobs reverts jobs stuck in processing since before the
	// cutoff back to pending. This is the explicit reconciliation policy
	// behind at-least-once delivery: a worker crash after claim delays the
	// job, it never loses it.
	RequeueStuckJobs(ctx context.Context, cutoff time.Time) (int, error)

	QueueStats(ctx context.Context) (*QueueStats, error)

	Close() error
}
