package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/assessment"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/scoring"
)

// MemoryStore is the in-process Store for single-process deployments and
// tests. All operations take the one mutex, which gives claiming the same
// exactly-one-claimer guarantee the Postgres store gets from row locks.
type MemoryStore struct {
	mu          sync.Mutex
	assessments map[uuid.UUID]*assessment.Input
	results     map[uuid.UUID][]*scoring.BlendedScoreResult
	jobs        map[uuid.UUID]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: make(map[uuid.UUID]*assessment.Input),
		results:     make(map[uuid.UUID][]*scoring.BlendedScoreResult),
		jobs:        make(map[uuid.UUID]*Job),
	}
}

func (s *MemoryStore) CreateAssessment(_ context.Context, in *assessment.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = uuid.New()
	in.CreatedAt = time.Now().UTC()
	copied := *in
	s.assessments[in.ID] = &copied
	return nil
}

func (s *MemoryStore) GetAssessment(_ context.Context, id uuid.UUID) (*assessment.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.assessments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *in
	return &copied, nil
}

func (s *MemoryStore) SaveScoreResult(_ context.Context, r *scoring.BlendedScoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.results[r.AssessmentID] = append(s.results[r.AssessmentID], &copied)
	return nil
}

func (s *MemoryStore) GetLatestScoreResult(_ context.Context, assessmentID uuid.UUID) (*scoring.BlendedScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := s.results[assessmentID]
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	copied := *results[len(results)-1]
	return &copied, nil
}

func (s *MemoryStore) EnqueueJob(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	job.ID = uuid.New()
	job.Status = JobPending
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = now
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, filter JobFilter) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []*Job
	for _, j := range s.jobs {
		if filter.Status != nil && j.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && j.Type != *filter.Type {
			continue
		}
		copied := *j
		jobs = append(jobs, &copied)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.After(jobs[k].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return nil, nil
		}
		jobs = jobs[filter.Offset:]
	}
	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

func (s *MemoryStore) ClaimDueJobs(_ context.Context, now time.Time, limit int) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Job
	for _, j := range s.jobs {
		if j.Status == JobPending && !j.ScheduledAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool {
		if due[i].Priority != due[k].Priority {
			return due[i].Priority > due[k].Priority
		}
		return due[i].CreatedAt.Before(due[k].CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*Job, 0, len(due))
	started := now
	for _, j := range due {
		j.Status = JobProcessing
		j.Attempts++
		j.StartedAt = &started
		j.UpdatedAt = now
		copied := *j
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (s *MemoryStore) CompleteJob(_ context.Context, id uuid.UUID) error {
	return s.transition(id, func(j *Job) error {
		now := time.Now().UTC()
		j.Status = JobCompleted
		j.CompletedAt = &now
		j.ErrorMessage = ""
		return nil
	})
}

func (s *MemoryStore) RetryJob(_ context.Context, id uuid.UUID, errMsg string, scheduledAt time.Time) error {
	return s.transition(id, func(j *Job) error {
		j.Status = JobPending
		j.ScheduledAt = scheduledAt
		j.ErrorMessage = errMsg
		j.StartedAt = nil
		return nil
	})
}

func (s *MemoryStore) FailJob(_ context.Context, id uuid.UUID, errMsg string) error {
	return s.transition(id, func(j *Job) error {
		now := time.Now().UTC()
		j.Status = JobFailed
		j.CompletedAt = &now
		j.ErrorMessage = errMsg
		return nil
	})
}

func (s *MemoryStore) transition(id uuid.UUID, apply func(*Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status != JobProcessing {
		return fmt.Errorf("job %s not in processing state", id)
	}
	if err := apply(j); err != nil {
		return err
	}
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) RequeueStuckJobs(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.Status == JobProcessing && j.StartedAt != nil && j.StartedAt.Before(cutoff) {
			j.Status = JobPending
			j.StartedAt = nil
			j.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) QueueStats(_ context.Context) (*QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &QueueStats{}
	var totalRunMs float64
	completedRuns := 0
	for _, j := range s.jobs {
		switch j.Status {
		case JobPending:
			stats.Pending++
		case JobProcessing:
			stats.Processing++
		case JobCompleted:
			stats.Completed++
			if j.StartedAt != nil && j.CompletedAt != nil {
				totalRunMs += float64(j.CompletedAt.Sub(*j.StartedAt).Milliseconds())
				completedRuns++
			}
		case JobFailed:
			stats.Failed++
		}
	}
	if completedRuns > 0 {
		stats.AvgRunMs = totalRunMs / float64(completedRuns)
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }
