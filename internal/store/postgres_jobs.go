package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, type, payload, status, priority,
	attempts, max_attempts,
	scheduled_at, started_at, completed_at,
	error_message, created_at, updated_at`

func (s *PostgresStore) EnqueueJob(ctx context.Context, job *Job) error {
	payload, _ := json.Marshal(job.Payload)
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = time.Now().UTC()
	}
	job.Status = JobPending
	return s.pool.QueryRow(ctx, `
		INSERT INTO jobs (type, payload, status, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		job.Type, payload, job.Status, job.Priority, job.MaxAttempts, job.ScheduledAt,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return job, err
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.Type != nil {
		n++
		query += fmt.Sprintf(" AND type = $%d", n)
		args = append(args, string(*filter.Type))
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ClaimDueJobs uses FOR UPDATE SKIP LOCKED so concurrent workers never claim
// the same job twice: the row lock makes claim-and-update atomic per job.
func (s *PostgresStore) ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]*Job, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE jobs SET
			status = 'processing',
			attempts = attempts + 1,
			started_at = $1,
			updated_at = $1
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = 'pending' AND scheduled_at <= $1
			ORDER BY priority DESC, created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = 'completed', completed_at = now(), updated_at = now(),
			error_message = NULL
		WHERE id = $1 AND status = 'processing'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not in processing state", id)
	}
	return nil
}

func (s *PostgresStore) RetryJob(ctx context.Context, id uuid.UUID, errMsg string, scheduledAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = 'pending', scheduled_at = $2, error_message = $3,
			started_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'processing'`, id, scheduledAt, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not in processing state", id)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = 'failed', completed_at = now(), error_message = $2, updated_at = now()
		WHERE id = $1 AND status = 'processing'`, id, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not in processing state", id)
	}
	return nil
}

func (s *PostgresStore) RequeueStuckJobs(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = 'pending', started_at = NULL, updated_at = now()
		WHERE status = 'processing' AND started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) QueueStats(ctx context.Context) (*QueueStats, error) {
	stats := &QueueStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at)) * 1000) FILTER (WHERE status = 'completed' AND completed_at IS NOT NULL AND started_at IS NOT NULL), 0)
		FROM jobs`,
	).Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed, &stats.AvgRunMs)
	return stats, err
}

func scanJob(row pgx.Row) (*Job, error) {
	j := &Job{}
	var payload []byte
	var errMsg sql.NullString
	if err := row.Scan(
		&j.ID, &j.Type, &payload, &j.Status, &j.Priority,
		&j.Attempts, &j.MaxAttempts,
		&j.ScheduledAt, &j.StartedAt, &j.CompletedAt,
		&errMsg, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		j.ErrorMessage = errMsg.String
	}
	if payload != nil {
		_ = json.Unmarshal(payload, &j.Payload)
	}
	return j, nil
}

func scanJobs(rows pgx.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
