package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lotreel/internal/services"
)

// InsertJob records a new queued job. The partial unique index on active jobs
// enforces the one-active-job-per-listing invariant; a violation surfaces as
// a conflict error.
func (s *Store) InsertJob(ctx context.Context, job *Job) error {
	return insertJob(ctx, s.db, job)
}

// InsertJob records a new queued job within the transaction.
func (t *Tx) InsertJob(ctx context.Context, job *Job) error {
	return insertJob(ctx, t.tx, job)
}

func insertJob(ctx context.Context, q dbtx, job *Job) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	if job.Status == "" {
		job.Status = JobQueued
	}

	_, err := q.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, listing_id, stage_type, status, progress,
            error_kind, error_message, created_at, started_at, completed_at,
            last_heartbeat
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.ListingID,
		string(job.StageType),
		string(job.Status),
		job.Progress,
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		now.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		nullableTime(job.LastHeartbeat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return services.Wrap(services.ErrConflict, string(job.StageType), "insert job",
				fmt.Sprintf("listing %d already has an active job", job.ListingID), err)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches one job by identifier.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	return getJob(ctx, s.db, id)
}

// GetJob fetches one job by identifier within the transaction.
func (t *Tx) GetJob(ctx context.Context, id string) (*Job, error) {
	return getJob(ctx, t.tx, id)
}

func getJob(ctx context.Context, q dbtx, id string) (*Job, error) {
	row := q.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "", "get job",
				fmt.Sprintf("job %s not found", id), err)
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ActiveJobForListing returns the queued or processing job currently holding
// the listing's exclusivity slot, or nil when the listing is idle.
func (s *Store) ActiveJobForListing(ctx context.Context, listingID int64) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE listing_id = ? AND status IN ('queued', 'processing')",
		listingID,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("active job for listing %d: %w", listingID, err)
	}
	return job, nil
}

// CountActiveJobs returns how many jobs are currently queued or processing.
func (s *Store) CountActiveJobs(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE status IN ('queued', 'processing')")
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

// ListJobs returns jobs for one listing when listingID is positive, otherwise
// all jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, listingID int64) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs"
	args := []any{}
	if listingID > 0 {
		query += " WHERE listing_id = ?"
		args = append(args, listingID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// MarkJobProcessing moves a queued job into processing and stamps its start
// time.
func (s *Store) MarkJobProcessing(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		"UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?",
		string(JobProcessing),
		now.Format(time.RFC3339Nano),
		id,
		string(JobQueued),
	)
	if err != nil {
		return fmt.Errorf("mark job %s processing: %w", id, err)
	}
	return nil
}

// UpdateJobHeartbeat stamps an active job as alive. Terminal rows are left
// alone.
func (s *Store) UpdateJobHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		"UPDATE jobs SET last_heartbeat = ? WHERE id = ? AND status IN ('queued', 'processing')",
		now.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update job %s heartbeat: %w", id, err)
	}
	return nil
}

// UpdateJobProgress records a fractional completion estimate for a running
// job.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.db.ExecContext(ctx, "UPDATE jobs SET progress = ? WHERE id = ?", progress, id)
	if err != nil {
		return fmt.Errorf("update job %s progress: %w", id, err)
	}
	return nil
}

// CompleteJob marks a job as completed. Terminal rows are immutable
// afterwards because no writer targets completed or failed statuses.
func (s *Store) CompleteJob(ctx context.Context, id string) error {
	return finishJob(ctx, s.db, id, JobCompleted, "", "")
}

// CompleteJob marks a job as completed within the transaction.
func (t *Tx) CompleteJob(ctx context.Context, id string) error {
	return finishJob(ctx, t.tx, id, JobCompleted, "", "")
}

// FailJob marks a job as failed with an error classification and message.
func (s *Store) FailJob(ctx context.Context, id, errorKind, errorMessage string) error {
	return finishJob(ctx, s.db, id, JobFailed, errorKind, errorMessage)
}

// FailJob marks a job as failed within the transaction.
func (t *Tx) FailJob(ctx context.Context, id, errorKind, errorMessage string) error {
	return finishJob(ctx, t.tx, id, JobFailed, errorKind, errorMessage)
}

func finishJob(ctx context.Context, q dbtx, id string, status JobStatus, errorKind, errorMessage string) error {
	now := time.Now().UTC()
	// Failed jobs keep their last reported progress.
	progressExpr := "progress"
	if status == JobCompleted {
		progressExpr = "100.0"
	}

	res, err := q.ExecContext(
		ctx,
		`UPDATE jobs SET
            status = ?, progress = `+progressExpr+`, error_kind = ?, error_message = ?, completed_at = ?
        WHERE id = ? AND status IN ('queued', 'processing')`,
		string(status),
		nullableString(errorKind),
		nullableString(errorMessage),
		now.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrInvalidTransition, "", "finish job",
			fmt.Sprintf("job %s is not active", id), nil)
	}
	return nil
}
