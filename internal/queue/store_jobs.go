package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewJob inserts a pending render job.
func (s *Store) NewJob(ctx context.Context, sourceVideo, outputPath, edlJSON, filterComplex string) (*Job, error) {
	sourceVideo = strings.TrimSpace(sourceVideo)
	outputPath = strings.TrimSpace(outputPath)
	if sourceVideo == "" {
		return nil, errors.New("source video is required")
	}
	if outputPath == "" {
		return nil, errors.New("output path is required")
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(timeLayout)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO render_jobs (
            id, source_video, output_path, status, edl_json, filter_complex,
            progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		sourceVideo,
		outputPath,
		StatusPending,
		nullableString(edlJSON),
		nullableString(filterComplex),
		0.0,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM render_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByPrefix resolves a unique job from an ID prefix, as typed on the
// command line.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (*Job, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM render_jobs WHERE id LIKE ? ORDER BY created_at LIMIT 2`,
		strings.ReplaceAll(prefix, "%", "")+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	defer rows.Close()

	var matches []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("job prefix %q is ambiguous", prefix)
	}
}

// List returns jobs filtered by status, oldest first. No statuses means all.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM render_jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs
         SET source_video = ?, output_path = ?, status = ?, edl_json = ?, filter_complex = ?,
             progress_percent = ?, progress_message = ?, error_message = ?,
             updated_at = ?, started_at = ?, finished_at = ?
         WHERE id = ?`,
		job.SourceVideo,
		job.OutputPath,
		job.Status,
		nullableString(job.EDLJSON),
		nullableString(job.FilterComplex),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(timeLayout),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, sql.ErrNoRows)
	}
	return nil
}

// UpdateProgress persists only the progress fields, leaving status untouched.
func (s *Store) UpdateProgress(ctx context.Context, id string, percent float64, message string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs SET progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		percent,
		nullableString(message),
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// ClaimNext moves the oldest pending job to running and returns it. It
// returns nil, nil when nothing is pending.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	var claimed *Job
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM render_jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`,
			StatusPending,
		)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			claimed = nil
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		job.SetRunning(now)
		job.UpdatedAt = now
		res, err := tx.ExecContext(ctx,
			`UPDATE render_jobs
             SET status = ?, progress_percent = ?, progress_message = ?, error_message = NULL,
                 started_at = ?, finished_at = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			job.Status,
			job.ProgressPercent,
			job.ProgressMessage,
			nullableTime(job.StartedAt),
			now.Format(timeLayout),
			job.ID,
			StatusPending,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			claimed = nil
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return claimed, nil
}

// MarkRunning moves a specific pending job to running. It reports false when
// the job was no longer pending, for example because a worker claimed it.
func (s *Store) MarkRunning(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs
         SET status = ?, progress_percent = 0, progress_message = ?, error_message = NULL,
             started_at = ?, finished_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusRunning,
		"Rendering",
		now,
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark job running: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Remove deletes a job. Running jobs cannot be removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM render_jobs WHERE id = ? AND status != ?`, id, StatusRunning)
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetRunning fails jobs left running by a process that exited mid-render.
func (s *Store) ResetRunning(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs
         SET status = ?, error_message = ?, progress_message = ?, finished_at = ?, updated_at = ?
         WHERE status = ?`,
		StatusFailed,
		InterruptedReason,
		InterruptedReason,
		now,
		now,
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset running jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed or canceled jobs back to pending. With no ids,
// every failed or canceled job is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	query := `UPDATE render_jobs
         SET status = ?, error_message = NULL, progress_percent = 0, progress_message = NULL,
             started_at = NULL, finished_at = NULL, updated_at = ?
         WHERE status IN (?, ?)`
	args := []any{StatusPending, time.Now().UTC().Format(timeLayout), StatusFailed, StatusCanceled}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry jobs: %w", err)
	}
	return res.RowsAffected()
}
