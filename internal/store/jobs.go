package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// EnqueueJob upserts one embedding job on its (repository, branch,
// targetKind, targetID, model) unique key. Re-enqueueing an
// existing job resets it to Pending and clears its attempt history,
// matching the "re-chunk supersedes a stale job" semantics of spec §4.7.
func (s *Store) EnqueueJob(ctx context.Context, job models.EmbeddingJob) error {
	const q = `
		INSERT INTO embedding_jobs (
			id, repository, branch, commit, target_kind, target_id, model, dims,
			status, attempts, next_attempt_at, last_error, locked_at, locked_by,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,NULL,'',NULL,'',now(),now())
		ON CONFLICT (repository, branch, target_kind, target_id, model) DO UPDATE SET
			status          = EXCLUDED.status,
			dims            = EXCLUDED.dims,
			attempts        = 0,
			next_attempt_at = NULL,
			last_error      = '',
			locked_at       = NULL,
			locked_by       = '',
			updated_at      = now()`
	_, err := s.pool.Exec(ctx, q,
		job.ID, job.Repository, job.Branch, job.Commit, job.TargetKind, job.TargetID, job.Model, job.Dims,
		string(job.Status),
	)
	return err
}

// ClaimJobs locks up to limit Pending-or-ready-to-retry jobs using
// SELECT ... FOR UPDATE SKIP LOCKED so multiple worker processes never
// double-claim the same job, then marks them Processing under the given
// worker identity.
func (s *Store) ClaimJobs(ctx context.Context, workerID string, limit int) ([]models.EmbeddingJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const sel = `
		SELECT id, repository, branch, commit, target_kind, target_id, model, dims,
		       status, attempts, next_attempt_at, last_error, locked_at, locked_by,
		       created_at, updated_at
		FROM embedding_jobs
		WHERE status = 'Pending' AND (next_attempt_at IS NULL OR next_attempt_at <= now())
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`
	rows, err := tx.Query(ctx, sel, limit)
	if err != nil {
		return nil, err
	}
	jobs, err := scanJobs(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
		jobs[i].Status = models.JobProcessing
		jobs[i].LockedBy = workerID
		jobs[i].Attempts = j.Attempts + 1
	}

	const upd = `
		UPDATE embedding_jobs
		SET status = 'Processing', locked_at = now(), locked_by = $2, attempts = attempts + 1, updated_at = now()
		WHERE id = ANY($1)`
	if _, err := tx.Exec(ctx, upd, ids, workerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return jobs, nil
}

// CompleteJob marks a job Completed. lastError is empty on success, or
// "chunk_missing" for the terminal missing-target case (spec §4.7's
// state machine treats both as Completed, distinguished only by lastError).
func (s *Store) CompleteJob(ctx context.Context, id, lastError string) error {
	const q = `
		UPDATE embedding_jobs
		SET status = 'Completed', locked_at = NULL, locked_by = '', last_error = $2, updated_at = now()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, lastError)
	return err
}

// RetryJob schedules a transient failure for retry at nextAttempt,
// recording the attempt count and error, and releasing the lock.
func (s *Store) RetryJob(ctx context.Context, id string, attempts int, nextAttempt time.Time, lastError string) error {
	const q = `
		UPDATE embedding_jobs
		SET status = 'Pending', attempts = $2, next_attempt_at = $3, last_error = $4,
		    locked_at = NULL, locked_by = '', updated_at = now()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, attempts, nextAttempt, lastError)
	return err
}

// BlockJob marks a job Blocked after exhausting its retry budget, or
// immediately for a non-transient failure.
func (s *Store) BlockJob(ctx context.Context, id string, attempts int, lastError string) error {
	const q = `
		UPDATE embedding_jobs
		SET status = 'Blocked', attempts = $2, last_error = $3,
		    next_attempt_at = NULL, locked_at = NULL, locked_by = '', updated_at = now()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, attempts, lastError)
	return err
}

// SweepStaleLocks resets jobs whose lock has outlived staleAfter back to
// Pending, recovering from a worker that crashed mid-batch.
func (s *Store) SweepStaleLocks(ctx context.Context, staleAfter time.Duration) (int64, error) {
	const q = `
		UPDATE embedding_jobs
		SET status = 'Pending', locked_at = NULL, locked_by = '', updated_at = now()
		WHERE status = 'Processing' AND locked_at IS NOT NULL AND locked_at < now() - $1::interval`
	tag, err := s.pool.Exec(ctx, q, staleAfter.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeCompletedJobs deletes Completed jobs older than olderThan,
// bounding the queue table's long-run growth.
func (s *Store) PurgeCompletedJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	const q = `
		DELETE FROM embedding_jobs
		WHERE status = 'Completed' AND updated_at < now() - $1::interval`
	tag, err := s.pool.Exec(ctx, q, olderThan.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJobs(rows pgx.Rows) ([]models.EmbeddingJob, error) {
	var out []models.EmbeddingJob
	for rows.Next() {
		var j models.EmbeddingJob
		var status string
		if err := rows.Scan(
			&j.ID, &j.Repository, &j.Branch, &j.Commit, &j.TargetKind, &j.TargetID, &j.Model, &j.Dims,
			&status, &j.Attempts, &j.NextAttemptAt, &j.LastError, &j.LockedAt, &j.LockedBy,
			&j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, err
		}
		j.Status = models.JobStatus(status)
		out = append(out, j)
	}
	return out, rows.Err()
}
