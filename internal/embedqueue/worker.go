package embedqueue

import (
	"context"
	"time"

	"github.com/kdsearch/coderetriever/internal/ai"
	"github.com/kdsearch/coderetriever/pkg/models"
	"github.com/rs/zerolog/log"
)

// JobStore is the store-layer seam the worker depends on for claim/retry
// bookkeeping.
type JobStore interface {
	ClaimJobs(ctx context.Context, workerID string, limit int) ([]models.EmbeddingJob, error)
	CompleteJob(ctx context.Context, id, lastError string) error
	RetryJob(ctx context.Context, id string, attempts int, nextAttempt time.Time, lastError string) error
	BlockJob(ctx context.Context, id string, attempts int, lastError string) error
	SweepStaleLocks(ctx context.Context, staleAfter time.Duration) (int64, error)
	PurgeCompletedJobs(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ChunkFetcher resolves a job's target chunk id to its content.
type ChunkFetcher interface {
	GetChunksByIDs(ctx context.Context, ids []string) ([]models.CodeChunk, error)
}

// EmbeddingWriter persists a generated vector.
type EmbeddingWriter interface {
	UpsertEmbedding(ctx context.Context, e models.Embedding) error
}

// Worker is a cooperative embedding job worker, spec §4.7. Workers are
// identified by a stable string (e.g. "hostname:pid") so that multiple
// processes can claim disjoint batches safely.
type Worker struct {
	Jobs       JobStore
	Chunks     ChunkFetcher
	Embeddings EmbeddingWriter
	Provider   ai.EmbeddingProvider

	WorkerID    string
	BatchSize   int
	MaxAttempts int
	StaleAfter  time.Duration
	PurgeAfter  time.Duration

	// Now is the clock the worker uses for retry scheduling; overridable
	// in tests so backoff windows are deterministic.
	Now func() time.Time
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// RunOnce claims and processes one batch of pending jobs. It returns the
// number of jobs claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	jobs, err := w.Jobs.ClaimJobs(ctx, w.WorkerID, w.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	var pending []models.EmbeddingJob
	var chunks []models.CodeChunk
	for _, job := range jobs {
		found, err := w.Chunks.GetChunksByIDs(ctx, []string{job.TargetID})
		if err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("embedding worker: chunk lookup failed")
			if failErr := w.fail(ctx, job, "chunk_lookup_error"); failErr != nil {
				log.Error().Err(failErr).Str("job_id", job.ID).Msg("embedding worker: failed to record chunk lookup error")
			}
			continue
		}
		if len(found) == 0 {
			if err := w.Jobs.CompleteJob(ctx, job.ID, ErrChunkMissing); err != nil {
				log.Error().Err(err).Str("job_id", job.ID).Msg("embedding worker: failed to mark chunk_missing complete")
			}
			continue
		}
		pending = append(pending, job)
		chunks = append(chunks, found[0])
	}
	if len(pending) == 0 {
		return len(jobs), nil
	}

	result, err := w.Provider.TryGenerateEmbeddings(ctx, chunks)
	if err != nil {
		log.Error().Err(err).Msg("embedding worker: provider call errored")
		for _, job := range pending {
			if failErr := w.fail(ctx, job, "provider_error"); failErr != nil {
				log.Error().Err(failErr).Str("job_id", job.ID).Msg("embedding worker: failed to record provider error")
			}
		}
		return len(jobs), nil
	}

	if !result.Success {
		for _, job := range pending {
			if failErr := w.fail(ctx, job, result.ErrorCode); failErr != nil {
				log.Error().Err(failErr).Str("job_id", job.ID).Msg("embedding worker: failed to record provider failure")
			}
		}
		return len(jobs), nil
	}

	for i, job := range pending {
		var vec []float32
		if i < len(result.Embeddings) {
			vec = result.Embeddings[i]
		}
		e := models.Embedding{
			ID:          job.ID,
			ChunkID:     job.TargetID,
			Repository:  job.Repository,
			Branch:      job.Branch,
			Commit:      job.Commit,
			Vector:      vec,
			Model:       job.Model,
			Dims:        len(vec),
			GeneratedAt: w.now(),
		}
		if err := w.Embeddings.UpsertEmbedding(ctx, e); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("embedding worker: upsert embedding failed")
			if failErr := w.fail(ctx, job, "embedding_write_error"); failErr != nil {
				log.Error().Err(failErr).Str("job_id", job.ID).Msg("embedding worker: failed to record embedding write error")
			}
			continue
		}
		if err := w.Jobs.CompleteJob(ctx, job.ID, ""); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("embedding worker: failed to mark job complete")
		}
	}

	return len(jobs), nil
}

// fail routes a failed attempt to Block (attempts exhausted) or a
// backoff-scheduled Pending retry.
func (w *Worker) fail(ctx context.Context, job models.EmbeddingJob, errorCode string) error {
	if job.Attempts >= w.MaxAttempts {
		return w.Jobs.BlockJob(ctx, job.ID, job.Attempts, ErrMaxAttemptsExceeded)
	}
	next := w.now().Add(backoff(job.Attempts))
	return w.Jobs.RetryJob(ctx, job.ID, job.Attempts, next, errorCode)
}

// backoff implements spec §4.7's exponential schedule, capped at one hour.
func backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	shift := attempts - 1
	if shift > 10 {
		shift = 10
	}
	d := 30 * time.Second * time.Duration(uint64(1)<<uint(shift))
	if d > time.Hour {
		d = time.Hour
	}
	return d
}

// Sweep reclaims stale locks and purges old completed jobs, spec §4.7's
// periodic maintenance passes.
func (w *Worker) Sweep(ctx context.Context) error {
	n, err := w.Jobs.SweepStaleLocks(ctx, w.StaleAfter)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("embedding worker: reclaimed stale job locks")
	}
	n, err = w.Jobs.PurgeCompletedJobs(ctx, w.PurgeAfter)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("embedding worker: purged completed jobs")
	}
	return nil
}

// Run loops RunOnce and a periodic Sweep until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, pollInterval time.Duration) error {
	sweepEvery := w.StaleAfter
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	lastSweep := w.now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := w.RunOnce(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("embedding worker: run once failed")
		}

		if w.now().Sub(lastSweep) >= sweepEvery {
			if err := w.Sweep(ctx); err != nil {
				log.Warn().Err(err).Msg("embedding worker: sweep failed")
			}
			lastSweep = w.now()
		}

		if n == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollInterval):
			}
		}
	}
}
