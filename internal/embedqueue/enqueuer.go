package embedqueue

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// JobWriter is the store-layer seam the enqueuer depends on.
type JobWriter interface {
	EnqueueJob(ctx context.Context, job models.EmbeddingJob) error
}

// Enqueuer implements spec §4.6: it turns freshly (re)indexed chunk ids
// into embedding_jobs rows, respecting the embeddings-disabled and
// missing-model branches.
type Enqueuer struct {
	Store            JobWriter
	EmbeddingsEnabled bool
	Model            string
}

// New builds an Enqueuer.
func New(store JobWriter, embeddingsEnabled bool, model string) *Enqueuer {
	return &Enqueuer{Store: store, EmbeddingsEnabled: embeddingsEnabled, Model: model}
}

// Enqueue upserts one embedding job per chunk id on the
// (repository,branch,targetKind,targetId,model) unique key.
func (e *Enqueuer) Enqueue(ctx context.Context, repository, branch, commit string, chunkIDs []string) error {
	if !e.EmbeddingsEnabled {
		return nil
	}

	model := strings.ToLower(strings.TrimSpace(e.Model))
	status := models.JobPending
	if model == "" {
		model = models.MissingModelSentinel
		status = models.JobBlocked
	}

	for _, id := range chunkIDs {
		job := models.EmbeddingJob{
			ID:         uuid.New().String(),
			Repository: repository,
			Branch:     branch,
			Commit:     commit,
			TargetKind: models.TargetKindCodeChunk,
			TargetID:   id,
			Model:      model,
			Status:     status,
		}
		if err := e.Store.EnqueueJob(ctx, job); err != nil {
			return err
		}
	}
	return nil
}
