package embedqueue

import (
	"context"
	"testing"

	"github.com/kdsearch/coderetriever/pkg/models"
)

type fakeJobWriter struct {
	jobs []models.EmbeddingJob
}

func (f *fakeJobWriter) EnqueueJob(ctx context.Context, job models.EmbeddingJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func TestEnqueueDisabledIsNoOp(t *testing.T) {
	fw := &fakeJobWriter{}
	e := New(fw, false, "model-a")
	if err := e.Enqueue(context.Background(), "repo", "main", "c1", []string{"chunk1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fw.jobs) != 0 {
		t.Errorf("expected no jobs enqueued, got %d", len(fw.jobs))
	}
}

func TestEnqueueBlankModelBlocks(t *testing.T) {
	fw := &fakeJobWriter{}
	e := New(fw, true, "  ")
	if err := e.Enqueue(context.Background(), "repo", "main", "c1", []string{"chunk1", "chunk2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fw.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(fw.jobs))
	}
	for _, j := range fw.jobs {
		if j.Status != models.JobBlocked || j.Model != models.MissingModelSentinel {
			t.Errorf("expected blocked job with missing-model sentinel, got %+v", j)
		}
	}
}

func TestEnqueueConfiguredModelPending(t *testing.T) {
	fw := &fakeJobWriter{}
	e := New(fw, true, "Model-A")
	if err := e.Enqueue(context.Background(), "repo", "main", "c1", []string{"chunk1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fw.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(fw.jobs))
	}
	job := fw.jobs[0]
	if job.Status != models.JobPending {
		t.Errorf("expected pending status, got %s", job.Status)
	}
	if job.Model != "model-a" {
		t.Errorf("expected model lowercased to model-a, got %s", job.Model)
	}
	if job.TargetKind != models.TargetKindCodeChunk || job.TargetID != "chunk1" {
		t.Errorf("unexpected target fields: %+v", job)
	}
}
