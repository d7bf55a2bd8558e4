package query

import (
	"context"
	"time"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// Orchestrator answers QueryRequests by detecting intent, routing to the
// matching retrieval profile, and shaping the raw result list into the
// wire response, spec §4.8.
type Orchestrator struct {
	Backend Backend

	// DefaultProfile is used when the request carries no ProfileOverride.
	DefaultProfile models.RetrievalProfile
	// DefaultEmbeddingModel resolves a hybrid/semantic query's model when
	// the request itself does not name one.
	DefaultEmbeddingModel string
	Compaction            CompactionOptions

	// Now is overridable for deterministic execution-time assertions in
	// tests; defaults to time.Now.
	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Query is the orchestrator's single public entrypoint.
func (o *Orchestrator) Query(ctx context.Context, req models.QueryRequest) models.QueryResponse {
	start := o.now()
	if req.MaxResults <= 0 {
		req.MaxResults = 50
	}

	intent := detectIntent(req.Query)
	resp := models.QueryResponse{
		Query:      req.Query,
		Intent:     intent,
		Repository: req.Repository,
		Branch:     req.Branch,
	}

	profile := req.ProfileOverride
	if profile == "" {
		profile = o.DefaultProfile
	}
	if profile == "" {
		profile = models.ProfileFast
	}
	resp.Profile = profile

	var err error
	switch {
	case intent == models.IntentSimilar:
		err = o.runSimilarIntent(ctx, req, &resp)
	case profile == models.ProfileSemantic:
		err = o.runSemanticProfile(ctx, req, &resp)
	case profile == models.ProfileHybrid:
		err = o.runHybridProfile(ctx, req, &resp)
	default:
		err = o.runFastProfile(ctx, req, &resp)
	}

	if err != nil {
		resp.ErrorCode = ErrInternal
		resp.Error = err.Error()
		resp.Results = nil
	}

	resp.TotalResults = len(resp.Results)
	compact(&resp, o.Compaction)
	resp.ExecutionTimeMs = o.now().Sub(start).Milliseconds()
	return resp
}

func (o *Orchestrator) runFastProfile(ctx context.Context, req models.QueryRequest, resp *models.QueryResponse) error {
	results, err := runFast(ctx, o.Backend, req)
	if err != nil {
		return err
	}
	resp.Results = results
	return nil
}

func (o *Orchestrator) runHybridProfile(ctx context.Context, req models.QueryRequest, resp *models.QueryResponse) error {
	out, err := runHybrid(ctx, o.Backend, req, o.resolveModel(req))
	if err != nil {
		return err
	}
	applyOutcome(resp, out)
	return nil
}

func (o *Orchestrator) runSemanticProfile(ctx context.Context, req models.QueryRequest, resp *models.QueryResponse) error {
	out, err := runSemantic(ctx, o.Backend, req, o.resolveModel(req))
	if err != nil {
		return err
	}
	applyOutcome(resp, out)
	return nil
}

func (o *Orchestrator) runSimilarIntent(ctx context.Context, req models.QueryRequest, resp *models.QueryResponse) error {
	out, err := runSimilar(ctx, o.Backend, req)
	if err != nil {
		return err
	}
	resp.Results = out.results
	resp.ErrorCode = out.errorCode
	resp.Error = out.errorMsg
	return nil
}

func (o *Orchestrator) resolveModel(req models.QueryRequest) string {
	if req.QueryEmbedding != nil && req.QueryEmbedding.Model != "" {
		return req.QueryEmbedding.Model
	}
	return o.DefaultEmbeddingModel
}

func applyOutcome(resp *models.QueryResponse, out hybridOutcome) {
	resp.Results = out.results
	resp.Fallback = out.fallback
	resp.ErrorCode = out.errorCode
	resp.EmbeddingUsed = out.embeddingUsed
	resp.EmbeddingModel = out.embeddingModel
	resp.EmbeddingCandidateCount = out.embeddingCandidateCount
}
