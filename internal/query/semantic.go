package query

import (
	"context"
	"sort"
	"strings"

	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// runSemantic implements the Semantic retrieval profile, spec §4.8.3. It
// falls all the way back to Fast (via Hybrid's own fallback) when no
// usable query embedding is present, recording the full chain so callers
// can tell which stage actually answered.
func runSemantic(ctx context.Context, backend Backend, req models.QueryRequest, defaultModel string) (hybridOutcome, error) {
	qe, decodeErr := decodeQueryEmbedding(req.QueryEmbedding)
	if decodeErr != "" {
		out, err := fallThroughToHybrid(ctx, backend, req, defaultModel, FallbackSemanticToHybrid)
		if err != nil {
			return hybridOutcome{}, err
		}
		out.errorCode = decodeErr
		return out, nil
	}
	if qe == nil {
		return fallThroughToHybrid(ctx, backend, req, defaultModel, FallbackSemanticToHybrid)
	}

	model := strings.ToLower(strings.TrimSpace(req.QueryEmbedding.Model))
	if model == "" {
		model = strings.ToLower(strings.TrimSpace(defaultModel))
	}
	if model == "" {
		return fallThroughToHybrid(ctx, backend, req, defaultModel, FallbackSemanticToHybrid)
	}
	if req.QueryEmbedding.Dims > 0 && len(qe) != req.QueryEmbedding.Dims {
		return fallThroughToHybrid(ctx, backend, req, defaultModel, FallbackSemanticToHybrid)
	}

	has, err := backend.HasEmbeddingModel(ctx, req.Repository, req.Branch, model)
	if err != nil {
		return hybridOutcome{}, err
	}
	if !has {
		return fallThroughToHybrid(ctx, backend, req, defaultModel, FallbackSemanticToHybrid)
	}

	limit := req.MaxResults * 2
	if limit <= 0 {
		limit = 100
	}
	hits, err := backend.VectorSearch(ctx, qe, limit, store.VectorSearchOpts{
		Repository: req.Repository,
		Branch:     req.Branch,
		Model:      model,
	})
	if err != nil {
		return hybridOutcome{}, err
	}
	if len(hits) == 0 {
		return fallThroughToHybrid(ctx, backend, req, defaultModel, FallbackSemanticToHybrid)
	}

	chunkIDs := make([]string, len(hits))
	simByChunk := make(map[string]float64, len(hits))
	for i, h := range hits {
		chunkIDs[i] = h.ChunkID
		simByChunk[h.ChunkID] = h.CosineSimilarity
	}
	chunks, err := backend.GetChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return hybridOutcome{}, err
	}
	symbolIDs := make([]string, 0, len(chunks))
	simBySymbol := make(map[string]float64, len(chunks))
	for _, c := range chunks {
		symbolIDs = append(symbolIDs, c.SymbolID)
		simBySymbol[c.SymbolID] = simByChunk[c.ID]
	}

	results, err := hydrateMany(ctx, backend, symbolIDs, simBySymbol, nil)
	if err != nil {
		return hybridOutcome{}, err
	}
	for i := range results {
		v := results[i].Score
		results[i].Vector = &v
		results[i].Why = appendReason(results[i].Why, "rerank:semantic_boost")
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if req.MaxResults > 0 && len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}

	return hybridOutcome{
		results:                 results,
		embeddingUsed:           true,
		embeddingModel:          model,
		embeddingCandidateCount: len(hits),
	}, nil
}

func fallThroughToHybrid(ctx context.Context, backend Backend, req models.QueryRequest, defaultModel, fallback string) (hybridOutcome, error) {
	out, err := runHybrid(ctx, backend, req, defaultModel)
	if err != nil {
		return hybridOutcome{}, err
	}
	if out.fallback == "" {
		out.fallback = fallback
	} else {
		out.fallback = fallback + strings.TrimPrefix(out.fallback, "hybrid")
	}
	return out, nil
}
