package query

import (
	"context"
	"sort"
	"strings"

	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// hybridOutcome carries the rerank metadata alongside the result list,
// since the orchestrator folds this straight into QueryResponse.
type hybridOutcome struct {
	results                 []models.SearchResult
	fallback                string
	errorCode               string
	embeddingUsed           bool
	embeddingModel          string
	embeddingCandidateCount int
}

// runHybrid implements the Hybrid retrieval profile, spec §4.8.2.
func runHybrid(ctx context.Context, backend Backend, req models.QueryRequest, defaultModel string) (hybridOutcome, error) {
	sparse, err := runFast(ctx, backend, req)
	if err != nil {
		return hybridOutcome{}, err
	}

	qe, decodeErr := decodeQueryEmbedding(req.QueryEmbedding)
	if decodeErr != "" {
		return hybridOutcome{results: sparse, fallback: FallbackHybridToFast, errorCode: decodeErr}, nil
	}
	if qe == nil {
		return hybridOutcome{results: sparse, fallback: FallbackHybridToFast}, nil
	}

	explicitModel := strings.ToLower(strings.TrimSpace(req.QueryEmbedding.Model))
	model := explicitModel
	if model == "" {
		model = strings.ToLower(strings.TrimSpace(defaultModel))
	}
	if model == "" {
		known, err := backend.ListEmbeddingModels(ctx, req.Repository, req.Branch)
		if err != nil {
			return hybridOutcome{}, err
		}
		if len(known) == 1 {
			model = known[0]
		}
	}
	if model == "" {
		return hybridOutcome{results: sparse, fallback: FallbackHybridToFast, errorCode: ErrEmbeddingModelAmbiguous}, nil
	}

	has, err := backend.HasEmbeddingModel(ctx, req.Repository, req.Branch, model)
	if err != nil {
		return hybridOutcome{}, err
	}
	if !has {
		if explicitModel != "" {
			return hybridOutcome{results: sparse, fallback: FallbackHybridToFast, errorCode: ErrEmbeddingModelNotFound}, nil
		}
		return hybridOutcome{results: sparse, fallback: FallbackQueryEmbeddingInvalid}, nil
	}

	storedDims, found, err := backend.EmbeddingModelDims(ctx, req.Repository, req.Branch, model)
	if err != nil {
		return hybridOutcome{}, err
	}
	if found && storedDims != len(qe) {
		return hybridOutcome{results: sparse, fallback: FallbackHybridToFast, errorCode: ErrEmbeddingDimsMismatch}, nil
	}

	chunkIDs := make([]string, 0, len(sparse))
	resultBySymbol := make(map[string]int, len(sparse))
	for i, r := range sparse {
		chunk, found, err := backend.GetChunkBySymbol(ctx, r.ID)
		if err != nil {
			return hybridOutcome{}, err
		}
		if !found {
			continue
		}
		chunkIDs = append(chunkIDs, chunk.ID)
		resultBySymbol[chunk.ID] = i
	}

	embeddings, err := backend.VectorSearch(ctx, qe, len(chunkIDs)+1, store.VectorSearchOpts{
		Repository: req.Repository,
		Branch:     req.Branch,
		Model:      model,
	})
	if err != nil {
		return hybridOutcome{}, err
	}
	simByChunk := make(map[string]float64, len(embeddings))
	for _, e := range embeddings {
		simByChunk[e.ChunkID] = e.CosineSimilarity
	}

	reranked := append([]models.SearchResult(nil), sparse...)
	candidates := 0
	for chunkID, idx := range resultBySymbol {
		sim, ok := simByChunk[chunkID]
		if !ok {
			continue
		}
		candidates++
		reranked[idx].Score = 0.3*reranked[idx].Score + 0.7*sim
		v := sim
		reranked[idx].Vector = &v
		reranked[idx].Why = appendReason(reranked[idx].Why, "rerank:semantic_boost")
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	if req.MaxResults > 0 && len(reranked) > req.MaxResults {
		reranked = reranked[:req.MaxResults]
	}

	return hybridOutcome{
		results:                 reranked,
		embeddingUsed:           true,
		embeddingModel:          model,
		embeddingCandidateCount: candidates,
	}, nil
}

func appendReason(why []string, reason string) []string {
	if len(why) >= 3 {
		return why
	}
	return append(why, reason)
}
