package query

import (
	"context"

	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// Backend is the store-layer seam the orchestrator depends on. *store.Store
// satisfies it directly; tests substitute an in-memory fake.
type Backend interface {
	SparseSearch(ctx context.Context, tokens []string, limit int, opt store.SparseSearchOpts) ([]store.SparseHit, error)
	GetSymbolsByIDs(ctx context.Context, ids []string) ([]models.Symbol, error)
	GetSymbol(ctx context.Context, id string) (models.Symbol, bool, error)
	EdgesFrom(ctx context.Context, symbolID string) ([]models.SymbolEdge, error)
	GetChunkBySymbol(ctx context.Context, symbolID string) (models.CodeChunk, bool, error)
	GetChunksByIDs(ctx context.Context, ids []string) ([]models.CodeChunk, error)
	VectorSearch(ctx context.Context, query []float32, limit int, opt store.VectorSearchOpts) ([]store.VectorHit, error)
	HasEmbeddingModel(ctx context.Context, repository, branch, model string) (bool, error)
	ListEmbeddingModels(ctx context.Context, repository, branch string) ([]string, error)
	EmbeddingModelDims(ctx context.Context, repository, branch, model string) (int, bool, error)
	GetFingerprint(ctx context.Context, symbolID string) (models.SymbolFingerprintEntry, bool, error)
	FindCandidatesByBands(ctx context.Context, repository, branch, language string, kind models.SymbolKind, fp models.SymbolFingerprintEntry, excludeSymbolID string) ([]store.FingerprintCandidate, error)
}
