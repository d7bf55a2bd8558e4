package query

// Wire-stable error codes, spec §4.8/§7. These populate
// QueryResponse.ErrorCode; the orchestrator never panics on these
// conditions, it degrades to a well-formed response instead.
const (
	ErrSeedNotFound            = "seed_not_found"
	ErrSeedFingerprintMissing  = "seed_fingerprint_missing"
	ErrEmbeddingModelAmbiguous = "embedding_model_ambiguous"
	ErrEmbeddingModelNotFound  = "embedding_model_not_found"
	ErrEmbeddingDimsMismatch   = "embedding_dims_mismatch"
	ErrInvalidQueryEmbedding   = "invalid_query_embedding"
	ErrInvalidQueryEmbeddingDims = "invalid_query_embedding_dims"
	ErrInternal                = "internal"
)

// Fallback chain labels recorded in QueryResponse.Fallback.
const (
	FallbackHybridToFast     = "hybrid->fast"
	FallbackSemanticToHybrid = "semantic->hybrid"
	FallbackSemanticToFast   = "semantic->fast"
	FallbackQueryEmbeddingInvalid = "query_embedding_invalid"
)
