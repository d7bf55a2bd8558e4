package ai

import (
	"context"
	"errors"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// Result is the sum-type outcome of a batch embedding attempt, per spec
// §4.7: the embedding worker never lets provider errors escape as
// exceptions, it inspects this struct and encodes the outcome in job
// state instead.
type Result struct {
	Success      bool
	IsTransient  bool
	ErrorCode    string
	ErrorMessage string
	Embeddings   [][]float32
}

// EmbeddingProvider is the external collaborator the embedding worker
// depends on. Implementations never panic on request failure; they
// report it through Result.
type EmbeddingProvider interface {
	TryGenerateEmbeddings(ctx context.Context, chunks []models.CodeChunk) (Result, error)
	Model() string
	Dim() int
}

// Provider is an enumeration of supported embedding backends.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderVertexAI Provider = "vertexai"
	ProviderStub     Provider = "stub"
)

// ProviderConfig holds configuration for building an EmbeddingProvider.
type ProviderConfig struct {
	APIKey    string
	Model     string
	Dim       int
	ProjectID string
	Provider  Provider
	Location  string
}

// NewProvider builds an EmbeddingProvider for the configured backend.
func NewProvider(ctx context.Context, cfg *ProviderConfig) (EmbeddingProvider, error) {
	if cfg == nil {
		return nil, errors.New("provider config is required")
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg), nil
	case ProviderVertexAI:
		return NewVertexAIProvider(ctx, cfg)
	case ProviderStub:
		return NewStubProvider(cfg.Model, cfg.Dim), nil
	default:
		return nil, errors.New("unsupported provider: " + string(cfg.Provider))
	}
}

// StubProvider returns zero vectors of a fixed dimension, for wiring
// tests and demos without a live embedding backend.
type StubProvider struct {
	model string
	dim   int
}

// NewStubProvider builds a StubProvider.
func NewStubProvider(model string, dim int) *StubProvider {
	if model == "" {
		model = "stub"
	}
	if dim == 0 {
		dim = 8
	}
	return &StubProvider{model: model, dim: dim}
}

// TryGenerateEmbeddings always succeeds with zero vectors.
func (p *StubProvider) TryGenerateEmbeddings(ctx context.Context, chunks []models.CodeChunk) (Result, error) {
	out := make([][]float32, len(chunks))
	for i := range chunks {
		out[i] = make([]float32, p.dim)
	}
	return Result{Success: true, Embeddings: out}, nil
}

// Model reports the provider's model identifier.
func (p *StubProvider) Model() string { return p.model }

// Dim reports the embedding dimension.
func (p *StubProvider) Dim() int { return p.dim }
