package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kdsearch/coderetriever/pkg/models"
	"google.golang.org/genai"
)

// VertexAIProvider generates embeddings via the Gemini/Vertex AI API.
type VertexAIProvider struct {
	config *ProviderConfig
	client *genai.Client
}

// NewVertexAIProvider creates a provider backed by the Gemini API.
func NewVertexAIProvider(ctx context.Context, config *ProviderConfig) (*VertexAIProvider, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if config.Model == "" {
		config.Model = "text-embedding-005"
	}
	if config.Dim == 0 {
		config.Dim = 768
	}
	if config.Location == "" && strings.TrimSpace(config.APIKey) == "" {
		config.Location = "us-central1"
	}

	cc := genai.ClientConfig{
		Backend: genai.BackendVertexAI,
	}
	if strings.TrimSpace(config.APIKey) != "" {
		cc.APIKey = config.APIKey
	}
	if strings.TrimSpace(config.ProjectID) != "" {
		cc.Project = config.ProjectID
	}
	if strings.TrimSpace(config.Location) != "" {
		cc.Location = config.Location
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &VertexAIProvider{config: config, client: client}, nil
}

// TryGenerateEmbeddings embeds each chunk's content with the Gemini API,
// one request per chunk (the batch embed endpoint caps payload size well
// below what a code chunk batch can reach, so this trades round trips
// for simplicity and per-chunk error isolation).
func (p *VertexAIProvider) TryGenerateEmbeddings(ctx context.Context, chunks []models.CodeChunk) (Result, error) {
	if len(chunks) == 0 {
		return Result{Success: true}, nil
	}

	cfg := genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	embeddings := make([][]float32, len(chunks))

	for i, c := range chunks {
		res, err := p.client.Models.EmbedContent(ctx, p.config.Model, genai.Text(c.Content), &cfg)
		if err != nil {
			return Result{Success: false, IsTransient: true, ErrorCode: "provider_error", ErrorMessage: err.Error()}, nil
		}
		if res == nil || len(res.Embeddings) == 0 {
			return Result{Success: false, IsTransient: false, ErrorCode: "embedding_count_mismatch", ErrorMessage: "no embedding returned"}, nil
		}
		embeddings[i] = res.Embeddings[0].Values
	}

	return Result{Success: true, Embeddings: embeddings}, nil
}

// Model reports the configured embedding model.
func (p *VertexAIProvider) Model() string { return p.config.Model }

// Dim reports the embedding dimension.
func (p *VertexAIProvider) Dim() int { return p.config.Dim }
