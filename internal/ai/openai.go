package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// OpenAIProvider generates embeddings via the OpenAI embeddings API.
type OpenAIProvider struct {
	config *ProviderConfig
	http   *http.Client
}

// NewOpenAIProvider builds an OpenAIProvider, filling in model/dim
// defaults when unset.
func NewOpenAIProvider(config *ProviderConfig) *OpenAIProvider {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.Dim == 0 {
		switch config.Model {
		case "text-embedding-3-small":
			config.Dim = 1536
		case "text-embedding-3-large":
			config.Dim = 3072
		case "text-embedding-ada-002":
			config.Dim = 1536
		default:
			config.Dim = 1536
		}
	}

	transport := &http.Transport{}
	if skipTLS, _ := strconv.ParseBool(os.Getenv("CODERETRIEVER_SKIP_TLS_VERIFY")); skipTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &OpenAIProvider{
		config: config,
		http: &http.Client{
			Timeout:   20 * time.Second,
			Transport: transport,
		},
	}
}

// TryGenerateEmbeddings embeds the content of each chunk in one request,
// classifying failures as transient (network/5xx/429) or terminal so the
// embedding worker can decide whether to retry.
func (p *OpenAIProvider) TryGenerateEmbeddings(ctx context.Context, chunks []models.CodeChunk) (Result, error) {
	if p.config.APIKey == "" {
		return Result{Success: false, IsTransient: false, ErrorCode: "provider_misconfigured", ErrorMessage: "api key unset"}, nil
	}
	if len(chunks) == 0 {
		return Result{Success: true}, nil
	}

	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = c.Content
	}

	payload := map[string]any{
		"input": inputs,
		"model": p.config.Model,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Result{Success: false, IsTransient: false, ErrorCode: "encode_error", ErrorMessage: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/embeddings", bytes.NewReader(b))
	if err != nil {
		return Result{Success: false, IsTransient: false, ErrorCode: "request_build_error", ErrorMessage: err.Error()}, nil
	}
	p.setHeaders(req)

	resp, err := p.http.Do(req)
	if err != nil {
		return Result{Success: false, IsTransient: true, ErrorCode: "provider_error", ErrorMessage: err.Error()}, nil
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("openai embedding response close: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Result{Success: false, IsTransient: true, ErrorCode: "provider_error", ErrorMessage: resp.Status}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Result{Success: false, IsTransient: false, ErrorCode: "provider_rejected", ErrorMessage: resp.Status}, nil
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Success: false, IsTransient: true, ErrorCode: "decode_error", ErrorMessage: err.Error()}, nil
	}
	if len(out.Data) != len(chunks) {
		return Result{Success: false, IsTransient: false, ErrorCode: "embedding_count_mismatch", ErrorMessage: "provider returned an unexpected number of embeddings"}, nil
	}

	embeddings := make([][]float32, len(chunks))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			continue
		}
		embeddings[d.Index] = d.Embedding
	}

	return Result{Success: true, Embeddings: embeddings}, nil
}

// Model reports the configured embedding model.
func (p *OpenAIProvider) Model() string { return p.config.Model }

// Dim reports the embedding dimension.
func (p *OpenAIProvider) Dim() int { return p.config.Dim }

func (p *OpenAIProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	if strings.HasPrefix(p.config.APIKey, "sk-proj-") && p.config.ProjectID != "" {
		req.Header.Set("OpenAI-Project", p.config.ProjectID)
	}
}
