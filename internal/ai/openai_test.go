package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// mockTransport implements http.RoundTripper for testing without a live
// network call.
type mockTransport struct {
	mu         sync.Mutex
	statusCode int
	body       string
	err        error
	requests   []*http.Request
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Status:     fmt.Sprintf("%d %s", m.statusCode, http.StatusText(m.statusCode)),
		Body:       io.NopCloser(strings.NewReader(m.body)),
		Header:     make(http.Header),
	}, nil
}

func chunksOf(contents ...string) []models.CodeChunk {
	out := make([]models.CodeChunk, len(contents))
	for i, c := range contents {
		out[i] = models.CodeChunk{ID: fmt.Sprintf("c%d", i), Content: c}
	}
	return out
}

func TestOpenAIProviderDefaults(t *testing.T) {
	p := NewOpenAIProvider(&ProviderConfig{APIKey: "k"})
	if p.Model() != "text-embedding-3-small" {
		t.Errorf("expected default model, got %s", p.Model())
	}
	if p.Dim() != 1536 {
		t.Errorf("expected default dim 1536, got %d", p.Dim())
	}
}

func TestOpenAIProviderMissingAPIKey(t *testing.T) {
	p := NewOpenAIProvider(&ProviderConfig{Dim: 8})
	res, err := p.TryGenerateEmbeddings(context.Background(), chunksOf("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.ErrorCode != "provider_misconfigured" {
		t.Errorf("expected provider_misconfigured failure, got %+v", res)
	}
}

func TestOpenAIProviderSuccess(t *testing.T) {
	body := `{"data":[{"index":0,"embedding":[0.1,0.2]},{"index":1,"embedding":[0.3,0.4]}]}`
	mt := &mockTransport{statusCode: http.StatusOK, body: body}
	p := NewOpenAIProvider(&ProviderConfig{APIKey: "k", Dim: 2})
	p.http.Transport = mt

	res, err := p.TryGenerateEmbeddings(context.Background(), chunksOf("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Embeddings) != 2 || len(res.Embeddings[0]) != 2 {
		t.Errorf("unexpected embeddings shape: %+v", res.Embeddings)
	}
}

func TestOpenAIProviderTransientOn5xx(t *testing.T) {
	mt := &mockTransport{statusCode: http.StatusServiceUnavailable, body: `{}`}
	p := NewOpenAIProvider(&ProviderConfig{APIKey: "k"})
	p.http.Transport = mt

	res, err := p.TryGenerateEmbeddings(context.Background(), chunksOf("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || !res.IsTransient {
		t.Errorf("expected transient failure, got %+v", res)
	}
}

func TestOpenAIProviderTerminalOn4xx(t *testing.T) {
	mt := &mockTransport{statusCode: http.StatusBadRequest, body: `{}`}
	p := NewOpenAIProvider(&ProviderConfig{APIKey: "k"})
	p.http.Transport = mt

	res, err := p.TryGenerateEmbeddings(context.Background(), chunksOf("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.IsTransient {
		t.Errorf("expected non-transient failure, got %+v", res)
	}
}

func TestOpenAIProviderCountMismatch(t *testing.T) {
	body := `{"data":[{"index":0,"embedding":[0.1]}]}`
	mt := &mockTransport{statusCode: http.StatusOK, body: body}
	p := NewOpenAIProvider(&ProviderConfig{APIKey: "k"})
	p.http.Transport = mt

	res, err := p.TryGenerateEmbeddings(context.Background(), chunksOf("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.ErrorCode != "embedding_count_mismatch" {
		t.Errorf("expected embedding_count_mismatch, got %+v", res)
	}
}

func TestOpenAIProviderEmptyBatch(t *testing.T) {
	p := NewOpenAIProvider(&ProviderConfig{APIKey: "k"})
	res, err := p.TryGenerateEmbeddings(context.Background(), nil)
	if err != nil || !res.Success {
		t.Errorf("expected trivially successful no-op, got %+v, err %v", res, err)
	}
}

func TestOpenAIProviderSetsProjectHeaderOnProjectKey(t *testing.T) {
	mt := &mockTransport{statusCode: http.StatusOK, body: `{"data":[{"index":0,"embedding":[0.1]}]}`}
	p := NewOpenAIProvider(&ProviderConfig{APIKey: "sk-proj-abc", ProjectID: "proj1"})
	p.http.Transport = mt

	if _, err := p.TryGenerateEmbeddings(context.Background(), chunksOf("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mt.requests) != 1 || mt.requests[0].Header.Get("OpenAI-Project") != "proj1" {
		t.Errorf("expected OpenAI-Project header to be set")
	}
}
