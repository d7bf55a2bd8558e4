package ai

import (
	"context"
	"strings"
	"testing"
)

func TestProviderConstants(t *testing.T) {
	tests := []struct {
		provider Provider
		expected string
	}{
		{ProviderOpenAI, "openai"},
		{ProviderVertexAI, "vertexai"},
		{ProviderStub, "stub"},
	}
	for _, tt := range tests {
		if string(tt.provider) != tt.expected {
			t.Errorf("provider constant mismatch: expected %s, got %s", tt.expected, tt.provider)
		}
	}
}

func TestNewProviderNilConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "provider config is required") {
		t.Errorf("expected nil config error, got %v", err)
	}
}

func TestNewProviderDispatch(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *ProviderConfig
		expectError bool
		wantType    string
	}{
		{"openai", &ProviderConfig{Provider: ProviderOpenAI, APIKey: "k"}, false, "*ai.OpenAIProvider"},
		{"vertexai", &ProviderConfig{Provider: ProviderVertexAI, APIKey: "k"}, false, "*ai.VertexAIProvider"},
		{"stub", &ProviderConfig{Provider: ProviderStub, Dim: 16}, false, "*ai.StubProvider"},
		{"unsupported", &ProviderConfig{Provider: Provider("bogus")}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), tt.cfg)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var gotType string
			switch p.(type) {
			case *OpenAIProvider:
				gotType = "*ai.OpenAIProvider"
			case *VertexAIProvider:
				gotType = "*ai.VertexAIProvider"
			case *StubProvider:
				gotType = "*ai.StubProvider"
			}
			if gotType != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, gotType)
			}
		})
	}
}

func TestStubProviderDefaults(t *testing.T) {
	p := NewStubProvider("", 0)
	if p.Model() != "stub" || p.Dim() != 8 {
		t.Errorf("expected defaults stub/8, got %s/%d", p.Model(), p.Dim())
	}
}

func TestStubProviderEmbedsZeroVectors(t *testing.T) {
	p := NewStubProvider("stub", 4)
	res, err := p.TryGenerateEmbeddings(context.Background(), chunksOf("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %+v", res)
	}
	for _, v := range res.Embeddings[0] {
		if v != 0 {
			t.Errorf("expected zero vector, got %v", res.Embeddings[0])
		}
	}
}
