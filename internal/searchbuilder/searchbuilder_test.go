package searchbuilder

import (
	"strings"
	"testing"

	"github.com/kdsearch/coderetriever/pkg/models"
)

func TestBuildProducesEntryPerSymbol(t *testing.T) {
	pf := &models.ParsedFile{
		Repository: "repo",
		Branch:     "main",
		Commit:     "abc",
		FilePath:   "pkg/service.go",
		Source:     "line1\nline2\nline3\n",
		Symbols: []models.Symbol{
			{ID: "s1", Name: "Login", QualifiedName: "pkg.UserService.Login", Kind: models.KindMethod, Span: models.Span{StartLine: 1, EndLine: 2}},
			{ID: "s2", Name: "count", Kind: models.KindVariable, Span: models.Span{StartLine: 3, EndLine: 3}},
		},
	}
	entries := New().Build(pf)
	if len(entries) != 2 {
		t.Fatalf("expected one entry per symbol (including non-chunk-eligible kinds), got %d", len(entries))
	}
}

func TestBuildNameTokensCombineNameAndQualified(t *testing.T) {
	pf := &models.ParsedFile{
		Symbols: []models.Symbol{
			{ID: "s1", Name: "Login", QualifiedName: "pkg.UserService.Login", Kind: models.KindMethod},
		},
	}
	entries := New().Build(pf)
	tokens := entries[0].NameTokens
	want := map[string]bool{"login": false, "pkg": false, "user": false, "service": false}
	for _, tok := range tokens {
		if _, ok := want[tok]; ok {
			want[tok] = true
		}
	}
	for tok, found := range want {
		if !found {
			t.Errorf("expected name token %q, got %v", tok, tokens)
		}
	}
}

func TestBuildSnippetFallsBackToSignature(t *testing.T) {
	pf := &models.ParsedFile{
		Symbols: []models.Symbol{
			{ID: "s1", Name: "Login", Kind: models.KindMethod, Signature: "func (s *UserService) Login(user string) error"},
		},
	}
	entries := New().Build(pf)
	if entries[0].Snippet != "func (s *UserService) Login(user string) error" {
		t.Fatalf("expected snippet to use signature, got %q", entries[0].Snippet)
	}
}

func TestBuildSnippetUsesSourceSpan(t *testing.T) {
	pf := &models.ParsedFile{
		Source: "func Login() {\n\treturn nil\n}\n",
		Symbols: []models.Symbol{
			{ID: "s1", Name: "Login", Kind: models.KindFunction, Span: models.Span{StartLine: 1, EndLine: 3}},
		},
	}
	entries := New().Build(pf)
	if !strings.Contains(entries[0].Snippet, "func Login()") {
		t.Fatalf("expected snippet derived from source span, got %q", entries[0].Snippet)
	}
}

func TestBuildSnippetTruncatesAtCap(t *testing.T) {
	pf := &models.ParsedFile{
		Symbols: []models.Symbol{
			{ID: "s1", Name: "Big", Kind: models.KindFunction, Signature: strings.Repeat("x", maxSnippetChars+100)},
		},
	}
	entries := New().Build(pf)
	if len(entries[0].Snippet) != maxSnippetChars {
		t.Fatalf("expected snippet capped to %d chars, got %d", maxSnippetChars, len(entries[0].Snippet))
	}
}

func TestBuildPreservesLiteralTokens(t *testing.T) {
	pf := &models.ParsedFile{
		Symbols: []models.Symbol{
			{ID: "s1", Name: "Retry", Kind: models.KindFunction, LiteralTokens: []string{"max_retries", "30s"}},
		},
	}
	entries := New().Build(pf)
	if len(entries[0].LiteralTokens) != 2 {
		t.Fatalf("expected literal tokens passed through untouched, got %v", entries[0].LiteralTokens)
	}
}

func TestBuildNilParsedFile(t *testing.T) {
	if entries := New().Build(nil); entries != nil {
		t.Fatalf("expected nil result for nil input, got %v", entries)
	}
}
