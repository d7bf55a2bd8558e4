package parse

import (
	"testing"

	"github.com/kdsearch/coderetriever/pkg/models"
)

func TestParseFileGoFunctionsAndTypes(t *testing.T) {
	src := "package demo\n\ntype Widget struct {\n\tName string\n}\n\nfunc (w *Widget) Greet() string {\n\treturn w.Name\n}\n"
	p := New()
	pf, err := p.ParseFile("repo", "main", "c1", "demo.go", []byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pf.Language != "go" {
		t.Errorf("expected language go, got %q", pf.Language)
	}
	if len(pf.Symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %d: %+v", len(pf.Symbols), pf.Symbols)
	}
	names := map[string]models.SymbolKind{}
	for _, s := range pf.Symbols {
		names[s.Name] = s.Kind
	}
	if names["Widget"] != models.KindStruct {
		t.Errorf("expected Widget to be a struct, got %q", names["Widget"])
	}
	if names["Greet"] != models.KindFunction {
		t.Errorf("expected Greet to be a function, got %q", names["Greet"])
	}
}

func TestParseFilePythonIndentBlocks(t *testing.T) {
	src := "class Greeter:\n    def hello(self):\n        return 'hi'\n\n    def bye(self):\n        return 'bye'\n"
	p := New()
	pf, err := p.ParseFile("repo", "main", "c1", "greeter.py", []byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pf.Symbols) != 3 {
		t.Fatalf("expected 3 symbols (class + 2 methods), got %d: %+v", len(pf.Symbols), pf.Symbols)
	}
}

func TestParseFileUnknownLanguageYieldsNoSymbols(t *testing.T) {
	p := New()
	pf, err := p.ParseFile("repo", "main", "c1", "notes.txt", []byte("just some prose"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pf.Symbols) != 0 {
		t.Errorf("expected no symbols for unrecognised language, got %d", len(pf.Symbols))
	}
}

func TestSymbolIDIsStableAndUnique(t *testing.T) {
	a := symbolID("repo", "main", "f.go", "Foo", 3)
	b := symbolID("repo", "main", "f.go", "Foo", 3)
	if a != b {
		t.Errorf("expected stable id, got %q vs %q", a, b)
	}
	c := symbolID("repo", "main", "f.go", "Foo", 4)
	if a == c {
		t.Errorf("expected different line to produce a different id")
	}
}
