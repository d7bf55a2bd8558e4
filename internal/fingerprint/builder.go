package fingerprint

import (
	"github.com/kdsearch/coderetriever/internal/tokenizer"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// maxSnippetChars/maxSnippetTokens bound the identifier scan over a
// symbol's own source snippet, per spec §4.2.
const (
	maxSnippetChars  = 4000
	maxSnippetTokens = 256
)

// Builder assembles per-symbol token bags and emits one fingerprint entry
// per non-trivial symbol.
type Builder struct{}

// NewBuilder constructs a fingerprint entry builder.
func NewBuilder() *Builder { return &Builder{} }

// BuildEntries forms the token bag for each symbol in a parsed file from
// its name, qualified name, signature, documentation, literal tokens and
// identifier tokens extracted from its own source snippet, then computes
// a SimHash-64 fingerprint and bands it.
func (b *Builder) BuildEntries(pf *models.ParsedFile) []models.SymbolFingerprintEntry {
	if pf == nil {
		return nil
	}
	entries := make([]models.SymbolFingerprintEntry, 0, len(pf.Symbols))
	lines := splitLines(pf.Source)

	for _, sym := range pf.Symbols {
		bag := tokenBag(sym, lines)
		if len(bag) == 0 {
			continue
		}
		fp := Compute(bag)
		entries = append(entries, models.SymbolFingerprintEntry{
			SymbolID:        sym.ID,
			Repository:      sym.Repository,
			Branch:          sym.Branch,
			Commit:          sym.Commit,
			FilePath:        sym.FilePath,
			Language:        sym.Language,
			Kind:            sym.Kind,
			FingerprintKind: Kind,
			Fingerprint:     fp.Hash,
			Band0:           fp.Band0,
			Band1:           fp.Band1,
			Band2:           fp.Band2,
			Band3:           fp.Band3,
		})
	}
	return entries
}

func tokenBag(sym models.Symbol, lines []string) []string {
	var bag []string
	bag = append(bag, tokenizer.Tokenize(sym.Name)...)
	bag = append(bag, tokenizer.Tokenize(sym.QualifiedName)...)
	bag = append(bag, tokenizer.Tokenize(sym.Signature)...)
	bag = append(bag, tokenizer.Tokenize(sym.Documentation)...)
	bag = append(bag, sym.LiteralTokens...)

	snippet := sliceLines(lines, sym.Span.StartLine, sym.Span.EndLine)
	bag = append(bag, tokenizer.ExtractIdentifierTokens(snippet, maxSnippetChars, maxSnippetTokens)...)
	return bag
}

func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, source[start:i])
			start = i + 1
		}
	}
	lines = append(lines, source[start:])
	return lines
}

// sliceLines returns the 1-based, inclusive [startLine, endLine] window,
// clamped to the available line count.
func sliceLines(lines []string, startLine, endLine int) string {
	if len(lines) == 0 {
		return ""
	}
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	out := ""
	for i := startLine; i <= endLine; i++ {
		if i > startLine {
			out += "\n"
		}
		out += lines[i-1]
	}
	return out
}
