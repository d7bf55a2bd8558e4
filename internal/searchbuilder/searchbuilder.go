// Package searchbuilder forms the per-symbol inverted-index row the
// sparse search path queries against, per spec §4.3: four weighted
// token buckets (name, signature, documentation, literals) plus a
// capped display snippet.
package searchbuilder

import (
	"strings"

	"github.com/kdsearch/coderetriever/internal/tokenizer"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// maxSnippetChars bounds the stored display snippet, independent of the
// chunk content stored by the chunker.
const maxSnippetChars = 400

// Builder assembles SymbolSearchEntry rows from a parsed file's symbols.
type Builder struct{}

// New constructs a symbol search entry builder.
func New() *Builder { return &Builder{} }

// Build forms one SymbolSearchEntry per symbol in the parsed file. Every
// symbol contributes an entry regardless of chunk eligibility: search
// must still surface fields, parameters and variables by name even
// though they are never chunked for embedding.
func (b *Builder) Build(pf *models.ParsedFile) []models.SymbolSearchEntry {
	if pf == nil {
		return nil
	}
	lines := splitLines(pf.Source)
	entries := make([]models.SymbolSearchEntry, 0, len(pf.Symbols))

	for _, sym := range pf.Symbols {
		entries = append(entries, models.SymbolSearchEntry{
			SymbolID:        sym.ID,
			Repository:      sym.Repository,
			Branch:          sym.Branch,
			Commit:          sym.Commit,
			NameTokens:      nameTokens(sym),
			SignatureTokens: tokenizer.Tokenize(sym.Signature),
			DocTokens:       tokenizer.Tokenize(sym.Documentation),
			LiteralTokens:   sym.LiteralTokens,
			Snippet:         snippet(sym, lines),
		})
	}
	return entries
}

// nameTokens combines the symbol's own name and its qualified name so
// both "Login" and "pkg.UserService.Login" resolve the same entry.
func nameTokens(sym models.Symbol) []string {
	var toks []string
	toks = append(toks, tokenizer.Tokenize(sym.Name)...)
	toks = append(toks, tokenizer.Tokenize(sym.QualifiedName)...)
	return dedupe(toks)
}

func dedupe(toks []string) []string {
	seen := make(map[string]struct{}, len(toks))
	out := toks[:0]
	for _, t := range toks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// snippet is the literal source slice spanning the symbol, capped at
// maxSnippetChars. The signature is only used when the source lines
// aren't available at all, since a signature is a summary, not the
// literal snippet spec §4.3 requires.
func snippet(sym models.Symbol, lines []string) string {
	body := sliceLines(lines, sym.Span.StartLine, sym.Span.EndLine)
	if body == "" {
		return truncate(sym.Signature, maxSnippetChars)
	}
	return truncate(body, maxSnippetChars)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	return strings.Split(source, "\n")
}

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
	return strings.Join(lines[startLine-1:endLine], "\n")
}
