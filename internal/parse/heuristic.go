// Package parse is a heuristic, regex-based implementation of
// models.Parser: a structural parser is an external collaborator the
// core only depends on through that interface, and this package is the
// stand-in used by local demos and tests in place of a real
// per-language front end (tree-sitter, the Go/Python/TS compiler APIs).
package parse

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/kdsearch/coderetriever/internal/fixtures"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// Heuristic extracts top-level function/method/type declarations by
// matching a small set of per-language regexes against each source line.
// It never fails: an unrecognised language yields a file with no symbols
// rather than an error, since "no structure detected" is a valid outcome
// for prose or config files.
type Heuristic struct{}

// New constructs a Heuristic parser.
func New() *Heuristic { return &Heuristic{} }

var (
	goFunc      = regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	goType      = regexp.MustCompile(`^type\s+([A-Za-z_][A-Za-z0-9_]*)\s+(struct|interface)\b`)
	pyDef       = regexp.MustCompile(`^(?:\s*)def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	pyClass     = regexp.MustCompile(`^(?:\s*)class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[\(:]`)
	jsFunction  = regexp.MustCompile(`^(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)
	jsClass     = regexp.MustCompile(`^(?:export\s+)?class\s+([A-Za-z_$][A-Za-z0-9_$]*)\b`)
	javaMethod  = regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?[\w<>\[\]]+\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	javaClass   = regexp.MustCompile(`^\s*(?:public\s+)?(?:final\s+)?(?:class|interface)\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
)

// ParseFile implements models.Parser.
func (h *Heuristic) ParseFile(repository, branch, commit, path string, content []byte) (*models.ParsedFile, error) {
	lang := fixtures.GuessLanguage(path)
	source := string(content)
	lines := strings.Split(source, "\n")

	pf := &models.ParsedFile{
		Repository: repository, Branch: branch, Commit: commit,
		FilePath: path, Language: lang, Source: source,
	}

	for i, line := range lines {
		name, kind, ok := matchDeclaration(lang, line)
		if !ok {
			continue
		}
		start := i + 1
		end := blockEnd(lines, i, lang)
		pf.Symbols = append(pf.Symbols, models.Symbol{
			ID:            symbolID(repository, branch, path, name, start),
			Repository:    repository,
			Branch:        branch,
			Commit:        commit,
			FilePath:      path,
			Name:          name,
			QualifiedName: name,
			Kind:          kind,
			Language:      lang,
			Span:          models.Span{StartLine: start, EndLine: end},
			Signature:     strings.TrimSpace(line),
		})
	}

	return pf, nil
}

// matchDeclaration tries every pattern registered for a language in turn.
func matchDeclaration(lang, line string) (name string, kind models.SymbolKind, ok bool) {
	switch lang {
	case "go":
		if m := goFunc.FindStringSubmatch(line); m != nil {
			return m[1], models.KindFunction, true
		}
		if m := goType.FindStringSubmatch(line); m != nil {
			if m[2] == "interface" {
				return m[1], models.KindInterface, true
			}
			return m[1], models.KindStruct, true
		}
	case "python":
		if m := pyDef.FindStringSubmatch(line); m != nil {
			return m[1], models.KindFunction, true
		}
		if m := pyClass.FindStringSubmatch(line); m != nil {
			return m[1], models.KindClass, true
		}
	case "javascript", "typescript":
		if m := jsFunction.FindStringSubmatch(line); m != nil {
			return m[1], models.KindFunction, true
		}
		if m := jsClass.FindStringSubmatch(line); m != nil {
			return m[1], models.KindClass, true
		}
	case "java":
		if m := javaClass.FindStringSubmatch(line); m != nil {
			return m[1], models.KindClass, true
		}
		if m := javaMethod.FindStringSubmatch(line); m != nil {
			return m[1], models.KindMethod, true
		}
	}
	return "", "", false
}

// blockEnd finds the closing brace of a brace-delimited declaration, or
// falls back to indentation for Python; if neither resolves cleanly, the
// declaration is treated as a single line.
func blockEnd(lines []string, start int, lang string) int {
	if lang == "python" {
		return pythonBlockEnd(lines, start)
	}
	return braceBlockEnd(lines, start)
}

func braceBlockEnd(lines []string, start int) int {
	depth := 0
	seenOpen := false
	for i := start; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				seenOpen = true
			case '}':
				depth--
				if seenOpen && depth == 0 {
					return i + 1
				}
			}
		}
	}
	return start + 1
}

func pythonBlockEnd(lines []string, start int) int {
	baseIndent := indentOf(lines[start])
	end := start + 1
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if indentOf(lines[i]) <= baseIndent {
			break
		}
		end = i + 1
	}
	return end
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r != ' ' && r != '\t' {
			break
		}
		n++
	}
	return n
}

func symbolID(repository, branch, path, name string, line int) string {
	h := sha1.New()
	h.Write([]byte(repository))
	h.Write([]byte{0})
	h.Write([]byte(branch))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte{byte(line), byte(line >> 8)})
	return hex.EncodeToString(h.Sum(nil))
}
