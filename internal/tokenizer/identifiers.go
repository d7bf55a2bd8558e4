package tokenizer

import "regexp"

// identifierRe matches a single C-family-ish identifier lexeme.
var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// numericRe rejects lexemes that are purely numeric once underscores are
// stripped (identifierRe never matches a leading digit, but `_123` would).
var numericRe = regexp.MustCompile(`^[0-9_]+$`)

// stopwords is a fixed, multi-language keyword set built once at package
// init, per the "global stopword lists ... immutable, built once at
// startup" design note.
var stopwords = buildStopwords()

func buildStopwords() map[string]struct{} {
	words := []string{
		// control flow, common across C-family / Python / Go / Ruby / JS
		"if", "else", "elif", "for", "foreach", "while", "do", "switch", "case",
		"default", "break", "continue", "return", "yield", "goto", "try",
		"catch", "finally", "throw", "throws", "raise", "except", "with",
		"pass", "match",
		// declarations / modifiers
		"class", "interface", "struct", "enum", "trait", "module", "namespace",
		"package", "import", "export", "using", "include", "require",
		"function", "func", "def", "lambda", "fn", "sub", "proc", "method",
		"var", "let", "const", "int", "long", "short", "float", "double",
		"bool", "boolean", "char", "byte", "string", "void", "object", "any",
		"auto", "dynamic", "type", "typedef", "typeof", "sizeof",
		"public", "private", "protected", "internal", "static", "final",
		"abstract", "virtual", "override", "sealed", "readonly", "volatile",
		"extends", "implements", "interface", "super", "this", "self", "base",
		"new", "delete", "null", "nil", "none", "true", "false", "undefined",
		// misc keywords
		"async", "await", "in", "is", "as", "instanceof", "not", "and", "or",
		"global", "nonlocal", "unsafe", "defer", "chan", "select", "range",
		"map", "slice", "interface{}", "panic", "recover",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ExtractIdentifierTokens scans up to maxChars of source text, lifts
// identifier lexemes, drops language keywords / numeric literals / short
// tokens, and returns up to maxTokens distinct tokens that also survive
// Tokenize, in first-seen order.
func ExtractIdentifierTokens(sourceText string, maxChars, maxTokens int) []string {
	if maxChars > 0 && len(sourceText) > maxChars {
		sourceText = sourceText[:maxChars]
	}

	seen := make(map[string]struct{})
	var out []string
	for _, lexeme := range identifierRe.FindAllString(sourceText, -1) {
		if len(out) >= maxTokens {
			break
		}
		if len(lexeme) < 3 {
			continue
		}
		lower := toLowerASCII(lexeme)
		if _, stop := stopwords[lower]; stop {
			continue
		}
		if numericRe.MatchString(lexeme) {
			continue
		}
		toks := Tokenize(lexeme)
		if len(toks) == 0 {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
