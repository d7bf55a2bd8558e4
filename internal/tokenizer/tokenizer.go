// Package tokenizer splits identifiers and free text into the lowercase
// token streams the search builder, fingerprint service and query
// orchestrator all rank on.
package tokenizer

import (
	"regexp"
	"strings"
)

// splitRe finds the runs of alphanumeric characters Tokenize operates on;
// everything else (dots, slashes, whitespace, punctuation) is a separator.
var splitRe = regexp.MustCompile(`[A-Za-z0-9]+`)

// Tokenize lowercases and splits text into an ordered, deduplicated token
// stream. Order is first-seen; tokens shorter than two characters are
// dropped.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, segment := range splitRe.FindAllString(text, -1) {
		for _, sub := range splitCamel(segment) {
			tok := strings.ToLower(sub)
			if len(tok) < 2 {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}

// splitCamel breaks one alphanumeric run into acronym / capitalised-word /
// digit sub-tokens, e.g. "HTTPServerV2" -> ["HTTP", "Server", "V", "2"].
func splitCamel(segment string) []string {
	var out []string
	runes := []rune(segment)
	n := len(runes)
	i := 0
	isUpper := func(r rune) bool { return r >= 'A' && r <= 'Z' }
	isLower := func(r rune) bool { return r >= 'a' && r <= 'z' }
	isDigit := func(r rune) bool { return r >= '0' && r <= '9' }

	for i < n {
		switch {
		case isDigit(runes[i]):
			j := i + 1
			for j < n && isDigit(runes[j]) {
				j++
			}
			out = append(out, string(runes[i:j]))
			i = j
		case isUpper(runes[i]):
			j := i + 1
			for j < n && isUpper(runes[j]) {
				j++
			}
			if j-i == 1 {
				// A lone capital starts a capitalised word: consume trailing lowers.
				k := j
				for k < n && isLower(runes[k]) {
					k++
				}
				out = append(out, string(runes[i:k]))
				i = k
				continue
			}
			// Acronym run of 2+ capitals; if followed by a lowercase letter,
			// the last capital belongs to the next capitalised word
			// (HTTPServer -> HTTP, Server).
			if j < n && isLower(runes[j]) {
				j--
			}
			out = append(out, string(runes[i:j]))
			i = j
		case isLower(runes[i]):
			j := i + 1
			for j < n && isLower(runes[j]) {
				j++
			}
			out = append(out, string(runes[i:j]))
			i = j
		default:
			i++
		}
	}
	return out
}
