package query

import (
	"strings"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// detectIntent classifies a free-text query per spec §4.8. similar:<id>
// is checked first since it is a structural prefix, not a keyword.
func detectIntent(q string) models.Intent {
	if strings.HasPrefix(strings.TrimSpace(q), "similar:") {
		return models.IntentSimilar
	}

	lower := strings.ToLower(q)
	switch {
	case containsAny(lower, "who calls", "references", "uses", "depends"):
		return models.IntentRelations
	case containsAny(lower, "go to", "definition", "declare", "implement"):
		return models.IntentNavigation
	case containsAny(lower, "doc", "docs", "explain", "what does"):
		return models.IntentDocumentation
	case containsAny(lower, "example", "usage", "how to use"):
		return models.IntentExamples
	case containsAny(lower, "find", "where", "locate", "search"):
		return models.IntentSearch
	default:
		return models.IntentSearch
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
