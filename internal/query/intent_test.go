package query

import (
	"testing"

	"github.com/kdsearch/coderetriever/pkg/models"
)

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		query string
		want  models.Intent
	}{
		{"similar:sym-123", models.IntentSimilar},
		{"  similar:sym-123 filter", models.IntentSimilar},
		{"find UserService", models.IntentSearch},
		{"where is the connection pool", models.IntentSearch},
		{"go to definition of Login", models.IntentNavigation},
		{"who calls Login", models.IntentRelations},
		{"explain what this does", models.IntentDocumentation},
		{"example usage of the client", models.IntentExamples},
		{"something with no keywords at all", models.IntentSearch},
	}
	for _, c := range cases {
		if got := detectIntent(c.query); got != c.want {
			t.Errorf("detectIntent(%q) = %q, want %q", c.query, got, c.want)
		}
	}
}
