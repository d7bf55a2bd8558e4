package fixtures

import "testing"

func TestShouldSkip(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/project/main.go", false},
		{"/project/vendor/lib.go", true},
		{"/project/.git/config", true},
		{"/project/image.png", true},
		{"/project/README.md", false},
	}
	for _, c := range cases {
		if got := shouldSkip(c.path); got != c.want {
			t.Errorf("shouldSkip(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestGuessLanguage(t *testing.T) {
	cases := map[string]string{
		"main.go":     "go",
		"script.py":   "python",
		"app.ts":      "typescript",
		"config.yaml": "yaml",
	}
	for path, want := range cases {
		if got := GuessLanguage(path); got != want {
			t.Errorf("GuessLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}
