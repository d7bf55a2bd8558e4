// Package fixtures turns a local working tree into the (models.FileChange,
// models.BlobReader) pair the indexer expects, for local demos and the
// indexer CLI. Real deployments wire a version-control collaborator
// (e.g. a git/GitHub client) instead; this is the filesystem-only stand-in.
package fixtures

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// LocalTree walks RepoRoot and presents every eligible file as an "added"
// FileChange, and resolves blob reads directly off disk.
type LocalTree struct {
	RepoRoot   string
	Repository string
	Branch     string
	Commit     string
}

// Walk lists every non-skipped file under RepoRoot as a FileChange.
func (t *LocalTree) Walk() ([]models.FileChange, error) {
	var out []models.FileChange
	err := godirwalk.Walk(t.RepoRoot, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de != nil && de.IsDir() {
				return nil
			}
			if shouldSkip(path) {
				return nil
			}
			rel, err := filepath.Rel(t.RepoRoot, path)
			if err != nil {
				rel = path
			}
			out = append(out, models.FileChange{
				Repository: t.Repository, Branch: t.Branch, Commit: t.Commit,
				Path: rel, ChangeType: models.ChangeAdded,
			})
			return nil
		},
	})
	return out, err
}

// ReadBlob implements models.BlobReader by reading the path relative to
// RepoRoot directly off disk, ignoring the commit (a local tree has only
// one version of each file at a time).
func (t *LocalTree) ReadBlob(repository, commit, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(t.RepoRoot, path))
}

// shouldSkip filters vendor, VCS, build-output and binary-asset paths out
// of the walk, the same exclusion list a source indexer applies before
// ever reading file content.
func shouldSkip(path string) bool {
	p := strings.ToLower(path)
	for _, dir := range skipDirs {
		if strings.Contains(p, dir) {
			return true
		}
	}
	switch filepath.Ext(p) {
	case ".png", ".jpg", ".jpeg", ".gif", ".pdf", ".webp", ".lock", ".zip", ".svg", ".exe", ".dll":
		return true
	}
	return false
}

var skipDirs = []string{
	"/vendor/", "/.git/", "/.terraform/", "/node_modules/", "/target/",
	"/build/", "/dist/", "/out/", "/bin/", "/obj/", "/.venv/", "/venv/",
	"/__pycache__/", "/.pytest_cache/", "/.gradle/", "/.m2/", "/.idea/",
	"/coverage/", "/.cache/",
}

// GuessLanguage maps a file extension to the language tag the parser
// collaborator would normally assign, for fixtures that don't carry their
// own language detection.
func GuessLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".md":
		return "markdown"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".sh":
		return "shell"
	case ".tf":
		return "terraform"
	default:
		return strings.TrimPrefix(filepath.Ext(path), ".")
	}
}
