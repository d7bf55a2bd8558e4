package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kdsearch/coderetriever/internal/ai"
	"github.com/kdsearch/coderetriever/internal/chunker"
	"github.com/kdsearch/coderetriever/internal/config"
	"github.com/kdsearch/coderetriever/internal/embedqueue"
	"github.com/kdsearch/coderetriever/internal/fingerprint"
	"github.com/kdsearch/coderetriever/internal/fixtures"
	"github.com/kdsearch/coderetriever/internal/indexer"
	"github.com/kdsearch/coderetriever/internal/parse"
	"github.com/kdsearch/coderetriever/internal/searchbuilder"
	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/kdsearch/coderetriever/pkg/models"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("coderetriever-indexer", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	repo := cfg.RepoRoot
	repository := cfg.RepoURL
	if cfg.RepoURL != "" {
		var err error
		repo, err = cloneToTemp(cfg.RepoURL, cfg.GitRef, cfg.GithubToken)
		if err != nil {
			log.Fatalf("clone failed: %v", err)
		}
		defer func() {
			if err := os.RemoveAll(repo); err != nil {
				log.Printf("failed to remove temp directory %s: %v", repo, err)
			}
		}()
	} else {
		repository = filepath.Base(strings.TrimRight(repo, string(os.PathSeparator)))
	}

	branch := cfg.GitRef
	if branch == "" {
		branch = "main"
	}

	provider := strings.ToLower(cfg.Provider)
	log.Printf("using embedding provider: %s", provider)
	var providerCfg *ai.ProviderConfig
	switch provider {
	case "openai":
		providerCfg = &ai.ProviderConfig{
			APIKey: cfg.APIKey, Model: cfg.EmbedModel, Dim: cfg.Dim,
			ProjectID: cfg.ProjectID, Provider: ai.ProviderOpenAI,
		}
	case "vertexai":
		providerCfg = &ai.ProviderConfig{
			APIKey: cfg.APIKey, Model: cfg.EmbedModel, Dim: cfg.Dim,
			ProjectID: cfg.ProjectID, Location: cfg.Location, Provider: ai.ProviderVertexAI,
		}
	case "stub":
		providerCfg = &ai.ProviderConfig{Model: cfg.EmbedModel, Dim: cfg.Dim, Provider: ai.ProviderStub}
	default:
		log.Fatalf("unsupported provider: %s", provider)
	}

	ctx := context.Background()

	embProvider, err := ai.NewProvider(ctx, providerCfg)
	if err != nil {
		log.Fatal(err)
	}
	if embProvider.Dim() == 0 {
		log.Fatal("embedding dimension must be set")
	}

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	if err := st.Migrate(ctx, embProvider.Dim()); err != nil {
		log.Fatal(err)
	}

	if err := st.UpsertRepository(ctx, models.Repository{Name: repository, RemoteURL: cfg.RepoURL, DefaultBranch: branch}); err != nil {
		log.Fatal(err)
	}

	tree := &fixtures.LocalTree{RepoRoot: repo, Repository: repository, Branch: branch, Commit: cfg.GitRef}
	changes, err := tree.Walk()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("discovered %d files to index", len(changes))

	eq := embedqueue.New(st, cfg.EmbeddingsEnabled, embProvider.Model())

	ix := indexer.New(st, parse.New(), chunker.New(chunker.DefaultConfig()), searchbuilder.New(), fingerprint.NewBuilder(), eq, cfg.FileReadConcurrency)

	if err := ix.Run(ctx, repository, branch, cfg.GitRef, changes, tree); err != nil {
		log.Fatal(err)
	}

	if err := st.UpsertBranch(ctx, models.Branch{
		Repository: repository, Name: branch, HeadCommit: cfg.GitRef,
		IndexState: models.IndexCompleted, IndexedCommitSha: cfg.GitRef,
	}); err != nil {
		log.Fatal(err)
	}

	log.Printf("indexing complete for %s@%s", repository, branch)
}

func cloneToTemp(repoURL, ref, token string) (string, error) {
	dir, err := os.MkdirTemp("", "coderetriever-*")
	if err != nil {
		return "", err
	}
	url := repoURL
	if token != "" && strings.HasPrefix(url, "https://") {
		url = "https://" + token + ":x-oauth-basic@" + strings.TrimPrefix(url, "https://")
	}
	cmd := exec.Command("git", "clone", "--depth", "1", "--branch", ref, url, dir)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Printf("failed to remove temp directory %s: %v", dir, rmErr)
		}
		return "", fmt.Errorf("git clone: %w", err)
	}
	return dir, nil
}
