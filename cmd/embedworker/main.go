package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kdsearch/coderetriever/internal/ai"
	"github.com/kdsearch/coderetriever/internal/config"
	"github.com/kdsearch/coderetriever/internal/embedqueue"
	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("coderetriever-embedworker", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	if !cfg.EmbeddingsEnabled {
		log.Fatal("embeddings are disabled; set embeddings-enabled to run the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	provider := strings.ToLower(cfg.Provider)
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

	embProvider, err := ai.NewProvider(ctx, providerCfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := st.Migrate(ctx, embProvider.Dim()); err != nil {
		log.Fatal(err)
	}

	hostname, _ := os.Hostname()
	worker := &embedqueue.Worker{
		Jobs:        st,
		Chunks:      st,
		Embeddings:  st,
		Provider:    embProvider,
		WorkerID:    hostname,
		BatchSize:   cfg.EmbeddingJobsBatchSize,
		MaxAttempts: cfg.EmbeddingJobsMaxAttempts,
		StaleAfter:  time.Duration(cfg.EmbeddingJobsStaleMinutes) * time.Minute,
		PurgeAfter:  time.Duration(cfg.EmbeddingJobsPurgeDays) * 24 * time.Hour,
	}

	log.Printf("embedding worker %s starting, model=%s dim=%d", worker.WorkerID, embProvider.Model(), embProvider.Dim())
	if err := worker.Run(ctx, 5*time.Second); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
	log.Println("embedding worker shut down")
}
