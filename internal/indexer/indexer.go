// Package indexer drives the per-file ingestion pipeline: parse, chunk,
// build the sparse-search and fingerprint rows, persist them per file
// (each row family replaced in its own transaction), and enqueue freshly
// materialised chunks for embedding.
package indexer

import (
	"context"
	"runtime"
	"sync"

	"github.com/kdsearch/coderetriever/internal/chunker"
	"github.com/kdsearch/coderetriever/internal/fingerprint"
	"github.com/kdsearch/coderetriever/internal/searchbuilder"
	"github.com/kdsearch/coderetriever/pkg/models"
	"github.com/rs/zerolog/log"
)

// Store is the persistence seam the indexer depends on: one atomic
// replace call per row family, keyed to (repository, branch, filePath).
type Store interface {
	ReplaceFileSymbols(ctx context.Context, repository, branch, filePath string, symbols []models.Symbol) error
	ReplaceFileEdges(ctx context.Context, repository, branch, filePath string, edges []models.SymbolEdge) error
	ReplaceFileChunks(ctx context.Context, repository, branch, filePath string, chunks []models.CodeChunk) error
	ReplaceFileSearchEntries(ctx context.Context, repository, branch, filePath string, entries []models.SymbolSearchEntry) error
	ReplaceFileFingerprints(ctx context.Context, repository, branch, filePath string, entries []models.SymbolFingerprintEntry) error
}

// Enqueuer hands freshly (re)indexed chunk ids to the embedding job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, repository, branch, commit string, chunkIDs []string) error
}

// Indexer owns the parse -> chunk -> persist -> enqueue pipeline for one
// repository/branch/commit at a time.
type Indexer struct {
	Store              Store
	Parser             models.Parser
	Chunker            *chunker.Chunker
	SearchBuilder      *searchbuilder.Builder
	FingerprintBuilder *fingerprint.Builder
	Enqueuer           Enqueuer

	// Concurrency bounds the file-processing worker pool; zero means
	// runtime.NumCPU(), capped at 8 so a large initial index doesn't
	// saturate the embedding provider's rate limits downstream.
	Concurrency int
}

// New constructs an Indexer from its collaborators.
func New(s Store, p models.Parser, c *chunker.Chunker, sb *searchbuilder.Builder, fb *fingerprint.Builder, eq Enqueuer, concurrency int) *Indexer {
	return &Indexer{
		Store: s, Parser: p, Chunker: c, SearchBuilder: sb, FingerprintBuilder: fb,
		Enqueuer: eq, Concurrency: concurrency,
	}
}

func (ix *Indexer) workerCount() int {
	if ix.Concurrency > 0 {
		return ix.Concurrency
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	return n
}

// Run fans a file-change stream for one (repository, branch, commit) out
// across a bounded worker pool, materialising every changed file before
// returning. The first worker error is returned, but workers already in
// flight are left to finish rather than abandoning in-progress per-file
// transactions.
func (ix *Indexer) Run(ctx context.Context, repository, branch, commit string, changes []models.FileChange, blobs models.BlobReader) error {
	numWorkers := ix.workerCount()
	log.Info().Str("repository", repository).Str("branch", branch).
		Int("files", len(changes)).Int("workers", numWorkers).Msg("indexing started")

	workChan := make(chan models.FileChange, numWorkers*2)
	errOnce := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fc := range workChan {
				if err := ix.processChange(ctx, blobs, repository, branch, commit, fc); err != nil {
					select {
					case errOnce <- err:
					default:
					}
					log.Error().Err(err).Str("path", fc.Path).Msg("indexing: file processing failed")
				}
			}
		}()
	}

loop:
	for _, fc := range changes {
		select {
		case workChan <- fc:
		case <-ctx.Done():
			break loop
		}
	}
	close(workChan)
	wg.Wait()

	select {
	case err := <-errOnce:
		return err
	default:
	}
	return ctx.Err()
}

// processChange applies one file-change to the store: a delete clears
// every row family for the path, anything else re-parses and replaces.
func (ix *Indexer) processChange(ctx context.Context, blobs models.BlobReader, repository, branch, commit string, fc models.FileChange) error {
	if fc.ChangeType == models.ChangeDeleted {
		return ix.clearPath(ctx, repository, branch, fc.Path)
	}

	content, err := blobs.ReadBlob(repository, commit, fc.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", fc.Path).Msg("indexing: failed to read blob, skipping")
		return nil
	}

	pf, err := ix.Parser.ParseFile(repository, branch, commit, fc.Path, content)
	if err != nil {
		log.Warn().Err(err).Str("path", fc.Path).Msg("indexing: parse failed, skipping")
		return nil
	}
	if pf == nil {
		return nil
	}

	chunked := ix.Chunker.Chunk(pf)
	if !chunked.Success {
		log.Warn().Str("path", fc.Path).Str("reason", chunked.Error).Msg("indexing: chunking failed, skipping")
		return nil
	}
	entries := ix.SearchBuilder.Build(pf)
	fps := ix.FingerprintBuilder.BuildEntries(pf)

	if err := ix.Store.ReplaceFileEdges(ctx, repository, branch, fc.Path, pf.Edges); err != nil {
		return err
	}
	if err := ix.Store.ReplaceFileChunks(ctx, repository, branch, fc.Path, chunked.Chunks); err != nil {
		return err
	}
	if err := ix.Store.ReplaceFileSearchEntries(ctx, repository, branch, fc.Path, entries); err != nil {
		return err
	}
	if err := ix.Store.ReplaceFileFingerprints(ctx, repository, branch, fc.Path, fps); err != nil {
		return err
	}
	if err := ix.Store.ReplaceFileSymbols(ctx, repository, branch, fc.Path, pf.Symbols); err != nil {
		return err
	}

	if ix.Enqueuer != nil {
		chunkIDs := make([]string, len(chunked.Chunks))
		for i, c := range chunked.Chunks {
			chunkIDs[i] = c.ID
		}
		if err := ix.Enqueuer.Enqueue(ctx, repository, branch, commit, chunkIDs); err != nil {
			return err
		}
	}

	log.Info().Str("path", fc.Path).Int("symbols", len(pf.Symbols)).
		Int("chunks", len(chunked.Chunks)).Msg("indexing: file replaced")
	return nil
}

func (ix *Indexer) clearPath(ctx context.Context, repository, branch, path string) error {
	if err := ix.Store.ReplaceFileEdges(ctx, repository, branch, path, nil); err != nil {
		return err
	}
	if err := ix.Store.ReplaceFileChunks(ctx, repository, branch, path, nil); err != nil {
		return err
	}
	if err := ix.Store.ReplaceFileSearchEntries(ctx, repository, branch, path, nil); err != nil {
		return err
	}
	if err := ix.Store.ReplaceFileFingerprints(ctx, repository, branch, path, nil); err != nil {
		return err
	}
	if err := ix.Store.ReplaceFileSymbols(ctx, repository, branch, path, nil); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("indexing: file removed")
	return nil
}
