package query

import (
	"context"

	"github.com/kdsearch/coderetriever/internal/fingerprint"
	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/kdsearch/coderetriever/internal/tokenizer"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// fakeBackend is an in-memory Backend used across this package's tests.
// It reimplements just enough of the store semantics (weighted token
// overlap instead of tsvector rank, linear scan instead of indexes) to
// exercise the orchestrator's control flow without a database.
type fakeBackend struct {
	symbols      map[string]models.Symbol
	chunks       map[string]models.CodeChunk
	chunkBySym   map[string]string
	edges        map[string][]models.SymbolEdge
	fingerprints map[string]models.SymbolFingerprintEntry
	embeddings   map[string]map[string][]float32 // model -> chunkID -> vector
	searchTokens map[string][]string             // symbolID -> indexed tokens
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		symbols:      make(map[string]models.Symbol),
		chunks:       make(map[string]models.CodeChunk),
		chunkBySym:   make(map[string]string),
		edges:        make(map[string][]models.SymbolEdge),
		fingerprints: make(map[string]models.SymbolFingerprintEntry),
		embeddings:   make(map[string]map[string][]float32),
		searchTokens: make(map[string][]string),
	}
}

func (b *fakeBackend) addSymbol(sym models.Symbol) {
	b.symbols[sym.ID] = sym
	b.searchTokens[sym.ID] = tokenizer.Tokenize(sym.Name + " " + sym.Signature + " " + sym.Documentation)
}

func (b *fakeBackend) addChunk(c models.CodeChunk) {
	b.chunks[c.ID] = c
	b.chunkBySym[c.SymbolID] = c.ID
}

func (b *fakeBackend) addEdge(e models.SymbolEdge) {
	b.edges[e.SourceSymbolID] = append(b.edges[e.SourceSymbolID], e)
}

func (b *fakeBackend) addFingerprint(e models.SymbolFingerprintEntry) {
	b.fingerprints[e.SymbolID] = e
}

func (b *fakeBackend) addEmbedding(model, chunkID string, vec []float32) {
	if b.embeddings[model] == nil {
		b.embeddings[model] = make(map[string][]float32)
	}
	b.embeddings[model][chunkID] = vec
}

func (b *fakeBackend) SparseSearch(ctx context.Context, tokens []string, limit int, opt store.SparseSearchOpts) ([]store.SparseHit, error) {
	var hits []store.SparseHit
	for id, bucket := range b.searchTokens {
		sym := b.symbols[id]
		if opt.Repository != "" && sym.Repository != opt.Repository {
			continue
		}
		if opt.Branch != "" && sym.Branch != opt.Branch {
			continue
		}
		if opt.Language != "" && sym.Language != opt.Language {
			continue
		}
		score := overlapScore(tokens, bucket)
		if score == 0 {
			continue
		}
		hits = append(hits, store.SparseHit{SymbolID: id, Score: score})
	}
	sortHitsDescending(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func overlapScore(query, bucket []string) float64 {
	set := make(map[string]struct{}, len(bucket))
	for _, t := range bucket {
		set[t] = struct{}{}
	}
	var score float64
	for _, t := range query {
		if _, ok := set[t]; ok {
			score++
		}
	}
	return score
}

func sortHitsDescending(hits []store.SparseHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func (b *fakeBackend) GetSymbolsByIDs(ctx context.Context, ids []string) ([]models.Symbol, error) {
	var out []models.Symbol
	for _, id := range ids {
		if s, ok := b.symbols[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (b *fakeBackend) GetSymbol(ctx context.Context, id string) (models.Symbol, bool, error) {
	s, ok := b.symbols[id]
	return s, ok, nil
}

func (b *fakeBackend) EdgesFrom(ctx context.Context, symbolID string) ([]models.SymbolEdge, error) {
	return b.edges[symbolID], nil
}

func (b *fakeBackend) GetChunkBySymbol(ctx context.Context, symbolID string) (models.CodeChunk, bool, error) {
	id, ok := b.chunkBySym[symbolID]
	if !ok {
		return models.CodeChunk{}, false, nil
	}
	return b.chunks[id], true, nil
}

func (b *fakeBackend) GetChunksByIDs(ctx context.Context, ids []string) ([]models.CodeChunk, error) {
	var out []models.CodeChunk
	for _, id := range ids {
		if c, ok := b.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (b *fakeBackend) VectorSearch(ctx context.Context, query []float32, limit int, opt store.VectorSearchOpts) ([]store.VectorHit, error) {
	byChunk := b.embeddings[opt.Model]
	var hits []store.VectorHit
	for chunkID, vec := range byChunk {
		c := b.chunks[chunkID]
		if opt.Repository != "" && c.Repository != opt.Repository {
			continue
		}
		if opt.Branch != "" && c.Branch != opt.Branch {
			continue
		}
		hits = append(hits, store.VectorHit{ChunkID: chunkID, CosineSimilarity: cosine(query, vec)})
	}
	sortVectorHitsDescending(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func sortVectorHitsDescending(hits []store.VectorHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].CosineSimilarity > hits[j-1].CosineSimilarity; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 40; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func (b *fakeBackend) HasEmbeddingModel(ctx context.Context, repository, branch, model string) (bool, error) {
	byChunk, ok := b.embeddings[model]
	if !ok {
		return false, nil
	}
	for chunkID := range byChunk {
		c := b.chunks[chunkID]
		if (repository == "" || c.Repository == repository) && (branch == "" || c.Branch == branch) {
			return true, nil
		}
	}
	return false, nil
}

func (b *fakeBackend) ListEmbeddingModels(ctx context.Context, repository, branch string) ([]string, error) {
	var out []string
	for model, byChunk := range b.embeddings {
		for chunkID := range byChunk {
			c := b.chunks[chunkID]
			if (repository == "" || c.Repository == repository) && (branch == "" || c.Branch == branch) {
				out = append(out, model)
				break
			}
		}
	}
	return out, nil
}

func (b *fakeBackend) EmbeddingModelDims(ctx context.Context, repository, branch, model string) (int, bool, error) {
	byChunk, ok := b.embeddings[model]
	if !ok {
		return 0, false, nil
	}
	for chunkID, vec := range byChunk {
		c := b.chunks[chunkID]
		if (repository == "" || c.Repository == repository) && (branch == "" || c.Branch == branch) {
			return len(vec), true, nil
		}
	}
	return 0, false, nil
}

func (b *fakeBackend) GetFingerprint(ctx context.Context, symbolID string) (models.SymbolFingerprintEntry, bool, error) {
	e, ok := b.fingerprints[symbolID]
	return e, ok, nil
}

func (b *fakeBackend) FindCandidatesByBands(ctx context.Context, repository, branch, language string, kind models.SymbolKind, fp models.SymbolFingerprintEntry, excludeSymbolID string) ([]store.FingerprintCandidate, error) {
	var out []store.FingerprintCandidate
	for id, e := range b.fingerprints {
		if id == excludeSymbolID {
			continue
		}
		if e.Repository != repository || e.Branch != branch {
			continue
		}
		if e.Language != language || e.Kind != kind {
			continue
		}
		if e.Band0 != fp.Band0 && e.Band1 != fp.Band1 && e.Band2 != fp.Band2 && e.Band3 != fp.Band3 {
			continue
		}
		out = append(out, store.FingerprintCandidate{SymbolID: id, Fingerprint: e.Fingerprint})
		if len(out) >= 200 {
			break
		}
	}
	return out, nil
}

// fingerprintOf is a small test helper so fixtures don't hand-compute bands.
func fingerprintOf(text string) fingerprint.Fingerprint {
	return fingerprint.Compute(tokenizer.Tokenize(text))
}
