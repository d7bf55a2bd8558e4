package query

import (
	"context"
	"testing"

	"github.com/kdsearch/coderetriever/pkg/models"
)

func newOrchestrator(b *fakeBackend) *Orchestrator {
	return &Orchestrator{
		Backend:        b,
		DefaultProfile: models.ProfileFast,
		Compaction:     CompactionOptions{MaxResults: 50, MaxSnippetChars: 100000, MaxJSONBytes: 1 << 20},
	}
}

// Scenario 1 from spec §8: fast default query finds a symbol by name.
func TestFastDefaultFindsSymbol(t *testing.T) {
	b := newFakeBackend()
	b.addSymbol(models.Symbol{
		ID: "sym-1", Repository: "repo", Branch: "main", Name: "UserService",
		QualifiedName: "UserService", Kind: models.KindClass, Signature: "public class UserService",
	})

	o := newOrchestrator(b)
	resp := o.Query(context.Background(), models.QueryRequest{Query: "find UserService", Repository: "repo", Branch: "main"})

	if len(resp.Results) == 0 {
		t.Fatalf("expected non-empty results")
	}
	top := resp.Results[0]
	if top.SymbolName != "UserService" {
		t.Errorf("expected top result UserService, got %q", top.SymbolName)
	}
	found := false
	for _, w := range top.Why {
		if w == "match:user" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected why to contain match:user, got %v", top.Why)
	}
}

// Scenario 2 from spec §8: hybrid falls back to fast ordering when a repo
// has no embeddings.
func TestHybridFallsBackWithoutEmbeddings(t *testing.T) {
	b := newFakeBackend()
	b.addSymbol(models.Symbol{ID: "sym-1", Repository: "repo", Branch: "main", Name: "connection", Signature: "database connection pool"})
	b.addSymbol(models.Symbol{ID: "sym-2", Repository: "repo", Branch: "main", Name: "dbPool", Signature: "database connection helper"})

	req := models.QueryRequest{Query: "database connection", Repository: "repo", Branch: "main"}

	fastOrch := newOrchestrator(b)
	fastResp := fastOrch.Query(context.Background(), req)

	hybridOrch := newOrchestrator(b)
	req.ProfileOverride = models.ProfileHybrid
	hybridResp := hybridOrch.Query(context.Background(), req)

	if hybridResp.Fallback != FallbackHybridToFast {
		t.Errorf("expected fallback %q, got %q", FallbackHybridToFast, hybridResp.Fallback)
	}
	if hybridResp.EmbeddingUsed {
		t.Errorf("expected embeddingUsed=false")
	}
	if len(hybridResp.Results) != len(fastResp.Results) {
		t.Fatalf("expected same result count as fast profile")
	}
	for i := range fastResp.Results {
		if hybridResp.Results[i].ID != fastResp.Results[i].ID {
			t.Errorf("result order mismatch at %d: fast=%s hybrid=%s", i, fastResp.Results[i].ID, hybridResp.Results[i].ID)
		}
	}
}

// Scenario 3 from spec §8: hybrid rerank changes the sparse order using
// cosine similarity.
func TestHybridRerankChangesOrder(t *testing.T) {
	b := newFakeBackend()
	b.addSymbol(models.Symbol{ID: "symbol-a", Repository: "repo", Branch: "main", Name: "alpha thing", Signature: "alpha thing"})
	b.addSymbol(models.Symbol{ID: "symbol-b", Repository: "repo", Branch: "main", Name: "alpha gamma", Signature: "alpha gamma"})
	b.addSymbol(models.Symbol{ID: "symbol-c", Repository: "repo", Branch: "main", Name: "alpha delta", Signature: "alpha delta"})
	b.addChunk(models.CodeChunk{ID: "chunk-a", Repository: "repo", Branch: "main", SymbolID: "symbol-a", Content: "a"})
	b.addChunk(models.CodeChunk{ID: "chunk-b", Repository: "repo", Branch: "main", SymbolID: "symbol-b", Content: "b"})
	b.addChunk(models.CodeChunk{ID: "chunk-c", Repository: "repo", Branch: "main", SymbolID: "symbol-c", Content: "c"})
	b.addEmbedding("model-a", "chunk-a", []float32{0, 1})
	b.addEmbedding("model-a", "chunk-b", []float32{1, 0})
	b.addEmbedding("model-a", "chunk-c", []float32{-1, 0})

	o := newOrchestrator(b)
	o.DefaultEmbeddingModel = "model-a"
	resp := o.Query(context.Background(), models.QueryRequest{
		Query: "alpha", Repository: "repo", Branch: "main", ProfileOverride: models.ProfileHybrid,
		QueryEmbedding: &models.QueryEmbedding{Base64: encodeFloat32sForTest([]float32{1, 0}), Dims: 2, Model: "model-a"},
	})

	if !resp.EmbeddingUsed {
		t.Fatalf("expected embeddingUsed=true, metadata: %+v", resp)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	order := []string{resp.Results[0].SymbolName, resp.Results[1].SymbolName, resp.Results[2].SymbolName}
	want := []string{"alpha gamma", "alpha thing", "alpha delta"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected order %v, got %v", want, order)
			break
		}
	}
	hasRerankReason := false
	for _, w := range resp.Results[0].Why {
		if w == "rerank:semantic_boost" {
			hasRerankReason = true
		}
	}
	if !hasRerankReason {
		t.Errorf("expected top result why to contain rerank:semantic_boost, got %v", resp.Results[0].Why)
	}
}

// Scenario 4 from spec §8: similar intent on a missing seed.
func TestSimilarSeedMissing(t *testing.T) {
	b := newFakeBackend()
	o := newOrchestrator(b)
	resp := o.Query(context.Background(), models.QueryRequest{Query: "similar:does-not-exist", Repository: "repo"})

	if len(resp.Results) != 0 {
		t.Errorf("expected empty results, got %d", len(resp.Results))
	}
	if resp.ErrorCode != ErrSeedNotFound {
		t.Errorf("expected errorCode %q, got %q", ErrSeedNotFound, resp.ErrorCode)
	}
	if resp.Error == "" {
		t.Errorf("expected non-empty error message")
	}
	if resp.Intent != models.IntentSimilar {
		t.Errorf("expected intent Similar, got %q", resp.Intent)
	}
}

func TestSimilarRanksByHammingDistance(t *testing.T) {
	b := newFakeBackend()
	b.addSymbol(models.Symbol{ID: "seed", Repository: "repo", Branch: "main", Name: "seed"})
	b.addSymbol(models.Symbol{ID: "near", Repository: "repo", Branch: "main", Name: "near"})
	b.addSymbol(models.Symbol{ID: "far", Repository: "repo", Branch: "main", Name: "far"})

	b.addFingerprint(models.SymbolFingerprintEntry{SymbolID: "seed", Repository: "repo", Branch: "main", FingerprintKind: "simhash-64", Fingerprint: 0b0000, Band0: 1})
	b.addFingerprint(models.SymbolFingerprintEntry{SymbolID: "near", Repository: "repo", Branch: "main", FingerprintKind: "simhash-64", Fingerprint: 0b0001, Band0: 1})
	b.addFingerprint(models.SymbolFingerprintEntry{SymbolID: "far", Repository: "repo", Branch: "main", FingerprintKind: "simhash-64", Fingerprint: 0b1111, Band0: 1})

	o := newOrchestrator(b)
	resp := o.Query(context.Background(), models.QueryRequest{Query: "similar:seed", Repository: "repo"})

	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(resp.Results), resp.Results)
	}
	if resp.Results[0].SymbolName != "near" {
		t.Errorf("expected near to rank first, got %q", resp.Results[0].SymbolName)
	}
	if resp.Results[1].SymbolName != "far" {
		t.Errorf("expected far to rank second, got %q", resp.Results[1].SymbolName)
	}
}

// Scenario 7 from spec §8: response compaction keeps within budget.
func TestResponseCompactionStaysWithinBudget(t *testing.T) {
	b := newFakeBackend()
	for i := 0; i < 25; i++ {
		id := "sym-" + string(rune('a'+i))
		b.addSymbol(models.Symbol{ID: id, Repository: "repo", Branch: "main", Name: "widget", Signature: "widget"})
		b.addChunk(models.CodeChunk{ID: id + "-chunk", Repository: "repo", Branch: "main", SymbolID: id, Content: stringOfLen(1000)})
	}

	o := newOrchestrator(b)
	o.Compaction = CompactionOptions{MaxResults: 10, MaxSnippetChars: 8000, MaxJSONBytes: 16384}
	resp := o.Query(context.Background(), models.QueryRequest{Query: "widget", Repository: "repo", Branch: "main", MaxResults: 25})

	if len(resp.Results) > 10 {
		t.Errorf("expected at most 10 results, got %d", len(resp.Results))
	}
	total := 0
	for _, r := range resp.Results {
		total += len(r.Content)
	}
	if total > 8000 {
		t.Errorf("expected total content length <= 8000, got %d", total)
	}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
