package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kdsearch/coderetriever/internal/fingerprint"
	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/kdsearch/coderetriever/internal/tokenizer"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// similarOutcome mirrors hybridOutcome's shape for the similar-intent
// path, which never touches the embedding rerank machinery.
type similarOutcome struct {
	results   []models.SearchResult
	errorCode string
	errorMsg  string
}

// runSimilar implements the Similar intent, spec §4.8.4. The query text
// is "similar:<symbolId>" optionally followed by a textual filter
// ("similar:<id> some filter text").
func runSimilar(ctx context.Context, backend Backend, req models.QueryRequest) (similarOutcome, error) {
	seedID, filter := parseSimilarQuery(req.Query)

	seed, found, err := backend.GetSymbol(ctx, seedID)
	if err != nil {
		return similarOutcome{}, err
	}
	if !found {
		return similarOutcome{errorCode: ErrSeedNotFound, errorMsg: "Seed symbol not found."}, nil
	}

	fp, found, err := backend.GetFingerprint(ctx, seedID)
	if err != nil {
		return similarOutcome{}, err
	}
	if !found {
		return similarOutcome{errorCode: ErrSeedFingerprintMissing, errorMsg: "Seed symbol has no fingerprint."}, nil
	}

	candidates, err := backend.FindCandidatesByBands(ctx, seed.Repository, seed.Branch, seed.Language, seed.Kind, fp, seedID)
	if err != nil {
		return similarOutcome{}, err
	}
	if len(candidates) == 0 {
		return similarOutcome{}, nil
	}

	var allowed map[string]struct{}
	if filter != "" {
		hits, err := backend.SparseSearch(ctx, tokenizer.Tokenize(filter), 200, searchScope(seed))
		if err != nil {
			return similarOutcome{}, err
		}
		allowed = make(map[string]struct{}, len(hits))
		sparseScore := make(map[string]float64, len(hits))
		for _, h := range hits {
			allowed[h.SymbolID] = struct{}{}
			sparseScore[h.SymbolID] = h.Score
		}
		candidates = filterCandidates(candidates, allowed)
		return rankSimilar(ctx, backend, fp.Fingerprint, candidates, sparseScore, req.MaxResults)
	}

	return rankSimilar(ctx, backend, fp.Fingerprint, candidates, nil, req.MaxResults)
}

func parseSimilarQuery(q string) (seedID, filter string) {
	rest := strings.TrimPrefix(strings.TrimSpace(q), "similar:")
	rest = strings.TrimSpace(rest)
	parts := strings.SplitN(rest, " ", 2)
	seedID = parts[0]
	if len(parts) == 2 {
		filter = strings.TrimSpace(parts[1])
	}
	return seedID, filter
}

func searchScope(seed models.Symbol) store.SparseSearchOpts {
	return store.SparseSearchOpts{Repository: seed.Repository, Branch: seed.Branch}
}

func filterCandidates(candidates []store.FingerprintCandidate, allowed map[string]struct{}) []store.FingerprintCandidate {
	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := allowed[c.SymbolID]; ok {
			out = append(out, c)
		}
	}
	return out
}

func rankSimilar(ctx context.Context, backend Backend, seedFP uint64, candidates []store.FingerprintCandidate, sparseScore map[string]float64, maxResults int) (similarOutcome, error) {
	type ranked struct {
		id       string
		distance int
		sparse   float64
	}
	rows := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, ranked{
			id:       c.SymbolID,
			distance: fingerprint.HammingDistance(seedFP, c.Fingerprint),
			sparse:   sparseScore[c.SymbolID],
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].distance != rows[j].distance {
			return rows[i].distance < rows[j].distance
		}
		if rows[i].sparse != rows[j].sparse {
			return rows[i].sparse > rows[j].sparse
		}
		return rows[i].id < rows[j].id
	})

	limit := maxResults
	if limit <= 0 {
		limit = 50
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	ids := make([]string, len(rows))
	scores := make(map[string]float64, len(rows))
	reasons := make(map[string][]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
		scores[r.id] = -float64(r.distance)
		reasons[r.id] = []string{"similarity:simhash", fmt.Sprintf("distance:%d", r.distance)}
	}

	results, err := hydrateMany(ctx, backend, ids, scores, reasons)
	if err != nil {
		return similarOutcome{}, err
	}
	return similarOutcome{results: results}, nil
}
