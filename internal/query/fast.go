package query

import (
	"context"
	"sort"
	"strings"

	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/kdsearch/coderetriever/internal/tokenizer"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// scoredResult pairs a SearchResult with the symbol it was built from
// (empty for edge-expansion additions that have no hit symbol), since the
// member-boost pass needs each hit's parent symbol id.
type scoredResult struct {
	result   models.SearchResult
	parentID string
}

// runFast implements the Fast retrieval profile, spec §4.8.1. It is also
// the base every other profile starts from or falls back to.
func runFast(ctx context.Context, backend Backend, req models.QueryRequest) ([]models.SearchResult, error) {
	tokens := tokenizer.Tokenize(req.Query)
	limit := req.MaxResults * 2
	if limit <= 0 {
		limit = 100
	}

	hits, err := backend.SparseSearch(ctx, tokens, limit, store.SparseSearchOpts{
		Repository: req.Repository,
		Branch:     req.Branch,
		Language:   req.Language,
	})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	scoreByID := make(map[string]float64, len(hits))
	snippetByID := make(map[string]string, len(hits))
	for i, h := range hits {
		ids[i] = h.SymbolID
		scoreByID[h.SymbolID] = h.Score
		snippetByID[h.SymbolID] = h.Snippet
	}

	symbols, err := backend.GetSymbolsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Symbol, len(symbols))
	for _, s := range symbols {
		byID[s.ID] = s
	}

	rows := make([]scoredResult, 0, len(ids))
	for _, id := range ids {
		sym, ok := byID[id]
		if !ok {
			continue
		}
		why := matchReasons(tokens, sym, snippetByID[id])
		res := hydrate(ctx, backend, sym, scoreByID[id], why)
		rows = append(rows, scoredResult{result: res, parentID: sym.ParentSymbolID})
	}

	memberBoost(rows)
	rows = expandEdges(ctx, backend, rows, req.MaxResults)

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].result.Score > rows[j].result.Score })
	out := make([]models.SearchResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.result)
	}
	if req.MaxResults > 0 && len(out) > req.MaxResults {
		out = out[:req.MaxResults]
	}
	return out, nil
}

// matchReasons lists the query tokens present in a symbol's name,
// signature, documentation or the sparse-search snippet, up to three.
func matchReasons(tokens []string, sym models.Symbol, snippet string) []string {
	haystack := strings.ToLower(sym.Name + " " + sym.QualifiedName + " " + sym.Signature + " " + sym.Documentation + " " + snippet)
	var why []string
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			why = append(why, "match:"+t)
			if len(why) == 3 {
				break
			}
		}
	}
	return why
}

// memberBoost raises the score of hits that share a hit parent, spec
// §4.8.1 step 5. It mutates scores in place before edge expansion runs,
// so expansion sees boosted scores.
func memberBoost(rows []scoredResult) {
	scoreByID := make(map[string]float64, len(rows))
	for _, r := range rows {
		scoreByID[r.result.ID] = r.result.Score
	}
	for i, r := range rows {
		if r.parentID == "" {
			continue
		}
		parentScore, ok := scoreByID[r.parentID]
		if !ok {
			continue
		}
		siblings := 0
		for _, other := range rows {
			if other.parentID == r.parentID {
				siblings++
			}
		}
		if siblings >= 2 {
			rows[i].result.Score += 0.1 * parentScore
		}
	}
}

// expandEdges adds edge-connected targets for the top-10 hits, capped at
// maxResults/2 additions, spec §4.8.1 step 5.
func expandEdges(ctx context.Context, backend Backend, rows []scoredResult, maxResults int) []scoredResult {
	budget := maxResults / 2
	if budget <= 0 {
		return rows
	}

	ranked := append([]scoredResult(nil), rows...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].result.Score > ranked[j].result.Score })
	topK := ranked
	if len(topK) > 10 {
		topK = topK[:10]
	}

	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[r.result.ID] = struct{}{}
	}

	added := 0
	for _, top := range topK {
		if added >= budget {
			break
		}
		edges, err := backend.EdgesFrom(ctx, top.result.ID)
		if err != nil {
			continue
		}
		for _, e := range edges {
			if added >= budget {
				break
			}
			if e.TargetSymbolID == "" {
				continue
			}
			if _, dup := seen[e.TargetSymbolID]; dup {
				continue
			}
			sym, found, err := backend.GetSymbol(ctx, e.TargetSymbolID)
			if err != nil || !found {
				continue
			}
			seen[e.TargetSymbolID] = struct{}{}
			res := hydrate(ctx, backend, sym, 0.5*top.result.Score, []string{"edge:" + string(e.Kind)})
			rows = append(rows, scoredResult{result: res, parentID: sym.ParentSymbolID})
			added++
		}
	}
	return rows
}
