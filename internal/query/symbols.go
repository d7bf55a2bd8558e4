package query

import (
	"context"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// hydrate turns a bare symbol id plus score/reasons into a SearchResult,
// pulling in its chunk content when one was materialised (non-chunk-
// eligible kinds never have one, so content falls back to the signature).
func hydrate(ctx context.Context, backend Backend, sym models.Symbol, score float64, why []string) models.SearchResult {
	content := sym.Signature
	startLine, endLine := sym.Span.StartLine, sym.Span.EndLine

	if chunk, found, err := backend.GetChunkBySymbol(ctx, sym.ID); err == nil && found {
		content = chunk.Content
		startLine, endLine = chunk.ChunkStartLine, chunk.ChunkEndLine
	}

	if len(why) > 3 {
		why = why[:3]
	}

	return models.SearchResult{
		ID:            sym.ID,
		Type:          "symbol",
		Repository:    sym.Repository,
		Branch:        sym.Branch,
		FilePath:      sym.FilePath,
		Language:      sym.Language,
		SymbolName:    sym.Name,
		Qualified:     sym.QualifiedName,
		SymbolKind:    sym.Kind,
		Content:       content,
		StartLine:     startLine,
		EndLine:       endLine,
		Score:         score,
		Signature:     sym.Signature,
		Documentation: sym.Documentation,
		Why:           why,
	}
}

// hydrateMany preserves the order of ids, skipping ids whose symbol could
// not be resolved.
func hydrateMany(ctx context.Context, backend Backend, ids []string, scores map[string]float64, reasons map[string][]string) ([]models.SearchResult, error) {
	symbols, err := backend.GetSymbolsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Symbol, len(symbols))
	for _, s := range symbols {
		byID[s.ID] = s
	}

	out := make([]models.SearchResult, 0, len(ids))
	for _, id := range ids {
		sym, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, hydrate(ctx, backend, sym, scores[id], reasons[id]))
	}
	return out, nil
}
