package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// ReplaceFileSearchEntries atomically swaps every sparse-search row for
// one (repository, branch, filePath)'s symbols.
func (s *Store) ReplaceFileSearchEntries(ctx context.Context, repository, branch, filePath string, entries []models.SymbolSearchEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const del = `
		DELETE FROM symbol_search
		WHERE symbol_id IN (
			SELECT id FROM symbols WHERE repository = $1 AND branch = $2 AND file_path = $3
		)`
	if _, err := tx.Exec(ctx, del, repository, branch, filePath); err != nil {
		return err
	}

	const ins = `
		INSERT INTO symbol_search (
			symbol_id, repository, branch, commit, name_tokens, signature_tokens,
			doc_tokens, literal_tokens, snippet
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(ins, e.SymbolID, e.Repository, e.Branch, e.Commit, e.NameTokens, e.SignatureTokens, e.DocTokens, e.LiteralTokens, e.Snippet)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SparseHit is one ranked result from the weighted tsvector search.
type SparseHit struct {
	SymbolID string
	Snippet  string
	Score    float64
}

// SparseSearchOpts narrows a sparse search to a repository slice.
type SparseSearchOpts struct {
	Repository string
	Branch     string
	Language   string
}

// SparseSearch ranks symbols by the weighted tsvector built over their
// name/signature/documentation/literal token buckets, per spec §5's
// fast-profile scoring. tokens are pre-tokenized by the caller (the same
// tokenizer used at index time) so the 'simple' dictionary in the
// generated column matches without stemming surprises.
func (s *Store) SparseSearch(ctx context.Context, tokens []string, limit int, opt SparseSearchOpts) ([]SparseHit, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	tsq := strings.Join(tokens, " | ")

	args := []any{tsq}
	where := "ts_fielded @@ to_tsquery('simple', $1)"
	ai := 2
	if opt.Repository != "" {
		where += " AND repository = $" + itoa(ai)
		args = append(args, opt.Repository)
		ai++
	}
	if opt.Branch != "" {
		where += " AND branch = $" + itoa(ai)
		args = append(args, opt.Branch)
		ai++
	}
	if opt.Language != "" {
		where += ` AND symbol_id IN (SELECT id FROM symbols WHERE language = $` + itoa(ai) + `)`
		args = append(args, opt.Language)
		ai++
	}
	args = append(args, limit)

	q := `
		SELECT symbol_id, snippet, ts_rank_cd(ts_fielded, to_tsquery('simple', $1)) AS score
		FROM symbol_search
		WHERE ` + where + `
		ORDER BY score DESC
		LIMIT $` + itoa(ai)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SparseHit
	for rows.Next() {
		var h SparseHit
		if err := rows.Scan(&h.SymbolID, &h.Snippet, &h.Score); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
