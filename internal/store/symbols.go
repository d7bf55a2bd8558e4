package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// ReplaceFileSymbols atomically swaps every symbol row for one
// (repository, branch, filePath) to the given set in a single
// transaction, so readers never see a half-updated symbol set for the
// file. Edges, chunks, search entries and fingerprints are replaced in
// their own transactions.
func (s *Store) ReplaceFileSymbols(ctx context.Context, repository, branch, filePath string, symbols []models.Symbol) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const del = `DELETE FROM symbols WHERE repository = $1 AND branch = $2 AND file_path = $3`
	if _, err := tx.Exec(ctx, del, repository, branch, filePath); err != nil {
		return err
	}

	const ins = `
		INSERT INTO symbols (
			id, repository, branch, commit, file_path, name, qualified_name, kind,
			language, start_line, start_col, end_line, end_col, signature,
			documentation, modifiers, parent_symbol_id, literal_tokens
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	batch := &pgx.Batch{}
	for _, sym := range symbols {
		batch.Queue(ins,
			sym.ID, sym.Repository, sym.Branch, sym.Commit, sym.FilePath, sym.Name,
			sym.QualifiedName, string(sym.Kind), sym.Language,
			sym.Span.StartLine, sym.Span.StartCol, sym.Span.EndLine, sym.Span.EndCol,
			sym.Signature, sym.Documentation, sym.Modifiers, sym.ParentSymbolID, sym.LiteralTokens,
		)
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

// GetSymbol fetches one symbol by id.
func (s *Store) GetSymbol(ctx context.Context, id string) (models.Symbol, bool, error) {
	const q = `
		SELECT id, repository, branch, commit, file_path, name, qualified_name, kind,
		       language, start_line, start_col, end_line, end_col, signature,
		       documentation, modifiers, parent_symbol_id, literal_tokens
		FROM symbols WHERE id = $1`
	var sym models.Symbol
	var kind string
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&sym.ID, &sym.Repository, &sym.Branch, &sym.Commit, &sym.FilePath, &sym.Name,
		&sym.QualifiedName, &kind, &sym.Language,
		&sym.Span.StartLine, &sym.Span.StartCol, &sym.Span.EndLine, &sym.Span.EndCol,
		&sym.Signature, &sym.Documentation, &sym.Modifiers, &sym.ParentSymbolID, &sym.LiteralTokens,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Symbol{}, false, nil
		}
		return models.Symbol{}, false, err
	}
	sym.Kind = models.SymbolKind(kind)
	return sym, true, nil
}

// GetSymbolsByIDs fetches symbols matching the given ids, in no
// guaranteed order; callers that need positional correspondence with
// their input should re-sort by ID.
func (s *Store) GetSymbolsByIDs(ctx context.Context, ids []string) ([]models.Symbol, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
		SELECT id, repository, branch, commit, file_path, name, qualified_name, kind,
		       language, start_line, start_col, end_line, end_col, signature,
		       documentation, modifiers, parent_symbol_id, literal_tokens
		FROM symbols WHERE id = ANY($1)`
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Symbol
	for rows.Next() {
		var sym models.Symbol
		var kind string
		if err := rows.Scan(
			&sym.ID, &sym.Repository, &sym.Branch, &sym.Commit, &sym.FilePath, &sym.Name,
			&sym.QualifiedName, &kind, &sym.Language,
			&sym.Span.StartLine, &sym.Span.StartCol, &sym.Span.EndLine, &sym.Span.EndCol,
			&sym.Signature, &sym.Documentation, &sym.Modifiers, &sym.ParentSymbolID, &sym.LiteralTokens,
		); err != nil {
			return nil, err
		}
		sym.Kind = models.SymbolKind(kind)
		out = append(out, sym)
	}
	return out, rows.Err()
}
