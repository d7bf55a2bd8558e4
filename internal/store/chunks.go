package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// ReplaceFileChunks atomically swaps every code chunk for one
// (repository, branch, filePath).
func (s *Store) ReplaceFileChunks(ctx context.Context, repository, branch, filePath string, chunks []models.CodeChunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const del = `DELETE FROM code_chunks WHERE repository = $1 AND branch = $2 AND file_path = $3`
	if _, err := tx.Exec(ctx, del, repository, branch, filePath); err != nil {
		return err
	}

	const ins = `
		INSERT INTO code_chunks (
			id, repository, branch, commit, file_path, symbol_id, symbol_name, symbol_kind,
			start_line, end_line, chunk_start_line, chunk_end_line, content, language,
			token_count, parent_symbol_name, signature, documentation, content_hash
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(ins,
			c.ID, c.Repository, c.Branch, c.Commit, c.FilePath, c.SymbolID, c.SymbolName, string(c.SymbolKind),
			c.StartLine, c.EndLine, c.ChunkStartLine, c.ChunkEndLine, c.Content, c.Language,
			c.TokenCount, c.ParentSymbolName, c.Signature, c.Documentation, c.ContentHash,
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

// GetChunksByIDs fetches code chunks for a set of ids.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]models.CodeChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
		SELECT id, repository, branch, commit, file_path, symbol_id, symbol_name, symbol_kind,
		       start_line, end_line, chunk_start_line, chunk_end_line, content, language,
		       token_count, parent_symbol_name, signature, documentation, content_hash
		FROM code_chunks WHERE id = ANY($1)`
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CodeChunk
	for rows.Next() {
		var c models.CodeChunk
		var kind string
		if err := rows.Scan(
			&c.ID, &c.Repository, &c.Branch, &c.Commit, &c.FilePath, &c.SymbolID, &c.SymbolName, &kind,
			&c.StartLine, &c.EndLine, &c.ChunkStartLine, &c.ChunkEndLine, &c.Content, &c.Language,
			&c.TokenCount, &c.ParentSymbolName, &c.Signature, &c.Documentation, &c.ContentHash,
		); err != nil {
			return nil, err
		}
		c.SymbolKind = models.SymbolKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChunkBySymbol fetches the chunk materialised for a given symbol, if
// any was emitted (non-chunk-eligible kinds never have one).
func (s *Store) GetChunkBySymbol(ctx context.Context, symbolID string) (models.CodeChunk, bool, error) {
	const q = `
		SELECT id, repository, branch, commit, file_path, symbol_id, symbol_name, symbol_kind,
		       start_line, end_line, chunk_start_line, chunk_end_line, content, language,
		       token_count, parent_symbol_name, signature, documentation, content_hash
		FROM code_chunks WHERE symbol_id = $1 LIMIT 1`
	var c models.CodeChunk
	var kind string
	err := s.pool.QueryRow(ctx, q, symbolID).Scan(
		&c.ID, &c.Repository, &c.Branch, &c.Commit, &c.FilePath, &c.SymbolID, &c.SymbolName, &kind,
		&c.StartLine, &c.EndLine, &c.ChunkStartLine, &c.ChunkEndLine, &c.Content, &c.Language,
		&c.TokenCount, &c.ParentSymbolName, &c.Signature, &c.Documentation, &c.ContentHash,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.CodeChunk{}, false, nil
		}
		return models.CodeChunk{}, false, err
	}
	return c, true, nil
}
