package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// ReplaceFileEdges atomically swaps every edge row whose source symbol
// belongs to one (repository, branch, filePath).
func (s *Store) ReplaceFileEdges(ctx context.Context, repository, branch, filePath string, edges []models.SymbolEdge) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const del = `
		DELETE FROM symbol_edges
		WHERE source_symbol_id IN (
			SELECT id FROM symbols WHERE repository = $1 AND branch = $2 AND file_path = $3
		)`
	if _, err := tx.Exec(ctx, del, repository, branch, filePath); err != nil {
		return err
	}

	const ins = `
		INSERT INTO symbol_edges (
			id, repository, branch, commit, source_symbol_id, target_symbol_id, target_qualified, kind
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	batch := &pgx.Batch{}
	for _, e := range edges {
		batch.Queue(ins, e.ID, e.Repository, e.Branch, e.Commit, e.SourceSymbolID, e.TargetSymbolID, e.TargetQualified, string(e.Kind))
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

// EdgesFrom returns every outgoing edge for a symbol, used by the query
// orchestrator's relations intent and fast-profile edge expansion.
func (s *Store) EdgesFrom(ctx context.Context, symbolID string) ([]models.SymbolEdge, error) {
	const q = `
		SELECT id, repository, branch, commit, source_symbol_id, target_symbol_id, target_qualified, kind
		FROM symbol_edges WHERE source_symbol_id = $1`
	rows, err := s.pool.Query(ctx, q, symbolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// EdgesTo returns every incoming edge for a symbol.
func (s *Store) EdgesTo(ctx context.Context, symbolID string) ([]models.SymbolEdge, error) {
	const q = `
		SELECT id, repository, branch, commit, source_symbol_id, target_symbol_id, target_qualified, kind
		FROM symbol_edges WHERE target_symbol_id = $1`
	rows, err := s.pool.Query(ctx, q, symbolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows pgx.Rows) ([]models.SymbolEdge, error) {
	var out []models.SymbolEdge
	for rows.Next() {
		var e models.SymbolEdge
		var kind string
		if err := rows.Scan(&e.ID, &e.Repository, &e.Branch, &e.Commit, &e.SourceSymbolID, &e.TargetSymbolID, &e.TargetQualified, &kind); err != nil {
			return nil, err
		}
		e.Kind = models.EdgeKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}
