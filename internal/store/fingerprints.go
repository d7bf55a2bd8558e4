package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// ReplaceFileFingerprints atomically swaps every SimHash fingerprint row
// for one (repository, branch, filePath)'s symbols.
func (s *Store) ReplaceFileFingerprints(ctx context.Context, repository, branch, filePath string, entries []models.SymbolFingerprintEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const del = `
		DELETE FROM symbol_fingerprints
		WHERE symbol_id IN (
			SELECT id FROM symbols WHERE repository = $1 AND branch = $2 AND file_path = $3
		)`
	if _, err := tx.Exec(ctx, del, repository, branch, filePath); err != nil {
		return err
	}

	const ins = `
		INSERT INTO symbol_fingerprints (
			symbol_id, repository, branch, commit, file_path, language, kind,
			fingerprint_kind, fingerprint, band0, band1, band2, band3
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(ins,
			e.SymbolID, e.Repository, e.Branch, e.Commit, e.FilePath, e.Language, string(e.Kind),
			e.FingerprintKind, int64(e.Fingerprint), int32(e.Band0), int32(e.Band1), int32(e.Band2), int32(e.Band3),
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

// FingerprintCandidate is a band-matched fingerprint row, a candidate
// for Hamming-distance ranking in the similar-symbol query path.
type FingerprintCandidate struct {
	SymbolID    string
	Fingerprint uint64
}

// FindCandidatesByBands returns every symbol sharing at least one of the
// four LSH bands with the query fingerprint, scoped to a repository,
// branch, language and kind and excluding the query symbol itself, capped
// at 200 rows per spec §4.8.4 step 3. This is the candidate generation
// step of similarity-by-fingerprint search: exact banding guarantees
// every symbol within the configured Hamming radius for a 4-band/16-bit-
// each split is found, at the cost of also returning some symbols that
// turn out to be far apart once ranked.
func (s *Store) FindCandidatesByBands(ctx context.Context, repository, branch, language string, kind models.SymbolKind, fp models.SymbolFingerprintEntry, excludeSymbolID string) ([]FingerprintCandidate, error) {
	const q = `
		SELECT DISTINCT symbol_id, fingerprint
		FROM symbol_fingerprints
		WHERE repository = $1 AND branch = $2
		  AND language = $3
		  AND kind = $4
		  AND fingerprint_kind = $5
		  AND symbol_id <> $6
		  AND (band0 = $7 OR band1 = $8 OR band2 = $9 OR band3 = $10)
		LIMIT 200`
	rows, err := s.pool.Query(ctx, q,
		repository, branch, language, string(kind), fp.FingerprintKind, excludeSymbolID,
		int32(fp.Band0), int32(fp.Band1), int32(fp.Band2), int32(fp.Band3),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FingerprintCandidate
	for rows.Next() {
		var c FingerprintCandidate
		var raw int64
		if err := rows.Scan(&c.SymbolID, &raw); err != nil {
			return nil, err
		}
		c.Fingerprint = uint64(raw)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetFingerprint fetches the fingerprint row for one symbol, used to
// seed a similar:<id> query.
func (s *Store) GetFingerprint(ctx context.Context, symbolID string) (models.SymbolFingerprintEntry, bool, error) {
	const q = `
		SELECT symbol_id, repository, branch, commit, file_path, language, kind,
		       fingerprint_kind, fingerprint, band0, band1, band2, band3
		FROM symbol_fingerprints WHERE symbol_id = $1`
	var e models.SymbolFingerprintEntry
	var kind string
	var raw int64
	var b0, b1, b2, b3 int32
	err := s.pool.QueryRow(ctx, q, symbolID).Scan(
		&e.SymbolID, &e.Repository, &e.Branch, &e.Commit, &e.FilePath, &e.Language, &kind,
		&e.FingerprintKind, &raw, &b0, &b1, &b2, &b3,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.SymbolFingerprintEntry{}, false, nil
		}
		return models.SymbolFingerprintEntry{}, false, err
	}
	e.Kind = models.SymbolKind(kind)
	e.Fingerprint = uint64(raw)
	e.Band0, e.Band1, e.Band2, e.Band3 = uint16(b0), uint16(b1), uint16(b2), uint16(b3)
	return e, true, nil
}
