package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kdsearch/coderetriever/pkg/models"
	pgvector "github.com/pgvector/pgvector-go"
)

// UpsertEmbedding stores or replaces a chunk's vector for a given model.
func (s *Store) UpsertEmbedding(ctx context.Context, e models.Embedding) error {
	const q = `
		INSERT INTO embeddings (id, chunk_id, repository, branch, commit, vector, model, dims, generated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (chunk_id, model) DO UPDATE SET
			vector       = EXCLUDED.vector,
			dims         = EXCLUDED.dims,
			generated_at = EXCLUDED.generated_at`
	_, err := s.pool.Exec(ctx, q, e.ID, e.ChunkID, e.Repository, e.Branch, e.Commit, pgvector.NewVector(e.Vector), e.Model, e.Dims, e.GeneratedAt)
	return err
}

// VectorHit is one nearest-neighbour result, per spec §5's semantic
// profile.
type VectorHit struct {
	ChunkID         string
	CosineSimilarity float64
}

// VectorSearchOpts narrows a vector search to a repository/branch/model.
type VectorSearchOpts struct {
	Repository string
	Branch     string
	Model      string
}

// VectorSearch ranks chunks by cosine similarity to the query vector,
// restricted to embeddings generated by the same model (dims must
// already match by construction — the caller resolves the active model
// before querying).
func (s *Store) VectorSearch(ctx context.Context, query []float32, limit int, opt VectorSearchOpts) ([]VectorHit, error) {
	args := []any{pgvector.NewVector(query), opt.Model}
	where := "model = $2"
	ai := 3
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
	args = append(args, limit)

	q := `
		SELECT chunk_id, 1 - (vector <=> $1) AS similarity
		FROM embeddings
		WHERE ` + where + `
		ORDER BY vector <=> $1 ASC
		LIMIT $` + itoa(ai)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VectorHit
	for rows.Next() {
		var h VectorHit
		if err := rows.Scan(&h.ChunkID, &h.CosineSimilarity); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// HasEmbeddingModel reports whether any embedding exists for a model in
// a repository/branch, letting the orchestrator decide whether the
// semantic profile is viable before spending a round trip on it.
func (s *Store) HasEmbeddingModel(ctx context.Context, repository, branch, model string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM embeddings WHERE repository = $1 AND branch = $2 AND model = $3)`
	var ok bool
	err := s.pool.QueryRow(ctx, q, repository, branch, model).Scan(&ok)
	return ok, err
}

// ListEmbeddingModels returns the distinct models with at least one
// embedding in a repository/branch, letting the orchestrator resolve an
// unspecified model when exactly one is in use (spec §4.8.2 step 3).
func (s *Store) ListEmbeddingModels(ctx context.Context, repository, branch string) ([]string, error) {
	const q = `SELECT DISTINCT model FROM embeddings WHERE repository = $1 AND branch = $2 ORDER BY model`
	rows, err := s.pool.Query(ctx, q, repository, branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// EmbeddingModelDims returns the dimensionality embeddings were generated
// at for a model in a repository/branch, so the orchestrator can reject a
// query vector whose dims don't match without running a vector search
// that would otherwise fail in Postgres with a less legible error.
func (s *Store) EmbeddingModelDims(ctx context.Context, repository, branch, model string) (int, bool, error) {
	const q = `SELECT dims FROM embeddings WHERE repository = $1 AND branch = $2 AND model = $3 LIMIT 1`
	var dims int
	err := s.pool.QueryRow(ctx, q, repository, branch, model).Scan(&dims)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return dims, true, nil
}
