package store

import (
	"context"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// UpsertRepository records or refreshes a repository's identity. The
// version-control collaborator owns repository existence; the store just
// mirrors it so branches have a parent row to reference.
func (s *Store) UpsertRepository(ctx context.Context, r models.Repository) error {
	const q = `
		INSERT INTO repositories (name, remote_url, default_branch)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			remote_url     = EXCLUDED.remote_url,
			default_branch = EXCLUDED.default_branch`
	_, err := s.pool.Exec(ctx, q, r.Name, r.RemoteURL, r.DefaultBranch)
	return err
}

// UpsertBranch records or advances a branch's indexing state.
func (s *Store) UpsertBranch(ctx context.Context, b models.Branch) error {
	const q = `
		INSERT INTO branches (repository, name, head_commit, index_state, indexed_commit_sha)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (repository, name) DO UPDATE SET
			head_commit         = EXCLUDED.head_commit,
			index_state         = EXCLUDED.index_state,
			indexed_commit_sha  = EXCLUDED.indexed_commit_sha`
	_, err := s.pool.Exec(ctx, q, b.Repository, b.Name, b.HeadCommit, string(b.IndexState), b.IndexedCommitSha)
	return err
}

// ListRepositories returns every known repository, per spec §6's
// repository-discovery endpoint.
func (s *Store) ListRepositories(ctx context.Context) ([]models.Repository, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, remote_url, default_branch FROM repositories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Repository
	for rows.Next() {
		var r models.Repository
		if err := rows.Scan(&r.Name, &r.RemoteURL, &r.DefaultBranch); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListBranches returns every tracked branch for a repository, per spec
// §6's branch-discovery endpoint.
func (s *Store) ListBranches(ctx context.Context, repository string) ([]models.Branch, error) {
	const q = `
		SELECT repository, name, head_commit, index_state, indexed_commit_sha
		FROM branches
		WHERE repository = $1
		ORDER BY name`
	rows, err := s.pool.Query(ctx, q, repository)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Branch
	for rows.Next() {
		var b models.Branch
		var state string
		if err := rows.Scan(&b.Repository, &b.Name, &b.HeadCommit, &state, &b.IndexedCommitSha); err != nil {
			return nil, err
		}
		b.IndexState = models.IndexState(state)
		out = append(out, b)
	}
	return out, rows.Err()
}
