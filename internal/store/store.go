// Package store is the PostgreSQL + pgvector persistence layer for the
// retrieval engine: symbols, edges, chunks, the sparse search index,
// SimHash fingerprints, embeddings and the embedding job queue.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbpool is the narrow seam Store talks to: the subset of
// *pgxpool.Pool's method set the query code in this package actually
// calls. Tests substitute a pgxmock pool here instead of a live
// database (spec §9's "narrower seams" guidance).
type dbpool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store wraps a pooled PostgreSQL connection.
type Store struct {
	pool dbpool
}

// New connects to the database URL and returns a ready Store.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Migrate applies the full schema, including the pgvector column sized
// to dims.
func (s *Store) Migrate(ctx context.Context, dims int) error {
	_, err := s.pool.Exec(ctx, schema(dims))
	return err
}

func schema(dims int) string {
	return `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS repositories (
  name           TEXT PRIMARY KEY,
  remote_url     TEXT NOT NULL DEFAULT '',
  default_branch TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS branches (
  repository         TEXT NOT NULL REFERENCES repositories(name) ON DELETE CASCADE,
  name               TEXT NOT NULL,
  head_commit        TEXT NOT NULL DEFAULT '',
  index_state        TEXT NOT NULL DEFAULT 'Pending',
  indexed_commit_sha TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (repository, name)
);

CREATE TABLE IF NOT EXISTS symbols (
  id              TEXT PRIMARY KEY,
  repository      TEXT NOT NULL,
  branch          TEXT NOT NULL,
  commit          TEXT NOT NULL,
  file_path       TEXT NOT NULL,
  name            TEXT NOT NULL,
  qualified_name  TEXT NOT NULL DEFAULT '',
  kind            TEXT NOT NULL,
  language        TEXT NOT NULL DEFAULT '',
  start_line      INT NOT NULL,
  start_col       INT NOT NULL DEFAULT 0,
  end_line        INT NOT NULL,
  end_col         INT NOT NULL DEFAULT 0,
  signature       TEXT NOT NULL DEFAULT '',
  documentation   TEXT NOT NULL DEFAULT '',
  modifiers       TEXT[] NOT NULL DEFAULT '{}',
  parent_symbol_id TEXT NOT NULL DEFAULT '',
  literal_tokens  TEXT[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS symbols_file_idx
  ON symbols (repository, branch, file_path);
CREATE INDEX IF NOT EXISTS symbols_parent_idx
  ON symbols (parent_symbol_id) WHERE parent_symbol_id <> '';

CREATE TABLE IF NOT EXISTS symbol_edges (
  id               TEXT PRIMARY KEY,
  repository       TEXT NOT NULL,
  branch           TEXT NOT NULL,
  commit           TEXT NOT NULL,
  source_symbol_id TEXT NOT NULL,
  target_symbol_id TEXT NOT NULL DEFAULT '',
  target_qualified TEXT NOT NULL DEFAULT '',
  kind             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS symbol_edges_source_idx
  ON symbol_edges (source_symbol_id);
CREATE INDEX IF NOT EXISTS symbol_edges_target_idx
  ON symbol_edges (target_symbol_id) WHERE target_symbol_id <> '';

CREATE TABLE IF NOT EXISTS code_chunks (
  id                 TEXT PRIMARY KEY,
  repository         TEXT NOT NULL,
  branch             TEXT NOT NULL,
  commit             TEXT NOT NULL,
  file_path          TEXT NOT NULL,
  symbol_id          TEXT NOT NULL,
  symbol_name        TEXT NOT NULL DEFAULT '',
  symbol_kind        TEXT NOT NULL DEFAULT '',
  start_line         INT NOT NULL,
  end_line           INT NOT NULL,
  chunk_start_line   INT NOT NULL,
  chunk_end_line     INT NOT NULL,
  content            TEXT NOT NULL,
  language           TEXT NOT NULL DEFAULT '',
  token_count        INT NOT NULL DEFAULT 0,
  parent_symbol_name TEXT NOT NULL DEFAULT '',
  signature          TEXT NOT NULL DEFAULT '',
  documentation      TEXT NOT NULL DEFAULT '',
  content_hash       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS code_chunks_file_idx
  ON code_chunks (repository, branch, file_path);
CREATE INDEX IF NOT EXISTS code_chunks_symbol_idx
  ON code_chunks (symbol_id);

CREATE TABLE IF NOT EXISTS symbol_search (
  symbol_id        TEXT PRIMARY KEY,
  repository       TEXT NOT NULL,
  branch           TEXT NOT NULL,
  commit           TEXT NOT NULL,
  name_tokens      TEXT[] NOT NULL DEFAULT '{}',
  signature_tokens TEXT[] NOT NULL DEFAULT '{}',
  doc_tokens       TEXT[] NOT NULL DEFAULT '{}',
  literal_tokens   TEXT[] NOT NULL DEFAULT '{}',
  snippet          TEXT NOT NULL DEFAULT '',
  ts_fielded tsvector GENERATED ALWAYS AS (
    setweight(to_tsvector('simple', array_to_string(name_tokens, ' ')), 'A') ||
    setweight(to_tsvector('simple', array_to_string(signature_tokens, ' ')), 'B') ||
    setweight(to_tsvector('simple', array_to_string(doc_tokens, ' ')), 'C') ||
    setweight(to_tsvector('simple', array_to_string(literal_tokens, ' ')), 'D')
  ) STORED
);

CREATE INDEX IF NOT EXISTS symbol_search_ts_gin
  ON symbol_search USING GIN (ts_fielded);
CREATE INDEX IF NOT EXISTS symbol_search_repo_idx
  ON symbol_search (repository, branch);

CREATE TABLE IF NOT EXISTS symbol_fingerprints (
  symbol_id        TEXT PRIMARY KEY,
  repository       TEXT NOT NULL,
  branch           TEXT NOT NULL,
  commit           TEXT NOT NULL,
  file_path        TEXT NOT NULL,
  language         TEXT NOT NULL DEFAULT '',
  kind             TEXT NOT NULL,
  fingerprint_kind TEXT NOT NULL,
  fingerprint      BIGINT NOT NULL,
  band0            INT NOT NULL,
  band1            INT NOT NULL,
  band2            INT NOT NULL,
  band3            INT NOT NULL
);

CREATE INDEX IF NOT EXISTS symbol_fingerprints_repo_idx
  ON symbol_fingerprints (repository, branch);
CREATE INDEX IF NOT EXISTS symbol_fingerprints_band0_idx
  ON symbol_fingerprints (repository, branch, band0);
CREATE INDEX IF NOT EXISTS symbol_fingerprints_band1_idx
  ON symbol_fingerprints (repository, branch, band1);
CREATE INDEX IF NOT EXISTS symbol_fingerprints_band2_idx
  ON symbol_fingerprints (repository, branch, band2);
CREATE INDEX IF NOT EXISTS symbol_fingerprints_band3_idx
  ON symbol_fingerprints (repository, branch, band3);

CREATE TABLE IF NOT EXISTS embeddings (
  id           TEXT PRIMARY KEY,
  chunk_id     TEXT NOT NULL,
  repository   TEXT NOT NULL,
  branch       TEXT NOT NULL,
  commit       TEXT NOT NULL,
  vector       vector` + dimsLiteral(dims) + `,
  model        TEXT NOT NULL,
  dims         INT NOT NULL,
  generated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS embeddings_chunk_model_uidx
  ON embeddings (chunk_id, model);
CREATE INDEX IF NOT EXISTS embeddings_vec_idx
  ON embeddings USING ivfflat (vector vector_cosine_ops) WITH (lists = 100);

CREATE TABLE IF NOT EXISTS embedding_jobs (
  id              TEXT PRIMARY KEY,
  repository      TEXT NOT NULL,
  branch          TEXT NOT NULL,
  commit          TEXT NOT NULL,
  target_kind     TEXT NOT NULL,
  target_id       TEXT NOT NULL,
  model           TEXT NOT NULL,
  dims            INT NOT NULL,
  status          TEXT NOT NULL,
  attempts        INT NOT NULL DEFAULT 0,
  next_attempt_at TIMESTAMPTZ,
  last_error      TEXT NOT NULL DEFAULT '',
  locked_at       TIMESTAMPTZ,
  locked_by       TEXT NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS embedding_jobs_target_uidx
  ON embedding_jobs (repository, branch, target_kind, target_id, model);
CREATE INDEX IF NOT EXISTS embedding_jobs_claim_idx
  ON embedding_jobs (status, next_attempt_at);
CREATE INDEX IF NOT EXISTS embedding_jobs_locked_idx
  ON embedding_jobs (locked_at) WHERE locked_at IS NOT NULL;
`
}

// dimsLiteral guards against a non-positive dims value collapsing the
// pgvector column to an invalid type parameter; 0 means "no fixed
// dimensionality yet" so the column is left unconstrained.
func dimsLiteral(dims int) string {
	if dims <= 0 {
		return ""
	}
	return "(" + itoa(dims) + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
