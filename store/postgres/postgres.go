// Package postgres implements strata.ChunkStore using PostgreSQL.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor injection;
// the caller creates and closes the pool. Connect builds and owns a pool for
// callers that just have a connection string.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/strata"
)

// Store implements strata.ChunkStore backed by PostgreSQL.
// Chunk metadata is stored as a JSONB column.
type Store struct {
	pool     *pgxpool.Pool
	ownsPool bool
}

var _ strata.ChunkStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect creates a Store with its own connection pool built from connString.
// The pool is closed by Close.
func Connect(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool, ownsPool: true}, nil
}

// Init creates all required tables and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			markup TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			metadata JSONB
		)`,

		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// SaveDocument inserts or updates a document record.
func (s *Store) SaveDocument(ctx context.Context, doc strata.Document) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, title, source, markup, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   source = EXCLUDED.source,
		   markup = EXCLUDED.markup,
		   content = EXCLUDED.content,
		   created_at = EXCLUDED.created_at`,
		doc.ID, doc.Title, doc.Source, doc.Markup, doc.Text, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save document: %w", err)
	}
	return nil
}

// GetDocument returns the document with the given ID, or an error wrapping
// strata.ErrNotFound when no such document exists.
func (s *Store) GetDocument(ctx context.Context, id string) (strata.Document, error) {
	var d strata.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, source, markup, content, created_at FROM documents WHERE id = $1`, id,
	).Scan(&d.ID, &d.Title, &d.Source, &d.Markup, &d.Text, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return strata.Document{}, fmt.Errorf("postgres: document %q: %w", id, strata.ErrNotFound)
	}
	if err != nil {
		return strata.Document{}, fmt.Errorf("postgres: get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns all documents ordered by creation time (newest first).
func (s *Store) ListDocuments(ctx context.Context) ([]strata.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, source, markup, content, created_at FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	defer rows.Close()

	var docs []strata.Document
	for rows.Next() {
		var d strata.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &d.Markup, &d.Text, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete document chunks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// SaveChunks replaces the chunk sequence for a document in one transaction.
func (s *Store) SaveChunks(ctx context.Context, documentID string, chunks []strata.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("postgres: delete previous chunks: %w", err)
	}

	for _, chunk := range chunks {
		var metaJSON *string
		if chunk.Meta != nil {
			data, _ := json.Marshal(chunk.Meta)
			v := string(data)
			metaJSON = &v
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (id, document_id, content, chunk_index, metadata)
			 VALUES ($1, $2, $3, $4, $5::jsonb)`,
			chunk.ID, documentID, chunk.Text, chunk.Index, metaJSON)
		if err != nil {
			return fmt.Errorf("postgres: insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// ListChunks returns a document's chunks in chunk_index order.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]strata.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, content, chunk_index, metadata
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []strata.Chunk
	for rows.Next() {
		var c strata.Chunk
		var metaJSON []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Index, &metaJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if metaJSON != nil {
			c.Meta = map[string]string{}
			_ = json.Unmarshal(metaJSON, &c.Meta)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Close closes the pool when this store created it; injected pools are left
// for their owner to close.
func (s *Store) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}
