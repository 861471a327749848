// Package sqlite implements strata.ChunkStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nevindra/strata"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing and row counts. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements strata.ChunkStore backed by a local SQLite file.
// Chunk metadata is stored as a JSON text column.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ strata.ChunkStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// The DSN enables WAL journaling plus a busy timeout, and the pool is capped
// at a single connection so concurrent writers serialize instead of hitting
// SQLITE_BUSY.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables and indexes.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			markup TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			metadata TEXT
		)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`)

	// FTS5 full-text index for keyword search over chunks.
	_, _ = s.db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(chunk_id UNINDEXED, content)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// SaveDocument inserts or replaces a document record.
func (s *Store) SaveDocument(ctx context.Context, doc strata.Document) error {
	start := time.Now()
	s.logger.Debug("sqlite: save document", "id", doc.ID, "title", doc.Title, "source", doc.Source)

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, title, source, markup, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Source, doc.Markup, doc.Text, doc.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: save document failed", "id", doc.ID, "error", err)
		return fmt.Errorf("save document: %w", err)
	}
	s.logger.Debug("sqlite: save document ok", "id", doc.ID, "duration", time.Since(start))
	return nil
}

// GetDocument returns the document with the given ID, or an error wrapping
// strata.ErrNotFound when no such document exists.
func (s *Store) GetDocument(ctx context.Context, id string) (strata.Document, error) {
	start := time.Now()
	s.logger.Debug("sqlite: get document", "id", id)

	var d strata.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, source, markup, content, created_at FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.Source, &d.Markup, &d.Text, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return strata.Document{}, fmt.Errorf("document %q: %w", id, strata.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("sqlite: get document failed", "id", id, "error", err)
		return strata.Document{}, fmt.Errorf("get document: %w", err)
	}
	s.logger.Debug("sqlite: get document ok", "id", id, "duration", time.Since(start))
	return d, nil
}

// ListDocuments returns all documents ordered by creation time (newest first).
func (s *Store) ListDocuments(ctx context.Context) ([]strata.Document, error) {
	start := time.Now()
	s.logger.Debug("sqlite: list documents")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source, markup, content, created_at FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		s.logger.Error("sqlite: list documents failed", "error", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []strata.Document
	for rows.Next() {
		var d strata.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &d.Markup, &d.Text, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	s.logger.Debug("sqlite: list documents ok", "count", len(docs), "duration", time.Since(start))
	return docs, rows.Err()
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	start := time.Now()
	s.logger.Debug("sqlite: delete document", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)`, id); err != nil {
		return fmt.Errorf("delete document fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: delete document commit failed", "id", id, "error", err)
		return err
	}
	s.logger.Debug("sqlite: delete document ok", "id", id, "duration", time.Since(start))
	return nil
}

// SaveChunks replaces the chunk sequence for a document in one transaction.
// Any chunks from a previous split of the same document are removed first, so
// a partial failure never leaves a mixed sequence behind.
func (s *Store) SaveChunks(ctx context.Context, documentID string, chunks []strata.Chunk) error {
	start := time.Now()
	s.logger.Debug("sqlite: save chunks", "doc_id", documentID, "chunks", len(chunks))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)`, documentID); err != nil {
		return fmt.Errorf("delete previous chunk fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete previous chunks: %w", err)
	}

	for _, chunk := range chunks {
		var metaJSON *string
		if chunk.Meta != nil {
			data, _ := json.Marshal(chunk.Meta)
			v := string(data)
			metaJSON = &v
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, content, chunk_index, metadata)
			 VALUES (?, ?, ?, ?, ?)`,
			chunk.ID, documentID, chunk.Text, chunk.Index, metaJSON,
		)
		if err != nil {
			s.logger.Error("sqlite: insert chunk failed", "chunk_id", chunk.ID, "doc_id", documentID, "error", err)
			return fmt.Errorf("insert chunk: %w", err)
		}
		// Keep the FTS index in sync.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks_fts (chunk_id, content) VALUES (?, ?)`,
			chunk.ID, chunk.Text,
		); err != nil {
			return fmt.Errorf("insert chunk fts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: save chunks commit failed", "doc_id", documentID, "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: save chunks ok", "doc_id", documentID, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// ListChunks returns a document's chunks in chunk_index order.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]strata.Chunk, error) {
	start := time.Now()
	s.logger.Debug("sqlite: list chunks", "doc_id", documentID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, chunk_index, metadata
		 FROM chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []strata.Chunk
	for rows.Next() {
		var c strata.Chunk
		var metaJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Index, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if metaJSON.Valid {
			c.Meta = map[string]string{}
			_ = json.Unmarshal([]byte(metaJSON.String), &c.Meta)
		}
		chunks = append(chunks, c)
	}
	s.logger.Debug("sqlite: list chunks ok", "doc_id", documentID, "count", len(chunks), "duration", time.Since(start))
	return chunks, rows.Err()
}

// ScoredChunk is a chunk with its full-text relevance score. Higher is more
// relevant.
type ScoredChunk struct {
	strata.Chunk
	Score float64 `json:"score"`
}

// SearchChunks performs full-text keyword search over stored chunk text
// using FTS5, sorted by relevance. A non-positive limit returns the top 10.
func (s *Store) SearchChunks(ctx context.Context, query string, limit int) ([]ScoredChunk, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 10
	}
	s.logger.Debug("sqlite: search chunks", "query", query, "limit", limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, c.content, c.chunk_index, c.metadata, f.rank
		 FROM chunks_fts f
		 JOIN chunks c ON c.id = f.chunk_id
		 WHERE chunks_fts MATCH ?
		 ORDER BY f.rank
		 LIMIT ?`, query, limit)
	if err != nil {
		s.logger.Error("sqlite: search chunks failed", "query", query, "error", err)
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		var metaJSON sql.NullString
		var rank float64
		if err := rows.Scan(&sc.ID, &sc.DocumentID, &sc.Text, &sc.Index, &metaJSON, &rank); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if metaJSON.Valid {
			sc.Meta = map[string]string{}
			_ = json.Unmarshal([]byte(metaJSON.String), &sc.Meta)
		}
		// FTS5 rank is negative (closer to 0 = better); flip the sign so
		// higher means more relevant.
		if rank < 0 {
			sc.Score = -rank
		}
		results = append(results, sc)
	}
	s.logger.Debug("sqlite: search chunks ok", "query", query, "hits", len(results), "duration", time.Since(start))
	return results, rows.Err()
}

// DB exposes the underlying connection for callers needing raw SQL access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}
