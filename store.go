package strata

import "context"

// ChunkStore abstracts chunk catalog persistence. A store holds documents
// and their ordered chunk sequences; saving a document's chunks replaces any
// previous sequence for that document atomically.
type ChunkStore interface {
	// --- Documents ---
	SaveDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, id string) (Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// --- Chunks ---
	SaveChunks(ctx context.Context, documentID string, chunks []Chunk) error
	ListChunks(ctx context.Context, documentID string) ([]Chunk, error)

	// --- Lifecycle ---
	Init(ctx context.Context) error
	Close() error
}
