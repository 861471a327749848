// Package strata is a hierarchical document chunking engine for Go.
//
// It splits long-form structured documents (HTML articles, markdown) into
// bounded-size, context-preserving chunks suitable for embedding and
// LLM-based information extraction, then optionally enriches each chunk
// with a short LLM-generated situating prefix to improve retrieval quality.
//
// # Quick Start
//
// Split a document and enrich the chunks:
//
//	doc, err := fetch.FromURL(ctx, "https://example.com/article")
//	splitter, err := split.NewHierarchical(split.ForRAG())
//	chunks, err := splitter.SplitDocument(doc)
//
//	provider := openaicompat.New(apiKey, "gpt-4o-mini")
//	enricher := enrich.New(provider, enrich.Workers(4))
//	results := enricher.Enrich(ctx, chunks, doc.Text)
//
// Splitting is a pure in-memory transformation and always succeeds on valid
// config; enrichment degrades per chunk and never fails a batch.
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Chunker] — produce the ordered chunk sequence for one document
//   - [Provider] — text-generation backend used by the enrichment stage
//   - [ChunkStore] — chunk catalog persistence
//
// Providers compose with decorators: [WithRetry] adds transient-error
// backoff, [WithRateLimit] adds a client-side requests-per-minute budget.
//
// # Included Implementations
//
// Splitters: split (HTML and markdown hierarchies over a shared sliding
// window). Providers: provider/openaicompat (OpenAI-compatible APIs),
// provider/gemini (Google Gemini). Storage: store/sqlite (local),
// store/postgres. Loading: fetch (URL, HTML/markdown/PDF files).
//
// See the cmd/strata directory for the pipeline CLI.
package strata
