// Package enrich adds LLM-generated context prefixes to chunks.
//
// For each chunk it asks a text-generation provider for a short sentence or
// two situating the chunk within its source article, stores the answer in
// chunk metadata, and prepends it to the chunk text. Enriched chunks embed
// noticeably better: the prefix disambiguates pronouns, bare references,
// and section-local jargon that the chunk text alone leaves dangling.
//
// Enrichment is best effort. A chunk whose provider call fails after
// retries is returned unchanged and marked skipped; one bad chunk never
// fails the batch.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nevindra/strata"
)

const contextPrompt = `Here is the full article:
<article>
%s
</article>

Here is a chunk from that article:
<chunk>
%s
</chunk>

Give a short succinct context (1-2 sentences) to situate this chunk within the
overall article for improving search retrieval. Focus on what section this is from
and what topic it covers. Answer only with the context, nothing else.`

const (
	// maxArticleRunes bounds the article text included in every request so
	// long documents stay inside the provider's input limits.
	maxArticleRunes  = 12000
	truncationMarker = "\n[... truncated]"

	// maxContextTokens caps the generated prefix length.
	maxContextTokens = 150
)

// Status is the per-chunk enrichment outcome.
type Status string

const (
	// StatusEnriched means the provider call succeeded and the prefix (when
	// non-empty) was stored and prepended.
	StatusEnriched Status = "enriched"
	// StatusSkipped means the chunk passed through unchanged; Err carries
	// the reason.
	StatusSkipped Status = "skipped"
)

// Result pairs a chunk with its enrichment outcome. Skipped chunks carry
// the original chunk untouched so the caller always has the full sequence.
// Duration is the wall time of the provider call, including retries.
type Result struct {
	Chunk    strata.Chunk
	Status   Status
	Err      error
	Duration time.Duration
}

// Enricher generates context prefixes for chunk batches using a bounded
// worker pool. Construct with New.
type Enricher struct {
	llm         strata.Provider
	workers     int
	callTimeout time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates an Enricher on top of the given provider. The provider is
// wrapped with transient-error retries (up to the configured attempt cap,
// exponential backoff between 1s and 60s) before use.
func New(provider strata.Provider, opts ...Option) *Enricher {
	e := &Enricher{
		workers:     DefaultWorkers,
		callTimeout: DefaultCallTimeout,
		maxAttempts: DefaultMaxAttempts,
		logger:      nopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	e.llm = strata.WithRetry(provider,
		strata.RetryMaxAttempts(e.maxAttempts),
		strata.RetryBaseDelay(retryFloor),
		strata.RetryMaxDelay(retryCeiling),
		strata.RetryLogger(e.logger),
	)
	return e
}

// Enrich processes all chunks and returns one Result per chunk in the
// original order. It always returns the full batch: provider failures and
// context cancellation degrade individual chunks to StatusSkipped instead
// of aborting.
//
// The article text is what each chunk is situated against; pass the full
// plain-text rendering of the source document.
func (e *Enricher) Enrich(ctx context.Context, chunks []strata.Chunk, articleText string) []Result {
	if len(chunks) == 0 {
		return nil
	}

	article := truncateArticle(articleText, maxArticleRunes)

	numWorkers := min(e.workers, len(chunks))
	work := make(chan int, len(chunks))
	done := make(chan struct{})
	results := make([]Result, len(chunks))

	e.logger.Info("enrichment: worker pool started",
		"chunk_count", len(chunks), "workers", numWorkers,
		"article_bytes", len(article))

	var enriched, skipped atomic.Int32

	for w := 0; w < numWorkers; w++ {
		go func() {
			for i := range work {
				if err := ctx.Err(); err != nil {
					results[i] = Result{Chunk: chunks[i], Status: StatusSkipped, Err: err}
					skipped.Add(1)
					continue
				}

				results[i] = e.enrichOne(ctx, chunks[i], article)
				if results[i].Status == StatusEnriched {
					enriched.Add(1)
				} else {
					skipped.Add(1)
					e.logger.Warn("enrichment: chunk skipped",
						"chunk_id", chunks[i].ID, "err", results[i].Err)
				}
			}
			done <- struct{}{}
		}()
	}

	for i := range chunks {
		work <- i
	}
	close(work)

	for w := 0; w < numWorkers; w++ {
		<-done
	}

	en, sk := enriched.Load(), skipped.Load()
	if sk > 0 {
		e.logger.Warn("enrichment completed with skips",
			"enriched", en, "skipped", sk, "total", len(chunks))
	} else {
		e.logger.Info("enrichment: all chunks enriched",
			"enriched", en, "total", len(chunks))
	}
	return results
}

// enrichOne issues the provider call for a single chunk and builds its
// Result. The input chunk is never modified; the enriched copy gets its
// own metadata map.
func (e *Enricher) enrichOne(ctx context.Context, chunk strata.Chunk, article string) Result {
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}

	start := time.Now()
	temperature := 0.0
	resp, err := e.llm.Chat(ctx, strata.ChatRequest{
		Messages: []strata.ChatMessage{
			strata.UserMessage(fmt.Sprintf(contextPrompt, article, chunk.Text)),
		},
		Temperature: &temperature,
		MaxTokens:   maxContextTokens,
	})
	if err != nil {
		return Result{Chunk: chunk, Status: StatusSkipped, Err: err, Duration: time.Since(start)}
	}

	prefix := strings.TrimSpace(resp.Content)
	out := chunk
	out.Meta = cloneMeta(chunk.Meta)
	out.Meta[strata.MetaContextualPrefix] = prefix
	if prefix == "" {
		e.logger.Warn("enrichment: empty response", "chunk_id", chunk.ID)
	} else {
		out.Text = prefix + "\n\n" + chunk.Text
	}
	return Result{Chunk: out, Status: StatusEnriched, Duration: time.Since(start)}
}

// Chunks strips the outcome information and returns just the chunk
// sequence, enriched where enrichment succeeded.
func Chunks(results []Result) []strata.Chunk {
	chunks := make([]strata.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return chunks
}

// truncateArticle hard-cuts text to max runes and appends a marker so the
// model knows the article continues past what it sees.
func truncateArticle(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	return string(runes[:max]) + truncationMarker
}

func cloneMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
