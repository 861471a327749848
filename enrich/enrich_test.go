package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nevindra/strata"
)

// mockContextProvider returns a canned context prefix, optionally failing
// for prompts that contain failOn.
type mockContextProvider struct {
	prefix string
	failOn string
	calls  atomic.Int32
}

func (m *mockContextProvider) Chat(_ context.Context, req strata.ChatRequest) (strata.ChatResponse, error) {
	m.calls.Add(1)
	if m.failOn != "" && strings.Contains(req.Messages[0].Content, m.failOn) {
		return strata.ChatResponse{}, fmt.Errorf("llm unavailable")
	}
	return strata.ChatResponse{Content: m.prefix}, nil
}

func (m *mockContextProvider) Name() string { return "mock-context" }

func testChunks(texts ...string) []strata.Chunk {
	chunks := make([]strata.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = strata.Chunk{
			ID:    fmt.Sprintf("c%d", i+1),
			Text:  text,
			Index: i,
			Meta:  map[string]string{strata.MetaSectionPath: "root"},
		}
	}
	return chunks
}

func TestEnrichPrependsPrefix(t *testing.T) {
	chunks := testChunks("Go is a programming language.", "Go supports concurrency.")
	provider := &mockContextProvider{prefix: "This is about Go."}

	e := New(provider, Workers(3))
	results := e.Enrich(context.Background(), chunks, "Full document about Go.")

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if r.Status != StatusEnriched {
			t.Errorf("results[%d].Status = %q, want enriched (err: %v)", i, r.Status, r.Err)
		}
		if !strings.HasPrefix(r.Chunk.Text, "This is about Go.\n\n") {
			t.Errorf("results[%d] text missing prefix: %q", i, r.Chunk.Text)
		}
		if r.Chunk.Meta[strata.MetaContextualPrefix] != "This is about Go." {
			t.Errorf("results[%d] metadata prefix = %q", i, r.Chunk.Meta[strata.MetaContextualPrefix])
		}
	}
	// Output order follows input order regardless of completion order.
	if !strings.HasSuffix(results[0].Chunk.Text, "Go is a programming language.") {
		t.Errorf("results[0] is not the first input chunk: %q", results[0].Chunk.Text)
	}
	if provider.calls.Load() != 2 {
		t.Errorf("got %d provider calls, want 2", provider.calls.Load())
	}

	// Input chunks stay untouched.
	for i, c := range chunks {
		if strings.Contains(c.Text, "This is about Go.") {
			t.Errorf("input chunk %d was modified: %q", i, c.Text)
		}
		if _, ok := c.Meta[strata.MetaContextualPrefix]; ok {
			t.Errorf("input chunk %d metadata was modified", i)
		}
	}
}

func TestEnrichSkipsOnError(t *testing.T) {
	chunks := testChunks("Original content.")
	provider := &mockContextProvider{prefix: "ctx", failOn: "Original content."}

	e := New(provider)
	results := e.Enrich(context.Background(), chunks, "doc")

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Status != StatusSkipped {
		t.Fatalf("status = %q, want skipped", r.Status)
	}
	if r.Err == nil {
		t.Error("skipped result has no error")
	}
	if r.Chunk.Text != "Original content." {
		t.Errorf("chunk text changed on error: %q", r.Chunk.Text)
	}
	if _, ok := r.Chunk.Meta[strata.MetaContextualPrefix]; ok {
		t.Error("skipped chunk has a prefix field")
	}
	// A non-transient failure is not retried.
	if provider.calls.Load() != 1 {
		t.Errorf("got %d provider calls, want 1", provider.calls.Load())
	}
}

func TestEnrichPartialFailureKeepsOrder(t *testing.T) {
	chunks := testChunks("alpha text", "bravo text", "charlie text")
	provider := &mockContextProvider{prefix: "ctx", failOn: "bravo"}

	e := New(provider, Workers(2))
	results := e.Enrich(context.Background(), chunks, "doc")

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	wantStatus := []Status{StatusEnriched, StatusSkipped, StatusEnriched}
	for i, r := range results {
		if r.Status != wantStatus[i] {
			t.Errorf("results[%d].Status = %q, want %q", i, r.Status, wantStatus[i])
		}
		if r.Chunk.Index != i {
			t.Errorf("results[%d] holds chunk index %d", i, r.Chunk.Index)
		}
	}
	if results[1].Chunk.Text != "bravo text" {
		t.Errorf("failed chunk modified: %q", results[1].Chunk.Text)
	}
}

func TestEnrichTransientExhaustionSkips(t *testing.T) {
	chunks := testChunks("content")
	provider := &rateLimitedProvider{}

	// One attempt keeps the test free of backoff sleeps.
	e := New(provider, MaxAttempts(1))
	results := e.Enrich(context.Background(), chunks, "doc")

	if results[0].Status != StatusSkipped {
		t.Fatalf("status = %q, want skipped", results[0].Status)
	}
	if provider.calls.Load() != 1 {
		t.Errorf("got %d provider calls, want 1", provider.calls.Load())
	}
}

// rateLimitedProvider always answers with HTTP 429.
type rateLimitedProvider struct {
	calls atomic.Int32
}

func (p *rateLimitedProvider) Chat(_ context.Context, _ strata.ChatRequest) (strata.ChatResponse, error) {
	p.calls.Add(1)
	return strata.ChatResponse{}, &strata.ErrHTTP{Status: 429, Body: "rate limited"}
}

func (p *rateLimitedProvider) Name() string { return "mock-429" }

func TestEnrichEmptyResponse(t *testing.T) {
	chunks := testChunks("body")
	provider := &mockContextProvider{prefix: "   \n "}

	e := New(provider)
	results := e.Enrich(context.Background(), chunks, "doc")

	r := results[0]
	if r.Status != StatusEnriched {
		t.Fatalf("status = %q, want enriched", r.Status)
	}
	if r.Chunk.Text != "body" {
		t.Errorf("empty prefix must not be prepended: %q", r.Chunk.Text)
	}
	prefix, ok := r.Chunk.Meta[strata.MetaContextualPrefix]
	if !ok {
		t.Fatal("prefix field missing after successful call")
	}
	if prefix != "" {
		t.Errorf("prefix = %q, want empty", prefix)
	}
}

func TestEnrichCancelledContext(t *testing.T) {
	chunks := testChunks("A", "B", "C")
	provider := &mockContextProvider{prefix: "ctx"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(provider, Workers(1))
	results := e.Enrich(ctx, chunks, "doc")

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, r := range results {
		if r.Status != StatusSkipped {
			t.Errorf("results[%d].Status = %q, want skipped", i, r.Status)
		}
	}
	if provider.calls.Load() != 0 {
		t.Errorf("got %d provider calls despite cancelled context, want 0", provider.calls.Load())
	}
}

func TestEnrichEmptyBatch(t *testing.T) {
	provider := &mockContextProvider{prefix: "ctx"}
	e := New(provider)
	if results := e.Enrich(context.Background(), nil, "doc"); results != nil {
		t.Errorf("got %+v, want nil", results)
	}
	if provider.calls.Load() != 0 {
		t.Errorf("got %d calls for empty batch, want 0", provider.calls.Load())
	}
}

// recordingProvider captures the last request for prompt assertions.
type recordingProvider struct {
	req strata.ChatRequest
}

func (p *recordingProvider) Chat(_ context.Context, req strata.ChatRequest) (strata.ChatResponse, error) {
	p.req = req
	return strata.ChatResponse{Content: "prefix"}, nil
}

func (p *recordingProvider) Name() string { return "recording" }

func TestEnrichRequestShape(t *testing.T) {
	chunks := testChunks("the chunk body")
	provider := &recordingProvider{}

	e := New(provider, Workers(1))
	e.Enrich(context.Background(), chunks, "the article body")

	req := provider.req
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	prompt := req.Messages[0].Content
	if !strings.Contains(prompt, "<article>\nthe article body\n</article>") {
		t.Errorf("prompt missing article text:\n%s", prompt)
	}
	if !strings.Contains(prompt, "<chunk>\nthe chunk body\n</chunk>") {
		t.Errorf("prompt missing chunk text:\n%s", prompt)
	}
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Errorf("temperature = %v, want pinned to 0", req.Temperature)
	}
	if req.MaxTokens != maxContextTokens {
		t.Errorf("max tokens = %d, want %d", req.MaxTokens, maxContextTokens)
	}
}

func TestTruncateArticle(t *testing.T) {
	if got := truncateArticle("short", 100); got != "short" {
		t.Errorf("got %q, want unchanged", got)
	}
	if got := truncateArticle("abcdef", 0); got != "abcdef" {
		t.Errorf("zero budget: got %q, want unchanged", got)
	}
	if got := truncateArticle("abcdef", 3); got != "abc"+truncationMarker {
		t.Errorf("got %q, want cut with marker", got)
	}
	// The budget counts runes, not bytes.
	if got := truncateArticle("日本語の文章", 3); got != "日本語"+truncationMarker {
		t.Errorf("got %q, want three-rune cut", got)
	}
	if got := truncateArticle("abc", 3); got != "abc" {
		t.Errorf("exact fit: got %q, want unchanged", got)
	}
}

func TestChunksFlattensResults(t *testing.T) {
	chunks := testChunks("one", "two")
	provider := &mockContextProvider{prefix: "P"}

	e := New(provider)
	out := Chunks(e.Enrich(context.Background(), chunks, "doc"))

	if len(out) != 2 {
		t.Fatalf("got %d chunks, want 2", len(out))
	}
	for i, c := range out {
		if !strings.HasPrefix(c.Text, "P\n\n") {
			t.Errorf("chunk %d missing prefix: %q", i, c.Text)
		}
	}
}
