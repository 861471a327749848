package strata

import (
	"context"
	"errors"
	"testing"
	"time"
)

// enrichmentCall builds a request shaped like the enricher's per-chunk
// prompt: one large user message, short expected reply.
func enrichmentCall() ChatRequest {
	return ChatRequest{Messages: []ChatMessage{
		UserMessage("<article>full article text</article>\n<chunk>windowed text</chunk>"),
	}}
}

func TestRateLimitUnlimitedPassthrough(t *testing.T) {
	stub := &stubProvider{}
	p := WithRateLimit(stub)

	for i := 0; i < 5; i++ {
		if _, err := p.Chat(context.Background(), enrichmentCall()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if stub.calls != 5 {
		t.Errorf("calls = %d, want 5", stub.calls)
	}
}

func TestRateLimitRPMWithinBudget(t *testing.T) {
	stub := &stubProvider{results: []stubResult{
		{resp: ChatResponse{Content: "The chunk covers the setup steps."}},
	}}
	p := WithRateLimit(stub, RPM(60))

	resp, err := p.Chat(context.Background(), enrichmentCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "The chunk covers the setup steps." {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestRateLimitRPMExhaustedBlocks(t *testing.T) {
	stub := &stubProvider{}
	p := WithRateLimit(stub, RPM(1))

	if _, err := p.Chat(context.Background(), enrichmentCall()); err != nil {
		t.Fatal(err)
	}

	// The window holds the first call for a minute; the second waits until
	// its ctx gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Chat(ctx, enrichmentCall()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}
}

func TestRateLimitTPMCountsUsage(t *testing.T) {
	// Situating calls are prompt-heavy: the article dominates input tokens.
	stub := &stubProvider{results: []stubResult{
		{resp: ChatResponse{Content: "ok", Usage: Usage{InputTokens: 3200, OutputTokens: 40}}},
		{resp: ChatResponse{Content: "ok", Usage: Usage{InputTokens: 3200, OutputTokens: 40}}},
	}}
	p := WithRateLimit(stub, TPM(3000))

	// First call passes on an empty window and spends 3240 tokens, past the
	// budget. TPM is a soft limit: the overrun completes, the next call blocks.
	if _, err := p.Chat(context.Background(), enrichmentCall()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Chat(ctx, enrichmentCall()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}
}

func TestRateLimitFailedCallSpendsNoBudget(t *testing.T) {
	stub := &stubProvider{results: []stubResult{
		{err: errors.New("upstream down")},
		{resp: ChatResponse{Content: "ok", Usage: Usage{InputTokens: 10, OutputTokens: 5}}},
	}}
	p := WithRateLimit(stub, TPM(1))

	if _, err := p.Chat(context.Background(), enrichmentCall()); err == nil {
		t.Fatal("expected provider error")
	}

	// No usage was recorded for the failure, so even a 1-token budget
	// admits the retry without waiting.
	resp, err := p.Chat(context.Background(), enrichmentCall())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q, want %q", resp.Content, "ok")
	}
	if stub.calls != 2 {
		t.Errorf("calls = %d, want 2", stub.calls)
	}
}

func TestRateLimitTightestBudgetWins(t *testing.T) {
	stub := &stubProvider{results: []stubResult{
		{resp: ChatResponse{Content: "a", Usage: Usage{InputTokens: 12, OutputTokens: 9}}},
		{resp: ChatResponse{Content: "b", Usage: Usage{InputTokens: 12, OutputTokens: 9}}},
	}}
	// Plenty of request budget; the token budget is the bottleneck.
	p := WithRateLimit(stub, RPM(100), TPM(20))

	if _, err := p.Chat(context.Background(), enrichmentCall()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Chat(ctx, enrichmentCall()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestRateLimitName(t *testing.T) {
	p := WithRateLimit(&stubProvider{}, RPM(10))
	if p.Name() != "stub" {
		t.Errorf("Name() = %q, want %q", p.Name(), "stub")
	}
}
