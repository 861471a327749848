package strata

import "context"

// Provider abstracts the text-generation backend.
type Provider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Name returns the provider name (e.g. "openai", "gemini").
	Name() string
}
