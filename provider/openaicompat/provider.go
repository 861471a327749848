package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/nevindra/strata"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider implements strata.Provider for any OpenAI-compatible API.
// It uses the shared helpers in this package (BuildBody, ParseResponse)
// for body building and response parsing.
//
// Works with OpenAI, OpenRouter, Groq, Together, Fireworks, DeepSeek,
// Mistral, Ollama, vLLM, LM Studio, Azure OpenAI, and any other provider
// that implements the OpenAI chat completions API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	name    string
	opts    []Option
}

// New creates an OpenAI-compatible chat provider. The base URL defaults to
// the OpenAI API; point it elsewhere with WithBaseURL (e.g.
// "https://api.groq.com/openai/v1", "http://localhost:11434/v1"). The
// /chat/completions path is appended automatically.
//
// Provider-level options (via WithOptions) are applied to every request.
// Generation parameters on the ChatRequest itself override them.
func New(apiKey, model string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
		name:    "openai",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name (default "openai", configurable via WithName).
func (p *Provider) Name() string { return p.name }

// requestOptions returns the provider's base options with any per-request
// generation parameters appended. Per-request values override provider
// defaults because options are applied in order (last wins).
func (p *Provider) requestOptions(req strata.ChatRequest) []Option {
	if req.Temperature == nil && req.MaxTokens == 0 {
		return p.opts
	}
	opts := make([]Option, len(p.opts), len(p.opts)+2)
	copy(opts, p.opts)
	if req.Temperature != nil {
		opts = append(opts, WithTemperature(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, WithMaxTokens(req.MaxTokens))
	}
	return opts
}

// Chat sends a chat request and returns the complete response.
func (p *Provider) Chat(ctx context.Context, req strata.ChatRequest) (strata.ChatResponse, error) {
	body := BuildBody(req.Messages, p.model, p.requestOptions(req)...)

	resp, err := p.sendHTTP(ctx, body)
	if err != nil {
		return strata.ChatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return strata.ChatResponse{}, p.httpErr(resp)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return strata.ChatResponse{}, &strata.ErrLLM{Provider: p.name, Op: "decode response", Err: err}
	}

	return ParseResponse(chatResp)
}

// sendHTTP marshals the request body and sends it to the chat completions endpoint.
func (p *Provider) sendHTTP(ctx context.Context, body ChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &strata.ErrLLM{Provider: p.name, Op: "marshal request", Err: err}
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &strata.ErrLLM{Provider: p.name, Op: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	// Transport errors are returned unwrapped so the retry middleware can
	// inspect them (timeouts and connection failures are transient).
	return p.client.Do(httpReq)
}

// httpErr reads the response body and returns an ErrHTTP for retry middleware.
// Parses the Retry-After header when present (429/503 responses).
func (p *Provider) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &strata.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: strata.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// Compile-time interface check.
var _ strata.Provider = (*Provider)(nil)
