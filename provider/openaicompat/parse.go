package openaicompat

import "github.com/nevindra/strata"

// ParseResponse converts an OpenAI-format ChatResponse to a strata
// ChatResponse. It extracts content and usage from choices[0]. A response
// with no choices yields an empty content string, not an error; callers
// decide how to treat empty completions.
func ParseResponse(resp ChatResponse) (strata.ChatResponse, error) {
	var out strata.ChatResponse

	if len(resp.Choices) == 0 {
		return out, nil
	}

	if msg := resp.Choices[0].Message; msg != nil {
		out.Content = msg.Content
	}

	if resp.Usage != nil {
		out.Usage = strata.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	return out, nil
}
