// Package llm provides reasoning-service clients behind a single
// Complete call.
//
// Implementations:
//   - OpenAI: any OpenAI-compatible chat completions endpoint (including
//     Gemini's compatibility endpoint via WithBaseURL)
//   - Anthropic: the Messages API
//   - MockClient: canned responses for tests and examples
package llm

import "context"

// Client sends a conversation to a reasoning service and returns its reply.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete performs one request/response exchange. Errors are *Error
	// values that report whether a retry might help.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Named is implemented by clients that report a provider name for logs
// and metrics.
type Named interface {
	Provider() string
}

// ProviderName returns c's provider name, or "unknown".
func ProviderName(c Client) string {
	if n, ok := c.(Named); ok {
		return n.Provider()
	}
	return "unknown"
}
