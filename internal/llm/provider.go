package llm

import "context"

// Provider generates answers from a chat prompt. Implementations must be
// safe for concurrent use; providers holding a client also implement
// io.Closer.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the backend in logs, e.g. "openai" or "ollama".
	Name() string
}
