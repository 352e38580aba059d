package llm

import (
	"context"
	"fmt"
	"os"
)

const defaultOllamaHost = "http://localhost:11434"

// Options selects and configures a generation provider.
type Options struct {
	// Type is one of "openai", "google", "anthropic", "ollama".
	Type  string
	Model string
	// BaseURL overrides the provider endpoint. For ollama it falls back to
	// OLLAMA_HOST, then http://localhost:11434.
	BaseURL string
	// RPM caps requests per minute; 0 means unlimited.
	RPM int
}

// NewProvider creates a new LLM provider. API keys are read from the
// environment.
func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	p, err := newProvider(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.RPM > 0 {
		p = NewRateLimitedProvider(p, opts.RPM)
	}
	return p, nil
}

func newProvider(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Type {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" && opts.BaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, opts.Model, opts.BaseURL), nil

	case "google":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		}
		return NewGoogleProvider(ctx, apiKey, opts.Model)

	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		return NewAnthropicProvider(apiKey, opts.Model, opts.BaseURL), nil

	case "ollama":
		host := opts.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaProvider(host, opts.Model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Type)
	}
}
