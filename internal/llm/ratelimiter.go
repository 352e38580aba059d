package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider spaces calls to a Provider to at most rpm per minute,
// allowing a burst of rpm.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider wraps provider. rpm must be positive.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Complete waits for a slot, then delegates. It fails without calling the
// provider when ctx ends first or its deadline is too close to get a slot.
func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", r.provider.Name(), err)
	}
	return r.provider.Complete(ctx, req)
}

// Close closes the wrapped provider when it holds resources.
func (r *RateLimitedProvider) Close() error {
	if c, ok := r.provider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
