package embeddings

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/logging"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 200 * time.Millisecond
	defaultRetryMaxDelay = 2 * time.Second
)

// RetryingEmbedder retries failed Embed calls with exponential backoff.
type RetryingEmbedder struct {
	Embedder
	attempts uint
	logger   *zap.Logger
}

// WithRetry wraps e. attempts <= 0 uses the default of 3.
func WithRetry(e Embedder, attempts int, logger *zap.Logger) *RetryingEmbedder {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	return &RetryingEmbedder{
		Embedder: e,
		attempts: uint(attempts),
		logger:   logging.OrNop(logger),
	}
}

func (r *RetryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return retry.DoWithData(
		func() ([][]float32, error) {
			return r.Embedder.Embed(ctx, texts)
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(defaultRetryDelay),
		retry.MaxDelay(defaultRetryMaxDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("embedding request failed, retrying",
				zap.String("model", r.Embedder.Name()),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}
