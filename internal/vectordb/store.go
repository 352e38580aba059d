package vectordb

import (
	"context"
	"errors"
)

var (
	// ErrIndexNotReady is returned by Search before a successful Build.
	ErrIndexNotReady = errors.New("vector index not ready")

	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Searcher is the query side of an index.
type Searcher interface {
	// Search returns the min(k, Count()) entries most similar to query,
	// best first.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// Count returns the number of indexed entries.
	Count() int
}
