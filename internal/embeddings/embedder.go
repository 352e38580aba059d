package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelUnavailable means the embedding model could not be reached or
// produced no usable vector at startup.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder defines the interface for generating text embeddings.
// Implementations must be deterministic and batch-invariant: Embed(texts)
// returns, in order, the same vectors as calling Embed once per text.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors,
	// or 0 when it is only known after the first call.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// probeText is embedded once at startup to prove the model answers.
const probeText = "docqa embedding probe"

// Load checks that e can produce a vector and returns its dimension.
// It is called once before ingestion; an error here is fatal.
func Load(ctx context.Context, e Embedder) (int, error) {
	vecs, err := e.Embed(ctx, []string{probeText})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, e.Name(), err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("%w: %s returned no vector", ErrModelUnavailable, e.Name())
	}
	dims := len(vecs[0])
	if want := e.Dimensions(); want > 0 && want != dims {
		return 0, fmt.Errorf("%w: %s returned %d dimensions, expected %d", ErrModelUnavailable, e.Name(), dims, want)
	}
	return dims, nil
}

// batches splits texts into consecutive slices of at most size elements.
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for i := 0; i < len(texts); i += size {
		end := i + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[i:end])
	}
	return out
}
