package retrieval

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/docqa/internal/embeddings"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// DefaultK is the retrieval depth used when none is configured.
const DefaultK = 2

// Retriever embeds a question and looks up its nearest chunks.
type Retriever struct {
	embedder embeddings.Embedder
	index    vectordb.Searcher
	k        int
}

// New returns a Retriever with depth k (DefaultK when k <= 0).
func New(embedder embeddings.Embedder, index vectordb.Searcher, k int) *Retriever {
	if k <= 0 {
		k = DefaultK
	}
	return &Retriever{embedder: embedder, index: index, k: k}
}

// K returns the configured retrieval depth.
func (r *Retriever) K() int { return r.k }

// Retrieve returns the configured number of chunks most similar to question.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]vectordb.SearchResult, error) {
	return r.RetrieveK(ctx, question, r.k)
}

// RetrieveK is Retrieve with an explicit depth.
func (r *Retriever) RetrieveK(ctx context.Context, question string, k int) ([]vectordb.SearchResult, error) {
	vecs, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors, want 1", len(vecs))
	}
	return r.index.Search(ctx, vecs[0], k)
}
