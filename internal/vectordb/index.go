package vectordb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/docqa/internal/embeddings"
)

const collectionName = "corpus"

const (
	metaSource = "source"
	metaChunk  = "chunk"
	metaSeq    = "seq"
)

var errPrecomputedOnly = errors.New("index accepts precomputed embeddings only")

// snapshot is one fully built, immutable index generation.
type snapshot struct {
	collection *chromem.Collection
	dims       int
	count      int
	builtAt    time.Time
}

// Index is an exact cosine-similarity index backed by chromem-go. Each
// Build produces a new chromem collection and publishes it with a single
// pointer swap, so searches only ever see a complete generation.
type Index struct {
	current   atomic.Pointer[snapshot]
	embedFunc chromem.EmbeddingFunc
}

// NewIndex creates an empty index. If e is non-nil it is handed to
// chromem as the collection's embedding function.
func NewIndex(e embeddings.Embedder) *Index {
	ef := chromem.EmbeddingFunc(func(context.Context, string) ([]float32, error) {
		return nil, errPrecomputedOnly
	})
	if e != nil {
		ef = embeddings.ToChromemFunc(e)
	}
	return &Index{embedFunc: ef}
}

// Build replaces the index contents with the given parallel sequences of
// chunk text, vector and metadata. On error the previous generation stays
// in place.
func (ix *Index) Build(ctx context.Context, contents []string, vectors [][]float32, metadata []Metadata) error {
	if len(contents) != len(vectors) || len(contents) != len(metadata) {
		return fmt.Errorf("build: %d contents, %d vectors, %d metadata entries", len(contents), len(vectors), len(metadata))
	}
	if len(contents) == 0 {
		return fmt.Errorf("build: no entries")
	}

	dims := len(vectors[0])
	if dims == 0 {
		return fmt.Errorf("build: empty vector")
	}

	docs := make([]chromem.Document, len(contents))
	for i := range contents {
		if len(vectors[i]) != dims {
			return fmt.Errorf("build: entry %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(vectors[i]), dims)
		}
		if isZero(vectors[i]) {
			return fmt.Errorf("build: entry %d has a zero vector", i)
		}
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   contents[i],
			Embedding: vectors[i],
			Metadata: map[string]string{
				metaSource: metadata[i].Source,
				metaChunk:  strconv.Itoa(metadata[i].Chunk),
				metaSeq:    strconv.Itoa(i),
			},
		}
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, ix.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	ix.current.Store(&snapshot{
		collection: col,
		dims:       dims,
		count:      col.Count(),
		builtAt:    time.Now(),
	})
	return nil
}

// Search performs an exact nearest-neighbour search. Ties are broken by
// insertion order.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	snap := ix.current.Load()
	if snap == nil || snap.count == 0 {
		return nil, ErrIndexNotReady
	}
	if k <= 0 {
		return nil, fmt.Errorf("search: k must be positive, got %d", k)
	}
	if len(query) != snap.dims {
		return nil, fmt.Errorf("search: %w: got %d, want %d", ErrDimensionMismatch, len(query), snap.dims)
	}
	if isZero(query) {
		return nil, fmt.Errorf("search: zero query vector")
	}

	// Rank the whole collection so that the tie-break below sees every
	// candidate with the cut-off score.
	results, err := snap.collection.QueryEmbedding(ctx, query, snap.count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: toMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Document.Metadata.Seq < out[j].Document.Metadata.Seq
	})

	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

// Count returns the number of entries in the current generation.
func (ix *Index) Count() int {
	if snap := ix.current.Load(); snap != nil {
		return snap.count
	}
	return 0
}

// Dimensions returns the vector size of the current generation, or 0.
func (ix *Index) Dimensions() int {
	if snap := ix.current.Load(); snap != nil {
		return snap.dims
	}
	return 0
}

// BuiltAt returns when the current generation was published.
func (ix *Index) BuiltAt() time.Time {
	if snap := ix.current.Load(); snap != nil {
		return snap.builtAt
	}
	return time.Time{}
}

func toMetadata(m map[string]string) Metadata {
	chunk, _ := strconv.Atoi(m[metaChunk])
	seq, _ := strconv.Atoi(m[metaSeq])
	return Metadata{
		Source: m[metaSource],
		Chunk:  chunk,
		Seq:    seq,
	}
}

func isZero(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return sum == 0 || math.IsNaN(sum)
}
