package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// countingEmbedder records every batch it receives and can fail the first
// failures calls.
type countingEmbedder struct {
	mu       sync.Mutex
	inner    Embedder
	batches  [][]string
	failures int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), texts...))
	fail := c.failures > 0
	if fail {
		c.failures--
	}
	c.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset by peer")
	}
	return c.inner.Embed(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *countingEmbedder) Name() string    { return "counting" }

func (c *countingEmbedder) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func equalVectors(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var sampleTexts = []string{
	"Contract A states the deadline is May 1.",
	"El contrato B establece que el plazo es el 1 de junio.",
	"Статья 5. Срок действия договора.",
	"...",
	"",
}

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(0)
	ctx := context.Background()

	a, err := e.Embed(ctx, sampleTexts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, sampleTexts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if !equalVectors(a[i], b[i]) {
			t.Errorf("text %d: vectors differ between calls", i)
		}
		if len(a[i]) != DefaultHashingDimensions {
			t.Errorf("text %d: got %d dims, want %d", i, len(a[i]), DefaultHashingDimensions)
		}
	}
}

func TestHashingEmbedderBatchInvariant(t *testing.T) {
	e := NewHashingEmbedder(128)
	ctx := context.Background()

	batch, err := e.Embed(ctx, sampleTexts)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != len(sampleTexts) {
		t.Fatalf("got %d vectors, want %d", len(batch), len(sampleTexts))
	}
	for i, text := range sampleTexts {
		single, err := e.Embed(ctx, []string{text})
		if err != nil {
			t.Fatal(err)
		}
		if !equalVectors(batch[i], single[0]) {
			t.Errorf("text %d: batched vector differs from single call", i)
		}
	}
}

func TestHashingEmbedderUnitNorm(t *testing.T) {
	e := NewHashingEmbedder(64)
	vecs, err := e.Embed(context.Background(), sampleTexts)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vecs {
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
			t.Errorf("text %d: norm = %f, want 1", i, math.Sqrt(norm))
		}
	}
}

func TestHashingEmbedderSimilarTextsAreCloser(t *testing.T) {
	e := NewHashingEmbedder(0)
	vecs, err := e.Embed(context.Background(), []string{
		"What is the deadline in Contract A?",
		"Contract A states the deadline is May 1.",
		"Photosynthesis converts light into chemical energy.",
	})
	if err != nil {
		t.Fatal(err)
	}
	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	if dot(vecs[0], vecs[1]) <= dot(vecs[0], vecs[2]) {
		t.Error("related sentence should score higher than unrelated one")
	}
}

type staticEmbedder struct {
	vecs [][]float32
	err  error
	dims int
}

func (s *staticEmbedder) Embed(context.Context, []string) ([][]float32, error) { return s.vecs, s.err }
func (s *staticEmbedder) Dimensions() int                                     { return s.dims }
func (s *staticEmbedder) Name() string                                        { return "static" }

func TestLoad(t *testing.T) {
	ctx := context.Background()

	dims, err := Load(ctx, NewHashingEmbedder(32))
	if err != nil || dims != 32 {
		t.Fatalf("Load() = %d, %v; want 32, nil", dims, err)
	}

	tests := []struct {
		name string
		e    Embedder
	}{
		{"model error", &staticEmbedder{err: errors.New("model not found")}},
		{"no vectors", &staticEmbedder{}},
		{"empty vector", &staticEmbedder{vecs: [][]float32{{}}}},
		{"dimension mismatch", &staticEmbedder{vecs: [][]float32{{1, 2}}, dims: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(ctx, tt.e); !errors.Is(err, ErrModelUnavailable) {
				t.Errorf("expected ErrModelUnavailable, got %v", err)
			}
		})
	}
}

func TestWithRetryRecovers(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashingEmbedder(16), failures: 2}
	e := WithRetry(inner, 3, nil)

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("got %d vectors, want 2", len(vecs))
	}
	if inner.calls() != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls())
	}
	if e.Name() != "counting" {
		t.Errorf("Name() = %q, want counting", e.Name())
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashingEmbedder(16), failures: 10}
	e := WithRetry(inner, 2, nil)

	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls() != 2 {
		t.Errorf("expected 2 attempts, got %d", inner.calls())
	}
}

func TestWithCache(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashingEmbedder(16)}
	e := WithCache(inner, 10, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	mixed, err := e.Embed(ctx, []string{"gamma", "alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls() != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls())
	}
	if got := inner.batches[1]; len(got) != 1 || got[0] != "gamma" {
		t.Errorf("second call should only embed the miss, got %v", got)
	}
	if !equalVectors(mixed[1], first[0]) || !equalVectors(mixed[2], first[1]) {
		t.Error("cached vectors returned out of order")
	}
	if e.Len() != 3 {
		t.Errorf("Len() = %d, want 3", e.Len())
	}
}

func TestWithCacheRespectsMaxSize(t *testing.T) {
	e := WithCache(NewHashingEmbedder(8), 2, time.Minute)
	if _, err := e.Embed(context.Background(), []string{"a", "b", "c", "d"}); err != nil {
		t.Fatal(err)
	}
	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}
}

func TestOpenAIEmbedderOrdersByIndexAndBatches(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		requests++
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		// Answer in reverse order; the client must restore input order.
		var data []item
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Index: i, Embedding: []float32{float32(len(req.Input[i])), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIOptions{
		APIKey:    "test",
		Model:     "paraphrase-multilingual-MiniLM-L12-v2",
		BaseURL:   srv.URL + "/v1",
		BatchSize: 2,
	})

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if requests != 2 {
		t.Errorf("expected 2 batched requests, got %d", requests)
	}
	for i, want := range []float32{1, 2, 3} {
		if vecs[i][0] != want {
			t.Errorf("vector %d: got %v, want first component %v", i, vecs[i], want)
		}
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := ollamaEmbedResponse{}
		for _, in := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(len(in))})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("paraphrase-multilingual", 1, srv.URL, 0)
	vecs, err := e.Embed(context.Background(), []string{"x", "yyyy"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][0] != 4 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
	if e.Name() != "ollama/paraphrase-multilingual" {
		t.Errorf("Name() = %q", e.Name())
	}
}

func TestOllamaEmbedderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("missing", 0, srv.URL, 0)
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestToChromemFunc(t *testing.T) {
	e := NewHashingEmbedder(16)
	fn := ToChromemFunc(e)

	got, err := fn(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := e.Embed(context.Background(), []string{"hello"})
	if !equalVectors(got, want[0]) {
		t.Error("chromem func should return the embedder's vector")
	}

	bad := ToChromemFunc(&staticEmbedder{})
	if _, err := bad(context.Background(), "hello"); err == nil {
		t.Error("expected error when embedder returns no vector")
	}
}

func TestBatches(t *testing.T) {
	got := batches([]string{"a", "b", "c", "d", "e"}, 2)
	if len(got) != 3 || len(got[2]) != 1 {
		t.Errorf("batches = %v", got)
	}
	if got := batches([]string{"a", "b"}, 0); len(got) != 1 {
		t.Errorf("size 0 should produce one batch, got %v", got)
	}
}
