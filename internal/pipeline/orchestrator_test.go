package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/embeddings"
	"github.com/ziadkadry99/docqa/internal/extract"
	"github.com/ziadkadry99/docqa/internal/llm"
)

type mockProvider struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.response}, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding backend down")
}
func (failingEmbedder) Dimensions() int { return 8 }
func (failingEmbedder) Name() string    { return "failing" }

type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) Record(_ context.Context, question, _ string, _ []string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, question)
	return nil
}

type countingReporter struct {
	mu       sync.Mutex
	total    int
	updates  int
	finished bool
}

func (r *countingReporter) Start(total int) { r.total = total }
func (r *countingReporter) Update(int, string) {
	r.mu.Lock()
	r.updates++
	r.mu.Unlock()
}
func (r *countingReporter) Finish() { r.finished = true }

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestOrchestrator(t *testing.T, provider llm.Provider, mutate func(*Options)) *Orchestrator {
	t.Helper()
	ch, err := chunker.New(800, 100)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{
		Extractor:   extract.NewRegistry(nil),
		Chunker:     ch,
		Embedder:    embeddings.NewHashingEmbedder(384),
		Synthesizer: answer.New(provider, answer.Options{}),
		K:           2,
		Concurrency: 3,
		BatchSize:   2,
	}
	if mutate != nil {
		mutate(&opts)
	}
	o, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return o
}

func contractCorpus(t *testing.T) []string {
	dir := t.TempDir()
	return []string{
		writeDoc(t, dir, "contract_a.txt", "Contract A states the deadline is May 1."),
		writeDoc(t, dir, "contract_b.txt", "Contract B states the deadline is June 1."),
	}
}

func TestNewRequiresComponents(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error for empty options")
	}
}

func TestQueryBeforeProcessDocuments(t *testing.T) {
	o := newTestOrchestrator(t, &mockProvider{response: "x"}, nil)

	if o.State() != Uninitialized {
		t.Fatalf("State() = %s, want uninitialized", o.State())
	}
	if _, err := o.Query(context.Background(), "anything"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Query() error = %v, want ErrNotReady", err)
	}
	if _, err := o.Search(context.Background(), "anything", 1); !errors.Is(err, ErrNotReady) {
		t.Errorf("Search() error = %v, want ErrNotReady", err)
	}
}

func TestEndToEndContracts(t *testing.T) {
	provider := &mockProvider{response: "The deadline in Contract A is May 1."}
	o := newTestOrchestrator(t, provider, nil)

	if err := o.ProcessDocuments(context.Background(), contractCorpus(t)); err != nil {
		t.Fatalf("ProcessDocuments() error: %v", err)
	}
	if o.State() != Ready {
		t.Fatalf("State() = %s, want ready", o.State())
	}
	if st := o.Status(); st.Dimensions != 384 || st.BuiltAt.IsZero() {
		t.Errorf("Status() index details = %d dims, built %v", st.Dimensions, st.BuiltAt)
	}

	resp, err := o.Query(context.Background(), "What is the deadline in Contract A?")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if resp.Answer != "The deadline in Contract A is May 1." {
		t.Errorf("Answer = %q", resp.Answer)
	}

	consulted := strings.Join(resp.DocumentsConsulted, ",")
	if !strings.Contains(consulted, "contract_a.txt") {
		t.Errorf("DocumentsConsulted = %v, want contract_a.txt", resp.DocumentsConsulted)
	}
	found := false
	for _, s := range resp.Sources {
		if strings.Contains(s.Content, "May 1.") {
			found = true
		}
	}
	if !found {
		t.Errorf("no source contains May 1.: %+v", resp.Sources)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestSearchRanksMatchingContractFirst(t *testing.T) {
	o := newTestOrchestrator(t, &mockProvider{response: "x"}, nil)
	if err := o.ProcessDocuments(context.Background(), contractCorpus(t)); err != nil {
		t.Fatal(err)
	}

	results, err := o.Search(context.Background(), "What is the deadline in Contract A?", 1)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].Document.Metadata.Source != "contract_a.txt" {
		t.Fatalf("unexpected results: %+v", results)
	}

	results, err = o.Search(context.Background(), "When does Contract B end?", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != o.K() {
		t.Errorf("default depth returned %d results, want %d", len(results), o.K())
	}
	if results[0].Document.Metadata.Source != "contract_b.txt" {
		t.Errorf("top result = %s, want contract_b.txt", results[0].Document.Metadata.Source)
	}
}

func TestAllDocumentsFail(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeDoc(t, dir, "blank.txt", "  \n\f \n"),
		writeDoc(t, dir, "scan.png", "not text"),
		filepath.Join(dir, "missing.txt"),
	}
	provider := &mockProvider{response: "x"}
	o := newTestOrchestrator(t, provider, nil)

	err := o.ProcessDocuments(context.Background(), paths)
	if !errors.Is(err, ErrNoUsableChunks) {
		t.Fatalf("ProcessDocuments() error = %v, want ErrNoUsableChunks", err)
	}
	if o.State() != Failed {
		t.Fatalf("State() = %s, want failed", o.State())
	}
	if _, err := o.Query(context.Background(), "anything"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Query() after failure = %v, want ErrNotReady", err)
	}
	if provider.calls != 0 {
		t.Error("provider should never be called")
	}

	st := o.Status()
	if len(st.Skipped) != 3 {
		t.Errorf("skipped = %d, want 3", len(st.Skipped))
	}
	if st.Error == "" {
		t.Error("status should carry the build error")
	}
	if st.Dimensions != 0 || !st.BuiltAt.IsZero() {
		t.Errorf("no index should be published, got %d dims built %v", st.Dimensions, st.BuiltAt)
	}
}

func TestPartialFailureSkipsDocuments(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeDoc(t, dir, "empty.txt", "   "),
		writeDoc(t, dir, "good.txt", "The lease runs for twelve months."),
		filepath.Join(dir, "gone.txt"),
	}
	o := newTestOrchestrator(t, &mockProvider{response: "x"}, nil)

	if err := o.ProcessDocuments(context.Background(), paths); err != nil {
		t.Fatalf("ProcessDocuments() error: %v", err)
	}

	st := o.Status()
	if st.State != Ready {
		t.Fatalf("state = %s", st.State)
	}
	if len(st.Documents) != 1 || st.Documents[0] != "good.txt" {
		t.Errorf("documents = %v, want [good.txt]", st.Documents)
	}
	if len(st.Skipped) != 2 || st.Skipped[0].Name != "empty.txt" || st.Skipped[1].Name != "gone.txt" {
		t.Errorf("skipped = %+v", st.Skipped)
	}
	if st.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", st.Chunks)
	}
}

func TestProcessDocumentsOnlyOnce(t *testing.T) {
	o := newTestOrchestrator(t, &mockProvider{response: "x"}, nil)
	paths := contractCorpus(t)
	if err := o.ProcessDocuments(context.Background(), paths); err != nil {
		t.Fatal(err)
	}
	if err := o.ProcessDocuments(context.Background(), paths); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second call error = %v, want ErrAlreadyStarted", err)
	}
	if o.State() != Ready {
		t.Errorf("state changed to %s", o.State())
	}
}

func TestEmbeddingFailureFailsBuild(t *testing.T) {
	o := newTestOrchestrator(t, &mockProvider{response: "x"}, func(opts *Options) {
		opts.Embedder = failingEmbedder{}
	})
	if err := o.ProcessDocuments(context.Background(), contractCorpus(t)); err == nil {
		t.Fatal("expected error")
	}
	if o.State() != Failed {
		t.Errorf("State() = %s, want failed", o.State())
	}
}

func TestCancelledBuildFails(t *testing.T) {
	o := newTestOrchestrator(t, &mockProvider{response: "x"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := o.ProcessDocuments(ctx, contractCorpus(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if o.State() != Failed {
		t.Errorf("State() = %s, want failed", o.State())
	}
}

func TestGenerationErrorPropagates(t *testing.T) {
	boom := errors.New("model crashed")
	o := newTestOrchestrator(t, &mockProvider{err: boom}, nil)
	if err := o.ProcessDocuments(context.Background(), contractCorpus(t)); err != nil {
		t.Fatal(err)
	}

	_, err := o.Query(context.Background(), "What is the deadline?")
	if !answer.IsGenerationError(err) || !errors.Is(err, boom) {
		t.Errorf("Query() error = %v, want GenerationError wrapping the provider error", err)
	}
	if o.State() != Ready {
		t.Error("a failed query must not change state")
	}
}

func TestEmptyQuestionRejected(t *testing.T) {
	o := newTestOrchestrator(t, &mockProvider{response: "x"}, nil)
	if err := o.ProcessDocuments(context.Background(), contractCorpus(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Query(context.Background(), "  \t"); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("error = %v, want ErrEmptyQuestion", err)
	}
}

func TestRecorderAndProgress(t *testing.T) {
	rec := &recorder{}
	rep := &countingReporter{}
	o := newTestOrchestrator(t, &mockProvider{response: "May 1."}, func(opts *Options) {
		opts.Recorder = rec
		opts.Progress = rep
	})
	if err := o.ProcessDocuments(context.Background(), contractCorpus(t)); err != nil {
		t.Fatal(err)
	}
	if rep.total != 2 || rep.updates != 2 || !rep.finished {
		t.Errorf("reporter = %+v", rep)
	}

	if _, err := o.Query(context.Background(), "deadline?"); err != nil {
		t.Fatal(err)
	}
	if len(rec.entries) != 1 || rec.entries[0] != "deadline?" {
		t.Errorf("recorded = %v", rec.entries)
	}
}

func TestChunkOrderFollowsInputOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"d1.txt", "d2.txt", "d3.txt", "d4.txt", "d5.txt"} {
		paths = append(paths, writeDoc(t, dir, name, "Same sentence in every document."))
	}
	o := newTestOrchestrator(t, &mockProvider{response: "x"}, func(opts *Options) {
		opts.Concurrency = 5
	})
	if err := o.ProcessDocuments(context.Background(), paths); err != nil {
		t.Fatal(err)
	}

	got := o.Documents()
	want := []string{"d1.txt", "d2.txt", "d3.txt", "d4.txt", "d5.txt"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Documents() = %v, want %v", got, want)
	}

	// Identical content ties on similarity, so insertion order decides.
	results, err := o.Search(context.Background(), "Same sentence in every document.", 5)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.Document.Metadata.Source != want[i] {
			t.Errorf("rank %d = %s, want %s", i, r.Document.Metadata.Source, want[i])
		}
	}
}

func TestConcurrentQueries(t *testing.T) {
	o := newTestOrchestrator(t, &mockProvider{response: "May 1."}, nil)
	if err := o.ProcessDocuments(context.Background(), contractCorpus(t)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.Query(context.Background(), "What is the deadline in Contract A?"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent query: %v", err)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Uninitialized: "uninitialized",
		Building:      "building",
		Ready:         "ready",
		Failed:        "failed",
		State(42):     "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
