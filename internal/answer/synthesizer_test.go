package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

type mockProvider struct {
	mu       sync.Mutex
	calls    []llm.CompletionRequest
	response string
	err      error
	delay    time.Duration
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.response, Model: "mock-model"}, nil
}

func result(source, content string, chunk int, score float32) vectordb.SearchResult {
	return vectordb.SearchResult{
		Document: vectordb.Document{
			Content:  content,
			Metadata: vectordb.Metadata{Source: source, Chunk: chunk},
		},
		Similarity: score,
	}
}

func TestBuildPromptLayout(t *testing.T) {
	prompt := BuildPrompt("  When is the deadline? ", []vectordb.SearchResult{
		result("a.pdf", "Contract A states the deadline is May 1.", 0, 0.9),
		result("b.pdf", "Contract B states the deadline is June 1.", 0, 0.5),
	})

	for _, want := range []string{"Context:", "[a.pdf]", "May 1.", "[b.pdf]", "June 1.", "Question: When is the deadline?", "ONLY"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.HasSuffix(prompt, "Answer:") {
		t.Errorf("prompt should end with Answer:, got %q", prompt[len(prompt)-20:])
	}
	if strings.Index(prompt, "May 1.") > strings.Index(prompt, "June 1.") {
		t.Error("chunks should keep retrieval order")
	}
	if !strings.Contains(prompt, contextSeparator) {
		t.Error("chunks should be separated")
	}
}

func TestSynthesizeSendsGroundingInstruction(t *testing.T) {
	mock := &mockProvider{response: "  The deadline is May 1.  "}
	s := New(mock, Options{Model: "m", MaxTokens: 64})

	resp, err := s.Synthesize(context.Background(), "When?", []vectordb.SearchResult{
		result("a.pdf", "Contract A states the deadline is May 1.", 0, 0.9),
	})
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if resp.Answer != "The deadline is May 1." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.calls))
	}
	req := mock.calls[0]
	if req.Model != "m" || req.MaxTokens != 64 {
		t.Errorf("unexpected request options: %+v", req)
	}
	if req.Messages[0].Role != llm.RoleSystem || !strings.Contains(req.Messages[0].Content, "only the information in the supplied context") {
		t.Errorf("first message should be the grounding instruction, got %+v", req.Messages[0])
	}
	if !strings.Contains(req.Messages[1].Content, "May 1.") {
		t.Error("user prompt should carry the context")
	}
}

func TestSynthesizeEmptyContextSkipsModel(t *testing.T) {
	mock := &mockProvider{response: "made up"}
	s := New(mock, Options{})

	resp, err := s.Synthesize(context.Background(), "Anything?", nil)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if resp.Answer != NoContextAnswer {
		t.Errorf("Answer = %q, want NoContextAnswer", resp.Answer)
	}
	if len(mock.calls) != 0 {
		t.Error("model should not be called without context")
	}
	if len(resp.Sources) != 0 || len(resp.DocumentsConsulted) != 0 {
		t.Errorf("expected no sources, got %+v", resp)
	}
}

func TestSynthesizeWrapsProviderError(t *testing.T) {
	boom := errors.New("upstream 500")
	s := New(&mockProvider{err: boom}, Options{})

	_, err := s.Synthesize(context.Background(), "q", []vectordb.SearchResult{result("a.pdf", "x", 0, 1)})
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("GenerationError should unwrap to the provider error")
	}
	if !IsGenerationError(err) {
		t.Error("IsGenerationError should be true")
	}
}

func TestSynthesizeEmptyCompletionIsError(t *testing.T) {
	s := New(&mockProvider{response: " \n "}, Options{})
	_, err := s.Synthesize(context.Background(), "q", []vectordb.SearchResult{result("a.pdf", "x", 0, 1)})
	if !IsGenerationError(err) {
		t.Fatalf("expected GenerationError for blank completion, got %v", err)
	}
}

func TestSynthesizeTimeout(t *testing.T) {
	s := New(&mockProvider{response: "late", delay: time.Second}, Options{Timeout: 20 * time.Millisecond})
	_, err := s.Synthesize(context.Background(), "q", []vectordb.SearchResult{result("a.pdf", "x", 0, 1)})
	if !IsGenerationError(err) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSourcesPreviewAndDedup(t *testing.T) {
	long := strings.Repeat("é", 500)
	results := []vectordb.SearchResult{
		result("b.pdf", long, 0, 0.9),
		result("a.pdf", "short", 1, 0.8),
		result("b.pdf", "again", 2, 0.7),
		result("", "anonymous", 0, 0.1),
	}

	sources := Sources(results, 300)
	if len(sources) != 4 {
		t.Fatalf("expected 4 sources, got %d", len(sources))
	}
	if got := len([]rune(sources[0].Content)); got != 300 {
		t.Errorf("preview length = %d runes, want 300", got)
	}
	if sources[1].Content != "short" || sources[1].Score != 0.8 {
		t.Errorf("unexpected source: %+v", sources[1])
	}
	if sources[3].Source != "?" {
		t.Errorf("missing source name should be ?, got %q", sources[3].Source)
	}

	docs := DocumentsConsulted(results)
	want := []string{"b.pdf", "a.pdf", "?"}
	if strings.Join(docs, ",") != strings.Join(want, ",") {
		t.Errorf("DocumentsConsulted = %v, want %v", docs, want)
	}
}

func TestDefaultPreviewChars(t *testing.T) {
	s := New(&mockProvider{response: "ok"}, Options{})
	resp, err := s.Synthesize(context.Background(), "q", []vectordb.SearchResult{result("a.pdf", strings.Repeat("x", 1000), 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources[0].Content) != DefaultPreviewChars {
		t.Errorf("preview = %d chars, want %d", len(resp.Sources[0].Content), DefaultPreviewChars)
	}
}

func TestResponseString(t *testing.T) {
	r := &Response{Answer: "May 1.", DocumentsConsulted: []string{"a.pdf", "b.pdf"}}
	if got := r.String(); got != "May 1.\n\nSources: a.pdf, b.pdf" {
		t.Errorf("String() = %q", got)
	}
}
