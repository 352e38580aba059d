package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/llm"
	"github.com/ziadkadry99/docqa/internal/logging"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// DefaultPreviewChars bounds the length of each source snippet in a Response.
const DefaultPreviewChars = 300

// NoContextAnswer is returned without consulting the model when retrieval
// produced nothing.
const NoContextAnswer = "No relevant context was found in the loaded documents to answer this question."

// GenerationError reports a failed completion.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Source is a truncated chunk that was handed to the model as context.
type Source struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
}

// Response is the synthesized answer with its provenance.
type Response struct {
	Answer             string   `json:"answer"`
	Sources            []Source `json:"sources"`
	DocumentsConsulted []string `json:"documents_consulted"`
}

// Options configures a Synthesizer.
type Options struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	PreviewChars int
	// Timeout bounds a single completion; 0 means no bound beyond ctx.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Synthesizer turns retrieved chunks and a question into a grounded answer.
type Synthesizer struct {
	provider llm.Provider
	opts     Options
	logger   *zap.Logger
}

// New returns a Synthesizer that generates with provider.
func New(provider llm.Provider, opts Options) *Synthesizer {
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = DefaultPreviewChars
	}
	return &Synthesizer{
		provider: provider,
		opts:     opts,
		logger:   logging.OrNop(opts.Logger),
	}
}

// Synthesize answers question from results. An empty result set produces
// NoContextAnswer and never reaches the model.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, results []vectordb.SearchResult) (*Response, error) {
	resp := &Response{
		Sources:            Sources(results, s.opts.PreviewChars),
		DocumentsConsulted: DocumentsConsulted(results),
	}
	if len(results) == 0 {
		resp.Answer = NoContextAnswer
		return resp, nil
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:       s.opts.Model,
		Messages:    llm.Prompt(systemPrompt, BuildPrompt(question, results)),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	text := strings.TrimSpace(completion.Content)
	if text == "" {
		return nil, &GenerationError{Err: errors.New("model returned an empty completion")}
	}

	s.logger.Debug("answer generated",
		zap.String("provider", s.provider.Name()),
		zap.String("model", completion.Model),
		zap.Int("input_tokens", completion.InputTokens),
		zap.Int("output_tokens", completion.OutputTokens),
		zap.Duration("duration", time.Since(start)),
	)

	resp.Answer = text
	return resp, nil
}

// Sources converts results to previews of at most previewChars runes.
func Sources(results []vectordb.SearchResult, previewChars int) []Source {
	out := make([]Source, 0, len(results))
	for _, r := range results {
		out = append(out, Source{
			Content: Preview(r.Document.Content, previewChars),
			Source:  sourceName(r),
			Score:   r.Similarity,
		})
	}
	return out
}

// DocumentsConsulted lists the distinct source names in first-seen order.
func DocumentsConsulted(results []vectordb.SearchResult) []string {
	seen := make(map[string]bool, len(results))
	docs := make([]string, 0, len(results))
	for _, r := range results {
		name := sourceName(r)
		if seen[name] {
			continue
		}
		seen[name] = true
		docs = append(docs, name)
	}
	return docs
}

// Preview returns the first n runes of s.
func Preview(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func sourceName(r vectordb.SearchResult) string {
	if r.Document.Metadata.Source == "" {
		return "?"
	}
	return r.Document.Metadata.Source
}

// IsGenerationError reports whether err came from the model.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// String renders the answer followed by its sources.
func (r *Response) String() string {
	var b strings.Builder
	b.WriteString(r.Answer)
	if len(r.DocumentsConsulted) > 0 {
		fmt.Fprintf(&b, "\n\nSources: %s", strings.Join(r.DocumentsConsulted, ", "))
	}
	return b.String()
}
