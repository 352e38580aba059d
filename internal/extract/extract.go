package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/logging"
)

var (
	// ErrNoText means a document produced only whitespace after every page
	// was read.
	ErrNoText = errors.New("no text recoverable")

	// ErrUnsupported means no page source is registered for the file type.
	ErrUnsupported = errors.New("unsupported document type")
)

// ExtractionError reports a document that must be left out of the corpus.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Source yields the pages of an opened document. Page indexes are 0-based.
type Source interface {
	NumPages() int
	PageText(i int) (string, error)
}

// Opener opens a document at path and returns its pages together with a
// closer that releases the underlying file.
type Opener func(path string) (Source, io.Closer, error)

// Document is the text recovered from one source file.
type Document struct {
	// Name is the stable identifier derived from the path.
	Name string
	Path string
	// Text is every page's text followed by "\n", in page order.
	Text        string
	Pages       int
	FailedPages []int
}

// Extractor turns a file on disk into a Document.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Document, error)
}

// Registry dispatches extraction by file extension.
type Registry struct {
	openers map[string]Opener
	logger  *zap.Logger
}

// NewRegistry returns a Registry with PDF and plain-text support.
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		openers: make(map[string]Opener),
		logger:  logging.OrNop(logger),
	}
	r.Register(".pdf", OpenPDF)
	r.Register(".txt", OpenText)
	r.Register(".md", OpenText)
	return r
}

// Register associates an extension (including the dot) with an opener.
func (r *Registry) Register(ext string, open Opener) {
	r.openers[strings.ToLower(ext)] = open
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.openers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads every page of the document at path. A page that fails is
// logged and contributes empty text. When nothing but whitespace remains
// the result is an *ExtractionError wrapping ErrNoText.
func (r *Registry) Extract(ctx context.Context, path string) (*Document, error) {
	open, ok := r.openers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, &ExtractionError{Path: path, Err: ErrUnsupported}
	}

	src, closer, err := open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer closer.Close()

	doc := &Document{
		Name:  DocumentName(path),
		Path:  path,
		Pages: src.NumPages(),
	}

	var sb strings.Builder
	for i := 0; i < doc.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := readPage(src, i)
		if err != nil {
			r.logger.Warn("page extraction failed",
				zap.String("document", doc.Name),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			doc.FailedPages = append(doc.FailedPages, i)
			text = ""
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	doc.Text = sb.String()
	if strings.TrimSpace(doc.Text) == "" {
		return nil, &ExtractionError{Path: path, Err: ErrNoText}
	}
	return doc, nil
}

// readPage isolates a single page so that a parser panic on malformed
// content only costs that page.
func readPage(src Source, i int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("page %d: parser panic: %v", i+1, p)
		}
	}()
	return src.PageText(i)
}

// DocumentName derives the stable document name from its path.
func DocumentName(path string) string {
	return filepath.Base(path)
}
