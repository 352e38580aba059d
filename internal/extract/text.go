package extract

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// pageBreak separates pages in plain-text documents.
const pageBreak = "\f"

type textSource struct {
	pages []string
}

// OpenText reads a plain-text or Markdown file. Form feeds split pages.
func OpenText(path string) (Source, io.Closer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read text: %w", err)
	}
	return &textSource{pages: strings.Split(string(data), pageBreak)}, nopCloser{}, nil
}

func (s *textSource) NumPages() int { return len(s.pages) }

func (s *textSource) PageText(i int) (string, error) {
	return strings.TrimRight(s.pages[i], "\n"), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
