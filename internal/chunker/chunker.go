package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultSize    = 800
	DefaultOverlap = 100
)

var (
	ErrEmptyInput    = errors.New("input text is empty")
	ErrInvalidConfig = errors.New("invalid chunker configuration")
)

// Error reports input the chunker cannot split. The document it came
// from is skipped.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "chunking: " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Chunk is a contiguous span of the trimmed document text. Start and End
// are rune offsets into that text; Content is exactly text[Start:End].
type Chunk struct {
	Content string
	Start   int
	End     int
}

// separators are tried coarsest first. A chunk ends right after the last
// separator of the first level that occurs inside its window.
var separators = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? ", "; ", "。"},
}

// Chunker splits text into overlapping spans of at most Size runes.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker. overlap must be in [0, size).
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, &Error{Err: fmt.Errorf("%w: size %d must be positive", ErrInvalidConfig, size)}
	}
	if overlap < 0 || overlap >= size {
		return nil, &Error{Err: fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, overlap, size)}
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split trims text and cuts it into chunks. Every chunk after the first
// starts with the last Overlap runes of its predecessor, so dropping those
// runes and concatenating yields the trimmed text again.
func (c *Chunker) Split(text string) ([]Chunk, error) {
	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	if n == 0 {
		return nil, &Error{Err: ErrEmptyInput}
	}

	var chunks []Chunk
	start := 0
	for {
		limit := start + c.size
		if limit >= n {
			chunks = append(chunks, Chunk{Content: string(runes[start:n]), Start: start, End: n})
			return chunks, nil
		}

		// end must leave the next chunk starting past this one.
		end := c.boundary(runes, start+c.overlap, limit)
		chunks = append(chunks, Chunk{Content: string(runes[start:end]), Start: start, End: end})
		start = end - c.overlap
	}
}

// boundary picks the cut position in (lo, hi]: the last paragraph break,
// else the last line break, else the last sentence end, else the last
// whitespace, else hi itself.
func (c *Chunker) boundary(runes []rune, lo, hi int) int {
	for _, level := range separators {
		best := -1
		for _, sep := range level {
			if p := lastSeparatorEnd(runes, []rune(sep), lo, hi); p > best {
				best = p
			}
		}
		if best > 0 {
			return best
		}
	}
	for p := hi; p > lo; p-- {
		if unicode.IsSpace(runes[p-1]) {
			return p
		}
	}
	return hi
}

// lastSeparatorEnd returns the largest p in (lo, hi] such that sep ends at
// p, or -1.
func lastSeparatorEnd(runes, sep []rune, lo, hi int) int {
	for p := hi; p > lo; p-- {
		if p < len(sep) {
			break
		}
		if hasSuffixAt(runes, sep, p) {
			return p
		}
	}
	return -1
}

func hasSuffixAt(runes, sep []rune, p int) bool {
	off := p - len(sep)
	for i, r := range sep {
		if runes[off+i] != r {
			return false
		}
	}
	return true
}

// Contents returns the text of each chunk.
func Contents(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Content
	}
	return out
}
