package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writePDF writes a minimal PDF with one page per content stream. Each
// page uses the standard Helvetica font as /F1.
func writePDF(t *testing.T, dir, name string, contents []string) string {
	t.Helper()

	var objects []string
	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, c := range contents {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(c), c),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func textStream(s string) string {
	return fmt.Sprintf("BT /F1 12 Tf (%s) Tj ET", s)
}

func TestOpenPDFMapsPagesInOrder(t *testing.T) {
	path := writePDF(t, t.TempDir(), "contract_a.pdf", []string{
		textStream("Contract A states the deadline is May 1."),
		textStream("Page two"),
	})

	src, closer, err := OpenPDF(path)
	if err != nil {
		t.Fatalf("OpenPDF() error: %v", err)
	}
	defer closer.Close()

	if n := src.NumPages(); n != 2 {
		t.Fatalf("NumPages() = %d, want 2", n)
	}
	first, err := src.PageText(0)
	if err != nil {
		t.Fatalf("PageText(0) error: %v", err)
	}
	if first != "Contract A states the deadline is May 1." {
		t.Errorf("PageText(0) = %q", first)
	}
	second, err := src.PageText(1)
	if err != nil {
		t.Fatalf("PageText(1) error: %v", err)
	}
	if second != "Page two" {
		t.Errorf("PageText(1) = %q", second)
	}
}

func TestExtractPDF(t *testing.T) {
	path := writePDF(t, t.TempDir(), "contract_a.pdf", []string{
		textStream("Contract A states the deadline is May 1."),
		textStream("Page two"),
	})

	doc, err := NewRegistry(nil).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if want := "Contract A states the deadline is May 1.\nPage two\n"; doc.Text != want {
		t.Errorf("Text = %q, want %q", doc.Text, want)
	}
	if doc.Pages != 2 || doc.Name != "contract_a.pdf" || len(doc.FailedPages) != 0 {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestExtractPDFWithoutTextLayer(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", []string{"", ""})

	_, err := NewRegistry(nil).Extract(context.Background(), path)
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Extract() error = %v, want *ExtractionError", err)
	}
	if !errors.Is(err, ErrNoText) {
		t.Errorf("Extract() error = %v, want ErrNoText", err)
	}
	if extractErr.Path != path {
		t.Errorf("Path = %q, want %q", extractErr.Path, path)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nthis is not a pdf body"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewRegistry(nil).Extract(context.Background(), path)
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Extract() error = %v, want *ExtractionError", err)
	}
	if errors.Is(err, ErrNoText) {
		t.Errorf("a file that cannot be opened should not report ErrNoText: %v", err)
	}
}
