package extract

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

type pdfSource struct {
	reader *pdf.Reader
}

// OpenPDF opens a PDF file for page-by-page text extraction.
func OpenPDF(path string) (Source, io.Closer, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfSource{reader: r}, f, nil
}

func (s *pdfSource) NumPages() int {
	return s.reader.NumPage()
}

func (s *pdfSource) PageText(i int) (string, error) {
	page := s.reader.Page(i + 1)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
