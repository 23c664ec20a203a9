package pdfdir

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// extractPages returns the plain text of each page, index 0 being page
// 1. Pages that fail text extraction are returned empty rather than
// failing the whole document; a document-wide parse error fails it.
func extractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}
