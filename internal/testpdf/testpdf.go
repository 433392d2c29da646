// Package testpdf writes small text-only PDFs for tests.
package testpdf

import (
	"testing"

	"github.com/go-pdf/fpdf"
)

// Write creates a PDF at path with one page per element of pages, each
// line of a page rendered as its own text row in 12pt Helvetica.
func Write(tb testing.TB, path string, pages ...[]string) {
	tb.Helper()

	doc := fpdf.New("P", "pt", "Letter", "")
	for _, lines := range pages {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		for _, line := range lines {
			doc.CellFormat(0, 20, line, "", 1, "L", false, 0, "")
		}
	}
	if err := doc.OutputFileAndClose(path); err != nil {
		tb.Fatalf("failed to write test PDF %s: %v", path, err)
	}
}
