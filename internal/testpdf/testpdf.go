// Package testpdf builds small, valid PDF documents for tests that exercise a real renderer.
package testpdf

import (
	"path/filepath"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
)

// pageSize is one inch square, so a page renders to DPI x DPI pixels
var pageSize = &pdf.Rectangle{URx: 72, URy: 72}

// Write stores a PDF with the given number of pages at dir/name and returns its path.
// Every page carries a filled square so renderers have something to draw.
func Write(dir, name string, pages int) (string, error) {
	path := filepath.Join(dir, name)

	doc, err := document.CreateMultiPage(path, pageSize, pdf.V1_7, nil)
	if err != nil {
		return "", err
	}

	for i := 0; i < pages; i++ {
		page := doc.AddPage()
		page.Rectangle(18, 18, 36, 36)
		page.Fill()
		if err := page.Close(); err != nil {
			return "", err
		}
	}

	if err := doc.Close(); err != nil {
		return "", err
	}
	return path, nil
}
