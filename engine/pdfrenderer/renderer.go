package pdfrenderer

import (
	"fmt"
	"image"
	"strings"
)

// DefaultDPI is the resolution pages are rendered at when none is configured
const DefaultDPI = 200

// Renderer defines the interface for PDF to image conversion
type Renderer interface {
	// RenderPDF converts all pages of a PDF file to images
	// Returns a slice of images, one per page, in page order
	RenderPDF(filename string) ([]image.Image, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates the renderer registered under name.
// An empty name selects PDFium (pure Go, no CGo).
func NewRenderer(name string, dpi int) (Renderer, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pdfium":
		return NewPDFiumRenderer(dpi)
	case "fitz", "mupdf":
		return NewFitzRenderer(dpi)
	default:
		return nil, fmt.Errorf("unknown renderer %q", name)
	}
}
