package pdfrenderer

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzRenderer struct {
	dpi float64
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer(dpi int) (*FitzRenderer, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &FitzRenderer{dpi: float64(dpi)}, nil
}

// RenderPDF converts all pages of a PDF file to images using go-fitz
func (r *FitzRenderer) RenderPDF(filename string) ([]image.Image, error) {
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	images := make([]image.Image, 0, numPages)

	for pageNum := 0; pageNum < numPages; pageNum++ {
		img, err := doc.ImageDPI(pageNum, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("unable to render page %d: %w", pageNum+1, err)
		}
		images = append(images, img)
	}

	return images, nil
}

// Close cleans up resources (no-op for Fitz renderer as doc is closed per-render)
func (r *FitzRenderer) Close() error {
	return nil
}
