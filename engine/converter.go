package engine

import (
	"fmt"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/drummonds/pdf2png/engine/pdfrenderer"
)

// PageFileName returns the output file name for the 1-based page number
func PageFileName(page int) string {
	return fmt.Sprintf("output_page_%d.png", page)
}

// Converter renders a PDF and saves one PNG per page
type Converter struct {
	Renderer pdfrenderer.Renderer
	// OutputDir is joined in front of every page file name; empty means the working directory
	OutputDir string
}

// Convert renders pdfPath and writes output_page_<N>.png for every page, returning the paths in page order.
// Errors from the renderer or from saving are returned as they are. On a save error the paths
// already written are returned alongside it and stay on disk. Existing files are overwritten.
func (c *Converter) Convert(pdfPath string) ([]string, error) {
	images, err := c.Renderer.RenderPDF(pdfPath)
	if err != nil {
		return nil, err
	}
	Logger.Debug("PDF rendered", "fileName", pdfPath, "pages", len(images))

	paths := make([]string, 0, len(images))
	for i, img := range images {
		path := filepath.Join(c.OutputDir, PageFileName(i+1))
		if err := imaging.Save(img, path); err != nil {
			return paths, err
		}
		Logger.Debug("Saved page", "page", i+1, "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}
