package pdfrenderer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drummonds/pdf2png/internal/testpdf"
)

func TestNewRenderer_Unknown(t *testing.T) {
	renderer, err := NewRenderer("ghostscript", 0)
	if err == nil {
		renderer.Close()
		t.Fatal("Expected an error for an unknown renderer")
	}
	if !strings.Contains(err.Error(), `unknown renderer "ghostscript"`) {
		t.Errorf("Unexpected error text: %v", err)
	}
}

func TestNewRenderer_Fitz(t *testing.T) {
	for _, name := range []string{"fitz", "MuPDF"} {
		renderer, err := NewRenderer(name, 0)
		if err != nil {
			t.Fatalf("NewRenderer(%q) failed: %v", name, err)
		}
		fitzRenderer, ok := renderer.(*FitzRenderer)
		if !ok {
			t.Fatalf("NewRenderer(%q) returned %T, want *FitzRenderer", name, renderer)
		}
		if fitzRenderer.dpi != DefaultDPI {
			t.Errorf("dpi = %v, want default %d", fitzRenderer.dpi, DefaultDPI)
		}
		renderer.Close()
	}
}

// renderBackends returns the real renderers, skipping in short mode as PDFium start-up is slow
func renderBackends(t *testing.T) map[string]Renderer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PDF rendering integration test in short mode")
	}

	backends := map[string]Renderer{}
	for _, name := range []string{"pdfium", "fitz"} {
		renderer, err := NewRenderer(name, 72)
		if err != nil {
			t.Fatalf("Failed to create %s renderer: %v", name, err)
		}
		t.Cleanup(func() { renderer.Close() })
		backends[name] = renderer
	}
	return backends
}

func TestRenderPDF_Pages(t *testing.T) {
	backends := renderBackends(t)
	pdfPath, err := testpdf.Write(t.TempDir(), "sample.pdf", 3)
	if err != nil {
		t.Fatalf("Failed to write sample PDF: %v", err)
	}

	for name, renderer := range backends {
		t.Run(name, func(t *testing.T) {
			images, err := renderer.RenderPDF(pdfPath)
			if err != nil {
				t.Fatalf("RenderPDF failed: %v", err)
			}
			if len(images) != 3 {
				t.Fatalf("Expected 3 pages, got %d", len(images))
			}
			for i, img := range images {
				if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
					t.Errorf("Page %d rendered empty: %v", i+1, img.Bounds())
				}
			}
		})
	}
}

func TestRenderPDF_MissingFile(t *testing.T) {
	backends := renderBackends(t)
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	for name, renderer := range backends {
		t.Run(name, func(t *testing.T) {
			images, err := renderer.RenderPDF(missing)
			if err == nil {
				t.Fatalf("Expected an error, got %d images", len(images))
			}
		})
	}

	// PDFium reads the file itself so the cause stays visible
	_, err := backends["pdfium"].RenderPDF(missing)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist in chain, got %v", err)
	}
}

func TestRenderPDF_NotAPDF(t *testing.T) {
	backends := renderBackends(t)
	path := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(path, []byte("this is not a PDF document"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	for name, renderer := range backends {
		t.Run(name, func(t *testing.T) {
			if _, err := renderer.RenderPDF(path); err == nil {
				t.Error("Expected an error for a non-PDF file")
			}
		})
	}
}

func TestPDFiumRenderer_Closed(t *testing.T) {
	backends := renderBackends(t)
	renderer := backends["pdfium"]
	renderer.Close()

	pdfPath, err := testpdf.Write(t.TempDir(), "sample.pdf", 1)
	if err != nil {
		t.Fatalf("Failed to write sample PDF: %v", err)
	}
	if _, err := renderer.RenderPDF(pdfPath); err == nil {
		t.Error("Expected an error from a closed renderer")
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"unable to open PDF document: corrupt"}`, "unable to open PDF document: corrupt"},
		{`{"message":"Request Entity Too Large"}`, "Request Entity Too Large"},
		{"upstream unavailable\n", "upstream unavailable"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := errorDetail([]byte(tt.body)); got != tt.want {
			t.Errorf("errorDetail(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
