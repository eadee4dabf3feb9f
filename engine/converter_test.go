package engine

import (
	"errors"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/disintegration/imaging"
)

// fakeRenderer returns canned in-memory pages
type fakeRenderer struct {
	images []image.Image
	err    error
	calls  []string
}

func (f *fakeRenderer) RenderPDF(filename string) ([]image.Image, error) {
	f.calls = append(f.calls, filename)
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

func (f *fakeRenderer) Close() error {
	return nil
}

// solidPages builds n small pages filled with c
func solidPages(n int, c color.Color) []image.Image {
	pages := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		page := image.NewRGBA(image.Rect(0, 0, 4+i, 3))
		for y := 0; y < 3; y++ {
			for x := 0; x < 4+i; x++ {
				page.Set(x, y, c)
			}
		}
		pages = append(pages, page)
	}
	return pages
}

func assertPixel(t *testing.T, path string, want color.Color) {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("Failed to decode %s as an image: %v", path, err)
	}
	gr, gg, gb, ga := img.At(0, 0).RGBA()
	wr, wg, wb, wa := want.RGBA()
	if gr != wr || gg != wg || gb != wb || ga != wa {
		t.Errorf("%s pixel = %v, want %v", path, img.At(0, 0), want)
	}
}

func TestPageFileName(t *testing.T) {
	if got := PageFileName(1); got != "output_page_1.png" {
		t.Errorf("PageFileName(1) = %q", got)
	}
	if got := PageFileName(12); got != "output_page_12.png" {
		t.Errorf("PageFileName(12) = %q", got)
	}
}

func TestConvert_WritesOnePNGPerPageInOrder(t *testing.T) {
	t.Chdir(t.TempDir())

	renderer := &fakeRenderer{images: solidPages(3, color.RGBA{R: 255, A: 255})}
	converter := Converter{Renderer: renderer}

	paths, err := converter.Convert("sample.pdf")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	want := []string{"output_page_1.png", "output_page_2.png", "output_page_3.png"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	if !reflect.DeepEqual(renderer.calls, []string{"sample.pdf"}) {
		t.Errorf("renderer called with %v, want [sample.pdf]", renderer.calls)
	}

	for i, path := range paths {
		img, err := imaging.Open(path)
		if err != nil {
			t.Fatalf("Page %d is not a decodable image: %v", i+1, err)
		}
		// page widths differ so ordering is observable
		if img.Bounds().Dx() != 4+i {
			t.Errorf("%s width = %d, want %d", path, img.Bounds().Dx(), 4+i)
		}
	}
}

func TestConvert_OutputDir(t *testing.T) {
	outDir := t.TempDir()
	converter := Converter{Renderer: &fakeRenderer{images: solidPages(2, color.White)}, OutputDir: outDir}

	paths, err := converter.Convert("doc.pdf")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	for i, path := range paths {
		want := filepath.Join(outDir, PageFileName(i+1))
		if path != want {
			t.Errorf("path %d = %q, want %q", i, path, want)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected %s to exist: %v", path, err)
		}
	}
}

func TestConvert_ZeroPages(t *testing.T) {
	outDir := t.TempDir()
	converter := Converter{Renderer: &fakeRenderer{}, OutputDir: outDir}

	paths, err := converter.Convert("empty.pdf")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if paths == nil || len(paths) != 0 {
		t.Errorf("paths = %#v, want empty non-nil slice", paths)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no files, found %d", len(entries))
	}
}

func TestConvert_SecondRunOverwritesFirst(t *testing.T) {
	outDir := t.TempDir()
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	first := Converter{Renderer: &fakeRenderer{images: solidPages(2, red)}, OutputDir: outDir}
	firstPaths, err := first.Convert("doc.pdf")
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	assertPixel(t, firstPaths[0], red)

	second := Converter{Renderer: &fakeRenderer{images: solidPages(2, blue)}, OutputDir: outDir}
	secondPaths, err := second.Convert("doc.pdf")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if !reflect.DeepEqual(firstPaths, secondPaths) {
		t.Errorf("Runs produced different names: %v vs %v", firstPaths, secondPaths)
	}
	for _, path := range secondPaths {
		assertPixel(t, path, blue)
	}
}

func TestConvert_RendererErrorIsReturnedUnchanged(t *testing.T) {
	outDir := t.TempDir()
	renderErr := errors.New("unable to open PDF document: broken xref")
	converter := Converter{Renderer: &fakeRenderer{err: renderErr}, OutputDir: outDir}

	paths, err := converter.Convert("broken.pdf")
	if err != renderErr {
		t.Fatalf("err = %v, want the renderer's error unchanged", err)
	}
	if len(paths) != 0 {
		t.Errorf("paths = %v, want none", paths)
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("Expected no files after a render failure, found %d", len(entries))
	}
}

func TestConvert_SaveFailureKeepsEarlierPages(t *testing.T) {
	outDir := t.TempDir()
	// a directory where page 2 should go makes its save fail
	if err := os.Mkdir(filepath.Join(outDir, PageFileName(2)), 0755); err != nil {
		t.Fatalf("Failed to create blocking directory: %v", err)
	}

	converter := Converter{Renderer: &fakeRenderer{images: solidPages(3, color.Black)}, OutputDir: outDir}
	paths, err := converter.Convert("doc.pdf")
	if err == nil {
		t.Fatal("Expected an error when a page cannot be saved")
	}
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		t.Errorf("Expected a filesystem error, got %T: %v", err, err)
	}

	if !reflect.DeepEqual(paths, []string{filepath.Join(outDir, PageFileName(1))}) {
		t.Errorf("paths = %v, want only page 1", paths)
	}
	if _, err := os.Stat(filepath.Join(outDir, PageFileName(1))); err != nil {
		t.Errorf("Page 1 should remain on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, PageFileName(3))); !os.IsNotExist(err) {
		t.Errorf("Page 3 should not have been written, stat err = %v", err)
	}
}
