package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	config "github.com/drummonds/pdf2png/config"
	engine "github.com/drummonds/pdf2png/engine"
	"github.com/drummonds/pdf2png/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = Logger
	engine.Logger = Logger
}

// rendererFactory builds the renderer for a run; tests replace it with a fake
type rendererFactory func(renderConfig config.RenderConfig) (pdfrenderer.Renderer, error)

func newRenderer(renderConfig config.RenderConfig) (pdfrenderer.Renderer, error) {
	if renderConfig.Renderer == "remote" {
		return pdfrenderer.NewRemoteRenderer(renderConfig.ServiceURL)
	}
	return pdfrenderer.NewRenderer(renderConfig.Renderer, renderConfig.DPI)
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr, newRenderer))
}

// run converts the PDF named in args[1] into output_page_<N>.png files in the working directory
// and prints their paths. It returns the process exit code.
func run(args []string, stdout, stderr io.Writer, makeRenderer rendererFactory) int {
	if len(args) != 2 {
		fmt.Fprintf(stdout, "Usage: %s <pdf_path>\n", programName(args))
		return 1
	}
	pdfPath := args[1]

	renderConfig, logger := config.SetupCLI()
	injectGlobals(logger)

	renderer, err := makeRenderer(renderConfig)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer renderer.Close()

	converter := engine.Converter{Renderer: renderer}
	paths, err := converter.Convert(pdfPath)
	if err != nil {
		Logger.Info("Conversion failed", "fileName", pdfPath, "pagesWritten", len(paths), "error", err)
		fmt.Fprintln(stderr, err)
		return 1
	}

	for _, path := range paths {
		fmt.Fprintln(stdout, path)
	}
	return 0
}

func programName(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return "pdf2png"
	}
	return filepath.Base(args[0])
}
