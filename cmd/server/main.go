package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

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

// @title pdf2png Conversion API
// @version 1.0
// @description Renders uploaded PDF documents to one PNG image per page

// @host localhost:8002
// @BasePath /api
// @schemes http

// @tag.name Conversion
// @tag.description PDF upload, job listing and page download

func main() {
	// Parse command-line flags
	port := flag.String("port", "", "Port to run the conversion server on (overrides SERVER_PORT)")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🖼️  pdf2png Conversion Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• POST a PDF to /api/convert")
	fmt.Println("• List jobs with GET /api/convert")
	fmt.Println("• Pages served from /api/convert/:id/:page")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	if *port != "" {
		serverConfig.ListenAddrPort = *port
	}

	renderer, err := pdfrenderer.NewRenderer(serverConfig.Renderer, serverConfig.DPI)
	if err != nil {
		Logger.Error("Unable to create PDF renderer", "renderer", serverConfig.Renderer, "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer renderer.Close()
	Logger.Info("PDF renderer ready", "renderer", serverConfig.Renderer, "dpi", serverConfig.DPI)

	e := echo.New()
	e.HideBanner = true

	// JSON 404 for unknown endpoints
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler := engine.ServerHandler{Echo: e, ServerConfig: serverConfig, Renderer: renderer}
	if err := serverHandler.StartupChecks(); err != nil {
		Logger.Error("Startup checks failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	scheduler := serverHandler.InitializeSchedules() //initialize all the cron jobs
	defer scheduler.Stop()

	if serverConfig.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", serverConfig.MaxUploadMB)))
	e.Use(middleware.Recover())

	// Request logging
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	serverHandler.RegisterRoutes()

	addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
	Logger.Info("Starting conversion server", "address", addr)
	fmt.Printf("\n✅  Conversion server running on %s\n", addr)
	if serverConfig.ListenAddrIP == "" {
		if ip, err := config.GetPreferredOutboundIP(); err == nil {
			fmt.Printf("🌐  Reachable on your network at http://%s:%s/api/\n", ip, serverConfig.ListenAddrPort)
		}
	}
	fmt.Printf("🏥  Health check: http://%s/api/health\n\n", addr)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
