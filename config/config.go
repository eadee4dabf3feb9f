package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// RenderConfig contains the settings shared by the command line tool and the server
type RenderConfig struct {
	Renderer   string
	DPI        int
	ServiceURL string // conversion server used by the remote renderer
}

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	OutputPath       string // absolute path, one subfolder per conversion job
	MaxUploadMB      int
	RetentionMinutes int
	CleanupInterval  int // minutes between retention sweeps
	EnableCORS       bool
	RenderConfig
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// loadEnvFiles reads .env style files, silently ignoring missing ones
func loadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")
}

func loadRenderConfig() RenderConfig {
	renderConfig := RenderConfig{
		Renderer:   strings.ToLower(getEnv("RENDERER", "pdfium")),
		DPI:        getEnvInt("RENDER_DPI", 200),
		ServiceURL: getEnv("RENDER_SERVICE_URL", ""),
	}
	if renderConfig.DPI <= 0 {
		renderConfig.DPI = 200
	}
	return renderConfig
}

// SetupCLI loads configuration for the command line converter.
// Logs go to stderr at warn level unless configured otherwise so stdout carries only page paths.
func SetupCLI() (RenderConfig, *slog.Logger) {
	loadEnvFiles()

	logger := setupLogging("warn", "stderr")
	Logger = logger

	renderConfig := loadRenderConfig()
	logger.Debug("Render configuration loaded", "renderer", renderConfig.Renderer, "dpi", renderConfig.DPI)

	return renderConfig, logger
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	loadEnvFiles()

	logger := setupLogging("info", "file")
	Logger = logger

	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8002")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	outputDir := filepath.ToSlash(getEnv("OUTPUT_PATH", "converted"))
	outputDirAbs, err := filepath.Abs(outputDir)
	if err != nil {
		logger.Error("Failed creating absolute path for output directory", "error", err)
		outputDirAbs = outputDir
	}
	serverConfigLive.OutputPath = outputDirAbs

	serverConfigLive.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", 32)
	serverConfigLive.RetentionMinutes = getEnvInt("RETENTION_MINUTES", 60)
	serverConfigLive.CleanupInterval = getEnvInt("CLEANUP_INTERVAL", 10)
	if serverConfigLive.CleanupInterval <= 0 {
		serverConfigLive.CleanupInterval = 10
	}

	serverConfigLive.EnableCORS = getEnvBool("CORS_ENABLED", true)

	serverConfigLive.RenderConfig = loadRenderConfig()

	fmt.Println("\n========================================")
	fmt.Println("   pdf2png - PDF to PNG conversion service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	if getEnv("LOG_OUTPUT", "file") == "file" {
		fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "pdf2png.log"))
	}

	logger.Info("Server configuration loaded",
		"renderer", serverConfigLive.Renderer,
		"dpi", serverConfigLive.DPI,
		"outputPath", serverConfigLive.OutputPath,
		"retentionMinutes", serverConfigLive.RetentionMinutes)

	return serverConfigLive, logger
}

// parseLevel maps a LOG_LEVEL value onto a slog level
func parseLevel(logLevel string, fallback slog.Level) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// setupLogging configures the application logger
func setupLogging(defaultLevel, defaultOutput string) *slog.Logger {
	level := parseLevel(getEnv("LOG_LEVEL", defaultLevel), slog.LevelDebug)
	handlerOptions := &slog.HandlerOptions{Level: level}

	var logWriter io.Writer

	switch getEnv("LOG_OUTPUT", defaultOutput) {
	case "stdout":
		logWriter = os.Stdout
	case "stderr":
		logWriter = os.Stderr
	default:
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "pdf2png.log")))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating log file path: %v\n", err)
			logWriter = os.Stderr
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
				logWriter = os.Stderr
			} else {
				logWriter = logFile
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// GetPreferredOutboundIP gets preferred outbound IP of this machine
func GetPreferredOutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP, nil
}
