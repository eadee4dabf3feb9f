package engine

import (
	"fmt"
	"os"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if serverHandler.Renderer == nil {
		return fmt.Errorf("no PDF renderer configured")
	}
	return outputDirectoryChecks(serverHandler.ServerConfig.OutputPath)
}

// outputDirectoryChecks ensures the output directory exists
func outputDirectoryChecks(outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path not configured")
	}

	outputInfo, err := os.Stat(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating output directory", "path", outputPath)
			if err := os.MkdirAll(outputPath, 0755); err != nil {
				Logger.Error("Unable to create output directory", "path", outputPath, "error", err)
				return err
			}
			return nil
		}
		Logger.Error("Unable to access output directory", "path", outputPath, "error", err)
		return err
	}

	if !outputInfo.IsDir() {
		return fmt.Errorf("output path %s is not a directory", outputPath)
	}

	Logger.Info("Output directory exists", "path", outputPath)
	return nil
}
