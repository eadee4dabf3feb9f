package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// InitializeSchedules starts the retention sweep cron job.
// A RetentionMinutes of zero or less keeps jobs forever and schedules nothing.
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	c := cron.New()
	if serverHandler.ServerConfig.RetentionMinutes <= 0 {
		Logger.Info("Job retention disabled, converted pages are kept until deleted")
		return c
	}

	var cleanupJob cron.Job
	cleanupJob = cron.FuncJob(serverHandler.cleanupJobFunc)
	cleanupJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cleanupJob) //ensure we don't kick off another if old one is still running

	// Run cleanup immediately at startup through the same chain so a slow sweep blocks the first tick
	Logger.Info("Running job cleanup at startup")
	go cleanupJob.Run()

	if _, err := c.AddJob(fmt.Sprintf("@every %dm", serverHandler.ServerConfig.CleanupInterval), cleanupJob); err != nil {
		Logger.Error("Unable to schedule job cleanup", "error", err)
		return c
	}
	Logger.Info("Adding job cleanup scheduler", "interval_minutes", serverHandler.ServerConfig.CleanupInterval)
	c.Start()
	return c
}

func (serverHandler *ServerHandler) cleanupJobFunc() {
	retention := time.Duration(serverHandler.ServerConfig.RetentionMinutes) * time.Minute
	removed, err := CleanupExpiredJobs(serverHandler.ServerConfig.OutputPath, retention, time.Now())
	if err != nil {
		Logger.Error("Job cleanup failed", "outputPath", serverHandler.ServerConfig.OutputPath, "error", err)
		return
	}
	if removed > 0 {
		Logger.Info("Removed expired jobs", "count", removed)
	}
}

// CleanupExpiredJobs deletes job folders under outputPath that were last modified before now minus retention.
// Entries that are not ULID named directories are left alone.
func CleanupExpiredJobs(outputPath string, retention time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := ulid.ParseStrict(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			Logger.Warn("Unable to stat job directory", "name", entry.Name(), "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		jobDir := filepath.Join(outputPath, entry.Name())
		if err := os.RemoveAll(jobDir); err != nil {
			Logger.Error("Unable to remove expired job", "dir", jobDir, "error", err)
			continue
		}
		Logger.Debug("Removed expired job", "dir", jobDir)
		removed++
	}
	return removed, nil
}
