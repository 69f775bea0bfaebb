package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
	"github.com/creatorlens/backend/internal/utils"
)

const (
	DefaultRetentionDays = 30
	minRetentionDays     = 1
	maxRetentionDays     = 365

	// deleteBatchSize keeps each DELETE short so the log table never
	// holds a long lock while the scrapers keep writing.
	deleteBatchSize = 1000
)

// Summary reports what one cleanup run removed.
type Summary struct {
	DeletedRows  int64 `json:"deleted_rows"`
	DeletedFiles int   `json:"deleted_files"`
	DeletedBytes int64 `json:"deleted_bytes"`
}

// Job purges expired log rows and stale local log files.
type Job struct {
	queries *db.Queries
	logDir  string
	log     *slog.Logger

	now func() time.Time
}

// New builds a cleanup job. logDir may be empty, which disables the
// file sweep.
func New(queries *db.Queries, logDir string) *Job {
	return &Job{
		queries: queries,
		logDir:  logDir,
		log:     logger.WithComponent("cleanup"),
		now:     time.Now,
	}
}

// ClampRetention forces the retention window into [1,365] days. Zero
// and negative values mean "not set" and take the default rather than
// collapsing to a one-day window.
func ClampRetention(days int) int {
	if days <= 0 {
		return DefaultRetentionDays
	}
	return utils.ClampInt(days, minRetentionDays, maxRetentionDays)
}

// Run executes one cleanup pass. On a mid-run failure it returns what
// was already removed alongside the error.
func (j *Job) Run(ctx context.Context, retentionDays int) (Summary, error) {
	days := ClampRetention(retentionDays)
	cutoff := j.now().Add(-time.Duration(days) * 24 * time.Hour)
	var sum Summary

	j.log.Info("cleanup starting",
		"retention_days", days,
		"cutoff", cutoff.Format(time.RFC3339),
	)

	for {
		n, err := j.queries.DeleteSystemLogsBefore(ctx, db.DeleteSystemLogsBeforeParams{
			Cutoff:    cutoff,
			BatchSize: deleteBatchSize,
		})
		if err != nil {
			metrics.CleanupRunsTotal.WithLabelValues("failed").Inc()
			return sum, fmt.Errorf("delete log batch: %w", err)
		}
		if n == 0 {
			break
		}
		sum.DeletedRows += n
		if err := ctx.Err(); err != nil {
			metrics.CleanupRunsTotal.WithLabelValues("failed").Inc()
			return sum, err
		}
	}

	files, size, err := j.sweepFiles(cutoff)
	if err != nil {
		metrics.CleanupRunsTotal.WithLabelValues("failed").Inc()
		return sum, err
	}
	sum.DeletedFiles = files
	sum.DeletedBytes = size

	metrics.CleanupRunsTotal.WithLabelValues("success").Inc()
	metrics.CleanupDeletedRows.Add(float64(sum.DeletedRows))
	metrics.CleanupDeletedFiles.Add(float64(sum.DeletedFiles))
	metrics.CleanupDeletedBytes.Add(float64(sum.DeletedBytes))

	j.log.Log(ctx, logger.LevelSuccess, "cleanup complete",
		"deleted_rows", sum.DeletedRows,
		"deleted_files", sum.DeletedFiles,
		"reclaimed", humanize.Bytes(uint64(sum.DeletedBytes)),
	)
	return sum, nil
}

// sweepFiles removes files under the log directory with an mtime
// older than cutoff. Subdirectories are left alone, and a missing
// directory is not an error: nothing has been logged to disk yet.
func (j *Job) sweepFiles(cutoff time.Time) (int, int64, error) {
	if j.logDir == "" {
		return 0, 0, nil
	}
	entries, err := os.ReadDir(j.logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read log dir: %w", err)
	}

	var files int
	var size int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.logDir, entry.Name())); err != nil {
			j.log.Warn("log file removal failed", "file", entry.Name(), "error", err)
			continue
		}
		files++
		size += info.Size()
	}
	return files, size, nil
}
