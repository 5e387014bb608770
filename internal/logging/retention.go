package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const runLogPattern = "reelsmith-*.log"

// LogRetention prunes run logs older than Days from Dir. Active is the log
// the current process writes to and is never removed.
type LogRetention struct {
	Dir    string
	Days   int
	Active string
}

// NewLogRetention builds the retention policy for the configured log
// directory.
func NewLogRetention(cfg *config.Config, active string) LogRetention {
	if cfg == nil {
		return LogRetention{}
	}
	return LogRetention{
		Dir:    strings.TrimSpace(cfg.Paths.LogDir),
		Days:   cfg.Logging.RetentionDays,
		Active: active,
	}
}

// Sweep removes expired run logs and reports how many were deleted. A zero
// Days value disables pruning.
func (r LogRetention) Sweep(logger *slog.Logger) int {
	if r.Days <= 0 || r.Dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(r.Dir, runLogPattern))
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -r.Days)
	active := absPath(r.Active)

	removed := 0
	for _, path := range matches {
		if active != "" && absPath(path) == active {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("run logs pruned",
			Int("removed", removed),
			Int("retention_days", r.Days),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

func absPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
