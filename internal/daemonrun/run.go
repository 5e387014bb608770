// Package daemonrun assembles and runs the daemon process: logging, queue
// store, collaborators, workflow manager and API server.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/config"
	"reelsmith/internal/daemon"
	"reelsmith/internal/deps"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/progress"
	"reelsmith/internal/providers/factory"
	"reelsmith/internal/queue"
	"reelsmith/internal/workflow"
)

const retentionSweepInterval = 6 * time.Hour

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the reelsmith daemon and blocks until SIGINT/SIGTERM or ctx
// ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := logging.RunLogPath(cfg.Paths.LogDir, time.Now())
	logHub := logging.NewStreamHub(4096)
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    logPath,
		Stream:      logHub,
		Color:       cfg.Logging.Format == "console",
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update reelsmith.log link: %v\n", err)
	}
	pidPath := filepath.Join(cfg.Paths.StateDir, "reelsmith.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_open_failed"),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or clear the queue database"),
		)
		return err
	}

	collab, err := factory.Build(cfg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("build collaborators: %w", err)
	}

	broadcaster := progress.NewBroadcaster(progress.Options{
		HeartbeatInterval: time.Duration(cfg.Progress.HeartbeatSeconds) * time.Second,
		CloseGrace:        time.Duration(cfg.Progress.CloseGraceMillis) * time.Millisecond,
		Logger:            logger,
	})
	manager := workflow.NewManager(cfg, store, collab, broadcaster, logger,
		workflow.WithNotifier(notifications.NewService(cfg)),
	)

	d, err := daemon.New(cfg, store, logger, manager, logHub)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return err
		}
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "no jobs will be processed"),
		)
		return err
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		sweepLogs(groupCtx, logger, cfg, logPath)
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("reelsmith daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
		return nil
	})
	return group.Wait()
}

// sweepLogs prunes old run logs at startup and periodically afterwards.
func sweepLogs(ctx context.Context, logger *slog.Logger, cfg *config.Config, active string) {
	retention := logging.NewLogRetention(cfg, active)
	retention.Sweep(logger)

	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			retention.Sweep(logger)
		}
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "reelsmith.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("speech_provider", cfg.Providers.Speech),
		logging.String("transcriber_provider", cfg.Providers.Transcriber),
		logging.String("footage_provider", cfg.Providers.Footage),
		logging.Bool("pexels_key_present", cfg.Pexels.APIKey != ""),
		logging.Bool("openai_key_present", cfg.OpenAI.APIKey != ""),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		attrs = append(attrs, logging.Bool(strings.ToLower(strings.ReplaceAll(status.Name, " ", "_"))+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
