package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/providers/factory"
	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

const testToken = "cli-secret"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	store      *queue.Store
	manager    *workflow.Manager
	server     *httptest.Server
}

// setupCLITestEnv serves the API over a manager that is never started, so
// submitted jobs stay queued for the duration of the test.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(testToken))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	collab, err := factory.Build(cfg)
	if err != nil {
		t.Fatalf("build collaborators: %v", err)
	}
	broadcaster := progress.NewBroadcaster(progress.Options{
		HeartbeatInterval: time.Second,
		Logger:            logging.NewNop(),
	})
	t.Cleanup(broadcaster.Close)
	manager := workflow.NewManager(cfg, store, collab, broadcaster, logging.NewNop())

	hub := logging.NewStreamHub(64)
	hub.Publish(logging.LogEvent{
		Timestamp: time.Now(),
		Level:     "info",
		Message:   "daemon started",
		Component: "daemon",
	})

	server := httptest.NewServer(api.NewRouter(api.Options{
		Jobs:     manager,
		Progress: broadcaster,
		Status: func(ctx context.Context) api.DaemonStatus {
			return api.DaemonStatus{
				Running:  true,
				PID:      42,
				Workflow: api.FromStatusSummary(manager.Summary(ctx)),
			}
		},
		Logs:    hub,
		WorkDir: cfg.Paths.WorkDir,
		Token:   testToken,
		Logger:  logging.NewNop(),
	}))
	t.Cleanup(server.Close)

	cfg.Paths.APIBind = strings.TrimPrefix(server.URL, "http://")
	configPath := filepath.Join(testsupport.BaseDir(cfg), "reelsmith.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		store:      store,
		manager:    manager,
		server:     server,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, "")
}

func runCLIWithInput(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nwork_dir = %q\noutput_dir = %q\nstate_dir = %q\nlog_dir = %q\napi_bind = %q\napi_token = %q\n\n[pexels]\napi_key = %q\n",
		cfg.Paths.WorkDir,
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Paths.APIToken,
		cfg.Pexels.APIKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
