package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/testsupport"
)

const sampleRequest = `
scenes:
  - text: Rivers carve canyons over millions of years.
    searchTerms: [canyon, river]
  - text: Wind finishes the job.
    prompt: desert wind over sandstone
config:
  orientation: landscape
`

func TestSubmitListAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	reqPath := writeFile(t, filepath.Join(t.TempDir(), "request.yaml"), sampleRequest)

	stdout, _, err := runCLI(t, []string{"submit", reqPath}, env.configPath)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	id := strings.TrimSpace(stdout)
	if id == "" {
		t.Fatal("expected job id on stdout")
	}

	job, err := env.store.GetByID(context.Background(), id)
	if err != nil || job == nil {
		t.Fatalf("expected queued job %s, got %v %v", id, job, err)
	}
	if job.SceneCount != 2 {
		t.Fatalf("expected 2 scenes, got %d", job.SceneCount)
	}

	stdout, _, err = runCLI(t, []string{"jobs"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs failed: %v", err)
	}
	requireContains(t, stdout, id)
	requireContains(t, stdout, "Queued")

	stdout, _, err = runCLI(t, []string{"status", id}, env.configPath)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	requireContains(t, stdout, "Status: processing")
	requireContains(t, stdout, "Position: 1")

	stdout, _, err = runCLI(t, []string{"--json", "status", id}, env.configPath)
	if err != nil {
		t.Fatalf("status --json failed: %v", err)
	}
	var status api.JobStatus
	if err := json.Unmarshal([]byte(stdout), &status); err != nil {
		t.Fatalf("decode status json: %v", err)
	}
	if status.ID != id || !status.Queued {
		t.Fatalf("unexpected json status: %+v", status)
	}
}

func TestSubmitFromStdinAsJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	body := `{"scenes":[{"text":"Hello there","searchTerms":["wave"]}]}`

	stdout, _, err := runCLIWithInput(t, []string{"--json", "submit", "-"}, env.configPath, body)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	var resp api.SubmitResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("decode submit json: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("expected id in json response")
	}
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	env := setupCLITestEnv(t)
	reqPath := writeFile(t, filepath.Join(t.TempDir(), "empty.yaml"), "scenes: []\n")

	_, _, err := runCLI(t, []string{"submit", reqPath}, env.configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	requireContains(t, err.Error(), "at least one scene")
}

func TestDaemonStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	requireContains(t, stdout, "Daemon: running (pid 42)")
	requireContains(t, stdout, "Queue: 0 queued, 0 processing")
}

func TestStatusReportsStoppedDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dead := httptest.NewServer(nil)
	cfg.Paths.APIBind = strings.TrimPrefix(dead.URL, "http://")
	dead.Close()
	configPath := filepath.Join(testsupport.BaseDir(cfg), "reelsmith.toml")
	writeTestConfig(t, configPath, cfg)

	stdout, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	requireContains(t, stdout, "Daemon: not running")

	_, _, err = runCLI(t, []string{"jobs"}, configPath)
	if err == nil {
		t.Fatal("expected jobs to fail without a daemon")
	}
	requireContains(t, err.Error(), "reelsmith serve")
}

func TestWatchFinishedJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.ArtifactPath("done"), 1024)

	stdout, _, err := runCLI(t, []string{"watch", "done"}, env.configPath)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	requireContains(t, stdout, "Status: ready")
	requireContains(t, stdout, "Size: 1.0 kB")

	_, _, err = runCLI(t, []string{"watch", "ghost"}, env.configPath)
	if err == nil {
		t.Fatal("expected failure for job without a video")
	}
	requireContains(t, err.Error(), "job ghost failed")
}

func TestFetchDownloadsAndRemoves(t *testing.T) {
	env := setupCLITestEnv(t)
	artifact := env.cfg.ArtifactPath("done")
	if err := os.WriteFile(artifact, []byte("fake video"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	_, stderr, err := runCLI(t, []string{"fetch", "done", "-o", dest, "--rm"}, env.configPath)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	requireContains(t, stderr, "Saved "+dest)

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "fake video" {
		t.Fatalf("unexpected download contents %q", data)
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Fatalf("expected artifact removed, stat err = %v", err)
	}

	_, _, err = runCLI(t, []string{"fetch", "done", "-o", dest}, env.configPath)
	if err == nil {
		t.Fatal("expected fetch of removed artifact to fail")
	}
	entries, _ := os.ReadDir(filepath.Dir(dest))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".reelsmith-fetch-") {
			t.Fatalf("temp download left behind: %s", entry.Name())
		}
	}
}

func TestJobsClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "reelsmith.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	testsupport.EnqueueJob(t, store, "one")
	testsupport.EnqueueJob(t, store, "two")

	stdout, _, err := runCLI(t, []string{"jobs", "clear"}, configPath)
	if err != nil {
		t.Fatalf("jobs clear failed: %v", err)
	}
	requireContains(t, stdout, "Removed 2 job(s)")
}

func TestJobsClearRefusesWhileDaemonHoldsLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "reelsmith.toml")
	writeTestConfig(t, configPath, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire lock: %v %v", locked, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	_, _, err = runCLI(t, []string{"jobs", "clear"}, configPath)
	if err == nil {
		t.Fatal("expected clear to refuse while locked")
	}
	requireContains(t, err.Error(), "daemon is running")
}

func TestLogsTail(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	requireContains(t, stdout, "[daemon] daemon started")
}

func TestConfigInitAndValidate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PEXELS_API_KEY", "from-env")
	target := filepath.Join(t.TempDir(), "config.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config written: %v", err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite failed: %v", err)
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, stdout, "Config path: "+target)
	requireContains(t, stdout, "Configuration valid")

	cfg, _, _, err := config.Load(target)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !strings.HasPrefix(cfg.Paths.WorkDir, home) {
		t.Fatalf("expected sample paths under HOME, got %q", cfg.Paths.WorkDir)
	}
}
