package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/animation"
	"reelsmith/internal/config"
	"reelsmith/internal/timeline"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "reelsmith.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Pexels.APIKey = "key"
	return cfg
}

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("PEXELS_API_KEY", "pexels-env")
	t.Setenv("REELSMITH_API_TOKEN", "token-env")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "reelsmith", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7491" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Pexels.APIKey != "pexels-env" {
		t.Fatalf("expected Pexels key from env, got %q", cfg.Pexels.APIKey)
	}
	if cfg.Paths.APIToken != "token-env" {
		t.Fatalf("expected API token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Render.FPS != 30 {
		t.Fatalf("unexpected fps: %d", cfg.Render.FPS)
	}
	if cfg.Render.Defaults.Padding() != 1500 || cfg.Render.Defaults.KenBurnsEnabled() {
		t.Fatalf("unexpected render defaults: %+v", cfg.Render.Defaults)
	}
	if cfg.Captions.LineMaxLength != 20 || cfg.Captions.LineCount != 1 || cfg.Captions.MaxGapMs != 1000 {
		t.Fatalf("unexpected caption defaults: %+v", cfg.Captions)
	}
	if cfg.Providers.Speech != "edge_tts" || cfg.Providers.Transcriber != "whisper" {
		t.Fatalf("unexpected provider defaults: %+v", cfg.Providers)
	}
	if !strings.HasPrefix(cfg.Whisper.Model, tempHome) {
		t.Fatalf("expected whisper model path under HOME, got %q", cfg.Whisper.Model)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if got := cfg.QueueDBPath(); got != filepath.Join(cfg.Paths.StateDir, "queue.db") {
		t.Fatalf("unexpected queue path %q", got)
	}
	if got := cfg.ArtifactPath("abc"); got != filepath.Join(cfg.Paths.OutputDir, "abc.mp4") {
		t.Fatalf("unexpected artifact path %q", got)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, `
[paths]
work_dir = "`+filepath.Join(tempDir, "work")+`"
output_dir = "`+filepath.Join(tempDir, "out")+`"

[render]
fps = 25

[render.defaults]
orientation = "Landscape"
transition = "FADE"
caption_position = "sideways"
ken_burns = true
music_volume = 0

[providers]
speech = "OpenAI"
footage = "pollinations"

[openai]
api_key = "abc123"

[whisper]
language = "English"

[workflow]
heartbeat_interval = 20
heartbeat_timeout = 200
`)

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Render.FPS != 25 {
		t.Fatalf("expected fps 25, got %d", cfg.Render.FPS)
	}
	defaults := cfg.Render.Defaults
	if defaults.Orientation != timeline.OrientationLandscape {
		t.Fatalf("expected landscape, got %q", defaults.Orientation)
	}
	if defaults.Transition != animation.TransitionFade {
		t.Fatalf("expected fade transition, got %q", defaults.Transition)
	}
	if defaults.CaptionPosition != timeline.CaptionCenter {
		t.Fatalf("unknown caption position should fall back to center, got %q", defaults.CaptionPosition)
	}
	if !defaults.KenBurnsEnabled() {
		t.Fatal("expected ken burns enabled")
	}
	if defaults.Volume() != 0 {
		t.Fatalf("explicit zero music volume should survive, got %v", defaults.Volume())
	}
	if defaults.Padding() != 1500 {
		t.Fatalf("omitted padding should keep default, got %d", defaults.Padding())
	}
	if cfg.Providers.Speech != "openai" || cfg.Providers.Footage != "pollinations" {
		t.Fatalf("unexpected providers: %+v", cfg.Providers)
	}
	if cfg.Whisper.Language != "en" {
		t.Fatalf("expected language name normalized to en, got %q", cfg.Whisper.Language)
	}
	if cfg.Workflow.HeartbeatInterval != 20 || cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("unexpected workflow timing: %+v", cfg.Workflow)
	}
}

func TestExplicitZeroPaddingSurvivesLoad(t *testing.T) {
	configPath := writeConfig(t, t.TempDir(), `
[render.defaults]
padding_back_ms = 0
`)
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Render.Defaults.PaddingBackMs == nil || cfg.Render.Defaults.Padding() != 0 {
		t.Fatalf("explicit zero padding should survive, got %v", cfg.Render.Defaults.PaddingBackMs)
	}
	if frames := cfg.Render.Defaults.PaddingFrames(cfg.Render.FPS); frames != 0 {
		t.Fatalf("expected no padding frames, got %d", frames)
	}
}

func TestEnvVarDoesNotOverrideConfigFileKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, `
[pexels]
api_key = "file-pexels"
`)
	t.Setenv("PEXELS_API_KEY", "env-pexels")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Pexels.APIKey != "file-pexels" {
		t.Fatalf("expected file key to win, got %q", cfg.Pexels.APIKey)
	}
}

func TestDotEnvSuppliesSecrets(t *testing.T) {
	tempDir := t.TempDir()
	configPath := writeConfig(t, tempDir, `
[providers]
transcriber = "openai"
`)
	env := "OPENAI_API_KEY=dotenv-openai\nPEXELS_API_KEY=dotenv-pexels\n"
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	for _, key := range []string{"OPENAI_API_KEY", "PEXELS_API_KEY"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenAI.APIKey != "dotenv-openai" {
		t.Fatalf("expected OpenAI key from .env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Pexels.APIKey != "dotenv-pexels" {
		t.Fatalf("expected Pexels key from .env, got %q", cfg.Pexels.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	defaults := config.Default()
	if cfg.Render.FPS != defaults.Render.FPS {
		t.Fatalf("sample fps %d differs from default %d", cfg.Render.FPS, defaults.Render.FPS)
	}
	if cfg.Captions != defaults.Captions {
		t.Fatalf("sample captions %+v differ from defaults %+v", cfg.Captions, defaults.Captions)
	}
	if cfg.Animation != defaults.Animation {
		t.Fatalf("sample animation %+v differ from defaults %+v", cfg.Animation, defaults.Animation)
	}
	if cfg.Providers != defaults.Providers {
		t.Fatalf("sample providers %+v differ from defaults %+v", cfg.Providers, defaults.Providers)
	}
	if !strings.Contains(cfg.Paths.WorkDir, "reelsmith") {
		t.Fatalf("expected work dir to contain reelsmith, got %q", cfg.Paths.WorkDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with a pexels key to validate: %v", err)
	}

	cases := map[string]func(*config.Config){
		"missing pexels key":   func(c *config.Config) { c.Pexels.APIKey = "" },
		"unknown speech":       func(c *config.Config) { c.Providers.Speech = "polly" },
		"openai without key":   func(c *config.Config) { c.Providers.Transcriber = "openai" },
		"heartbeat interval":   func(c *config.Config) { c.Workflow.HeartbeatInterval = 0 },
		"timeout <= interval":  func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval },
		"renderer timeout":     func(c *config.Config) { c.Renderer.TimeoutSeconds = 0 },
		"same work and output": func(c *config.Config) { c.Paths.OutputDir = c.Paths.WorkDir },
		"fps too high":         func(c *config.Config) { c.Render.FPS = 240 },
		"zero tts speed":       func(c *config.Config) { c.Render.Defaults.TTSSpeed = 0 },
		"unknown language":     func(c *config.Config) { c.Whisper.Language = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPublicURLFallsBackToBind(t *testing.T) {
	cfg := config.Default()
	if got := cfg.PublicURL("job", "scene-0-voice.mp3"); got != "http://127.0.0.1:7491/api/tmp/job/scene-0-voice.mp3" {
		t.Fatalf("unexpected url %q", got)
	}
	cfg.Paths.PublicBaseURL = "https://media.example.com/"
	if got := cfg.PublicURL("job", "a.mp3"); got != "https://media.example.com/api/tmp/job/a.mp3" {
		t.Fatalf("unexpected url %q", got)
	}
}
