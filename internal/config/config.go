package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/animation"
	"reelsmith/internal/captions"
	"reelsmith/internal/timeline"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir       string `toml:"work_dir"`
	OutputDir     string `toml:"output_dir"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	APIBind       string `toml:"api_bind"`
	APIToken      string `toml:"api_token"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Render holds the frame rate and the render defaults applied to every job.
type Render struct {
	FPS        int                   `toml:"fps"`
	MinFreeGiB float64               `toml:"min_free_gib"`
	Defaults   timeline.RenderConfig `toml:"defaults"`
}

// Providers selects one backend per collaborator category.
type Providers struct {
	Speech      string `toml:"speech"`
	Transcriber string `toml:"transcriber"`
	Footage     string `toml:"footage"`
	Renderer    string `toml:"renderer"`
}

// EdgeTTS configures the edge-tts command line synthesizer.
type EdgeTTS struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// OpenAI configures the hosted speech and transcription endpoints.
type OpenAI struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	SpeechModel        string `toml:"speech_model"`
	SpeechVoice        string `toml:"speech_voice"`
	TranscriptionModel string `toml:"transcription_model"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	MaxRetries         int    `toml:"max_retries"`
}

// Whisper configures a local whisper.cpp transcriber.
type Whisper struct {
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Threads        int    `toml:"threads"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pexels configures stock footage search.
type Pexels struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	PerPage        int    `toml:"per_page"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pollinations configures prompt-generated backgrounds.
type Pollinations struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// FFmpeg configures audio normalisation and duration probing.
type FFmpeg struct {
	FFmpegBinary   string  `toml:"ffmpeg_binary"`
	FFprobeBinary  string  `toml:"ffprobe_binary"`
	LoudnessLUFS   float64 `toml:"loudness_lufs"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Renderer configures the external render command. Args may reference
// {props} and {output}, which are substituted per job.
type Renderer struct {
	Binary         string   `toml:"binary"`
	Args           []string `toml:"args"`
	WorkingDir     string   `toml:"working_dir"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Progress tunes progress stream lifetimes.
type Progress struct {
	HeartbeatSeconds  int `toml:"heartbeat_seconds"`
	CloseGraceMillis  int `toml:"close_grace_millis"`
	SampleIntervalPct int `toml:"sample_interval_pct"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
}

// API contains HTTP surface limits.
type API struct {
	MaxBodyBytes    int64    `toml:"max_body_bytes"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	ShutdownSeconds int      `toml:"shutdown_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: work, output, state and log directories plus the API bind address
//   - Render: frame rate and the render option defaults merged into every job
//   - Captions / Animation: pagination limits and animation curve constants
//   - Providers and the per-backend sections: collaborator selection
//   - Progress / Workflow: stream heartbeats and worker timing
//   - API / Notifications / Logging: outer surfaces
type Config struct {
	Paths         Paths            `toml:"paths"`
	Render        Render           `toml:"render"`
	Captions      captions.Options `toml:"captions"`
	Animation     animation.Params `toml:"animation"`
	Providers     Providers        `toml:"providers"`
	EdgeTTS       EdgeTTS          `toml:"edge_tts"`
	OpenAI        OpenAI           `toml:"openai"`
	Whisper       Whisper          `toml:"whisper"`
	Pexels        Pexels           `toml:"pexels"`
	Pollinations  Pollinations     `toml:"pollinations"`
	FFmpeg        FFmpeg           `toml:"ffmpeg"`
	Renderer      Renderer         `toml:"renderer"`
	Progress      Progress         `toml:"progress"`
	Workflow      Workflow         `toml:"workflow"`
	API           API              `toml:"api"`
	Notifications Notifications    `toml:"notifications"`
	Logging       Logging          `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file next to the config (or in the
// working directory) is loaded first so provider secrets can live outside the TOML.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	loadDotEnv(filepath.Dir(resolvedPath))

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv reads .env files without overriding variables already set in
// the process environment. Missing files are ignored.
func loadDotEnv(dirs ...string) {
	seen := make(map[string]struct{})
	candidates := make([]string, 0, len(dirs)+1)
	for _, dir := range append(dirs, ".") {
		path, err := filepath.Abs(filepath.Join(dir, ".env"))
		if err != nil {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			candidates = append(candidates, path)
		}
	}
	if len(candidates) > 0 {
		_ = godotenv.Load(candidates...)
	}
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath is the SQLite file holding queued jobs.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockPath is the single-instance lock file used by the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "reelsmith.lock")
}

// JobWorkDir is the temporary directory for one job's intermediate media.
func (c *Config) JobWorkDir(jobID string) string {
	return filepath.Join(c.Paths.WorkDir, jobID)
}

// ArtifactPath is where the finished video for a job is written.
func (c *Config) ArtifactPath(jobID string) string {
	return filepath.Join(c.Paths.OutputDir, jobID+".mp4")
}

// PublicURL returns the URL under which the API serves a job's temp file.
func (c *Config) PublicURL(jobID, file string) string {
	base := strings.TrimRight(c.Paths.PublicBaseURL, "/")
	if base == "" {
		base = "http://" + c.Paths.APIBind
	}
	return fmt.Sprintf("%s/api/tmp/%s/%s", base, jobID, file)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

