package config

import (
	"errors"
	"fmt"
	"strings"
)

// Provider names accepted per collaborator category.
var (
	SpeechProviders      = []string{"edge_tts", "openai"}
	TranscriberProviders = []string{"whisper", "openai"}
	FootageProviders     = []string{"pexels", "pollinations"}
	RendererProviders    = []string{"command"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.WorkDir == c.Paths.OutputDir {
		return errors.New("paths.work_dir and paths.output_dir must differ; temp media is purged per job")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FPS > 120 {
		return fmt.Errorf("render.fps must be between 1 and 120, got %d", c.Render.FPS)
	}
	if c.Captions.LineMaxLength < 1 {
		return errors.New("captions.line_max_length must be positive")
	}
	if c.Captions.LineCount < 1 {
		return errors.New("captions.line_count must be positive")
	}
	if c.Render.Defaults.TTSSpeed <= 0 || c.Render.Defaults.TTSSpeed > 4 {
		return errors.New("render.defaults.tts_speed must be in (0, 4]")
	}
	if v := c.Render.Defaults.Volume(); v < 0 || v > 1 {
		return errors.New("render.defaults.music_volume must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if err := ensureChoice("providers.speech", c.Providers.Speech, SpeechProviders); err != nil {
		return err
	}
	if err := ensureChoice("providers.transcriber", c.Providers.Transcriber, TranscriberProviders); err != nil {
		return err
	}
	if err := ensureChoice("providers.footage", c.Providers.Footage, FootageProviders); err != nil {
		return err
	}
	if err := ensureChoice("providers.renderer", c.Providers.Renderer, RendererProviders); err != nil {
		return err
	}

	needsOpenAI := c.Providers.Speech == "openai" || c.Providers.Transcriber == "openai"
	if needsOpenAI && c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelsmith/config.toml"
		}
		return fmt.Errorf("openai.api_key is required when an openai provider is selected. Set OPENAI_API_KEY or edit %s", defaultPath)
	}
	if c.Providers.Footage == "pexels" && c.Pexels.APIKey == "" {
		return errors.New("pexels.api_key is required when providers.footage is pexels (or set PEXELS_API_KEY)")
	}
	if c.Whisper.Language == "" {
		return errors.New("whisper.language must be an ISO 639 code, a language name, or auto")
	}
	if c.Providers.Renderer == "command" && strings.TrimSpace(c.Renderer.Binary) == "" {
		return errors.New("renderer.binary must be set")
	}
	return ensurePositiveMap(map[string]int{
		"edge_tts.timeout_seconds": c.EdgeTTS.TimeoutSeconds,
		"openai.timeout_seconds":   c.OpenAI.TimeoutSeconds,
		"whisper.timeout_seconds":  c.Whisper.TimeoutSeconds,
		"pexels.timeout_seconds":   c.Pexels.TimeoutSeconds,
		"ffmpeg.timeout_seconds":   c.FFmpeg.TimeoutSeconds,
		"renderer.timeout_seconds": c.Renderer.TimeoutSeconds,
	})
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"progress.heartbeat_seconds":    c.Progress.HeartbeatSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensureChoice(key, value string, allowed []string) error {
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
