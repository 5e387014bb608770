package config

import (
	"fmt"
	"os"
	"strings"

	"reelsmith/internal/captions"
	"reelsmith/internal/language"
	"reelsmith/internal/timeline"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeProviders()
	if err := c.normalizeBackends(); err != nil {
		return err
	}
	c.normalizeTiming()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = lookupEnv("REELSMITH_API_TOKEN")
	}
	c.Paths.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Paths.PublicBaseURL), "/")
	return nil
}

func (c *Config) normalizeRender() {
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultFPS
	}
	if c.Render.MinFreeGiB < 0 {
		c.Render.MinFreeGiB = 0
	}
	c.Render.Defaults = c.Render.Defaults.Normalize(timeline.DefaultRenderConfig())

	defaults := captions.DefaultOptions()
	if c.Captions.LineMaxLength <= 0 {
		c.Captions.LineMaxLength = defaults.LineMaxLength
	}
	if c.Captions.LineCount <= 0 {
		c.Captions.LineCount = defaults.LineCount
	}
	if c.Captions.MaxGapMs <= 0 {
		c.Captions.MaxGapMs = defaults.MaxGapMs
	}
	c.Animation = c.Animation.Normalized()
}

func (c *Config) normalizeProviders() {
	c.Providers.Speech = normalizeChoice(c.Providers.Speech, defaultSpeechProvider)
	c.Providers.Transcriber = normalizeChoice(c.Providers.Transcriber, defaultTranscriberProvider)
	c.Providers.Footage = normalizeChoice(c.Providers.Footage, defaultFootageProvider)
	c.Providers.Renderer = normalizeChoice(c.Providers.Renderer, defaultRendererProvider)
}

func (c *Config) normalizeBackends() error {
	var err error

	c.EdgeTTS.Binary = defaultString(c.EdgeTTS.Binary, defaultEdgeTTSBinary)
	c.EdgeTTS.TimeoutSeconds = defaultInt(c.EdgeTTS.TimeoutSeconds, defaultProviderTimeoutSeconds)

	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = lookupEnv("OPENAI_API_KEY")
	}
	c.OpenAI.BaseURL = strings.TrimRight(defaultString(c.OpenAI.BaseURL, defaultOpenAIBaseURL), "/")
	c.OpenAI.SpeechModel = defaultString(c.OpenAI.SpeechModel, defaultOpenAISpeechModel)
	c.OpenAI.SpeechVoice = defaultString(c.OpenAI.SpeechVoice, defaultOpenAISpeechVoice)
	c.OpenAI.TranscriptionModel = defaultString(c.OpenAI.TranscriptionModel, defaultOpenAITranscriptionModel)
	c.OpenAI.TimeoutSeconds = defaultInt(c.OpenAI.TimeoutSeconds, defaultProviderTimeoutSeconds)
	if c.OpenAI.MaxRetries < 0 {
		c.OpenAI.MaxRetries = 0
	}

	c.Whisper.Binary = defaultString(c.Whisper.Binary, defaultWhisperBinary)
	c.Whisper.Model = defaultString(c.Whisper.Model, defaultWhisperModel)
	if c.Whisper.Model, err = expandPath(c.Whisper.Model); err != nil {
		return fmt.Errorf("whisper.model: %w", err)
	}
	c.Whisper.Language = language.Normalize(defaultString(c.Whisper.Language, defaultWhisperLanguage))
	if c.Whisper.Threads < 0 {
		c.Whisper.Threads = 0
	}
	c.Whisper.TimeoutSeconds = defaultInt(c.Whisper.TimeoutSeconds, defaultProviderTimeoutSeconds)

	c.Pexels.APIKey = strings.TrimSpace(c.Pexels.APIKey)
	if c.Pexels.APIKey == "" {
		c.Pexels.APIKey = lookupEnv("PEXELS_API_KEY")
	}
	c.Pexels.BaseURL = strings.TrimRight(defaultString(c.Pexels.BaseURL, defaultPexelsBaseURL), "/")
	c.Pexels.PerPage = defaultInt(c.Pexels.PerPage, defaultPexelsPerPage)
	c.Pexels.TimeoutSeconds = defaultInt(c.Pexels.TimeoutSeconds, defaultProviderTimeoutSeconds)

	c.Pollinations.BaseURL = strings.TrimRight(defaultString(c.Pollinations.BaseURL, defaultPollinationsBaseURL), "/")
	c.Pollinations.Model = defaultString(c.Pollinations.Model, defaultPollinationsModel)

	c.FFmpeg.FFmpegBinary = defaultString(c.FFmpeg.FFmpegBinary, defaultFFmpegBinary)
	c.FFmpeg.FFprobeBinary = defaultString(c.FFmpeg.FFprobeBinary, defaultFFprobeBinary)
	if c.FFmpeg.LoudnessLUFS >= 0 {
		c.FFmpeg.LoudnessLUFS = defaultLoudnessLUFS
	}
	c.FFmpeg.TimeoutSeconds = defaultInt(c.FFmpeg.TimeoutSeconds, defaultProviderTimeoutSeconds)

	c.Renderer.Binary = defaultString(c.Renderer.Binary, defaultRendererBinary)
	if len(c.Renderer.Args) == 0 {
		c.Renderer.Args = append([]string(nil), defaultRendererArgs...)
	}
	if strings.TrimSpace(c.Renderer.WorkingDir) != "" {
		if c.Renderer.WorkingDir, err = expandPath(c.Renderer.WorkingDir); err != nil {
			return fmt.Errorf("renderer.working_dir: %w", err)
		}
	}
	c.Renderer.TimeoutSeconds = defaultInt(c.Renderer.TimeoutSeconds, defaultRenderTimeoutSeconds)
	return nil
}

func (c *Config) normalizeTiming() {
	c.Progress.HeartbeatSeconds = defaultInt(c.Progress.HeartbeatSeconds, defaultProgressHeartbeatSeconds)
	if c.Progress.CloseGraceMillis < 0 {
		c.Progress.CloseGraceMillis = defaultProgressCloseGraceMillis
	}
	c.Progress.SampleIntervalPct = defaultInt(c.Progress.SampleIntervalPct, defaultProgressSampleIntervalPct)

	if c.API.MaxBodyBytes <= 0 {
		c.API.MaxBodyBytes = defaultAPIMaxBodyBytes
	}
	c.API.ShutdownSeconds = defaultInt(c.API.ShutdownSeconds, defaultAPIShutdownSeconds)
	origins := make([]string, 0, len(c.API.AllowedOrigins))
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func normalizeChoice(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, "-", "_")
	if value == "" {
		return fallback
	}
	return value
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func defaultInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
