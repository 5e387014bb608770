package config

import (
	"reelsmith/internal/animation"
	"reelsmith/internal/captions"
	"reelsmith/internal/timeline"
)

const (
	defaultWorkDir                   = "~/.local/share/reelsmith/work"
	defaultOutputDir                 = "~/.local/share/reelsmith/output"
	defaultStateDir                  = "~/.local/share/reelsmith"
	defaultLogDir                    = "~/.local/share/reelsmith/logs"
	defaultLogRetentionDays          = 30
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultAPIBind                   = "127.0.0.1:7491"
	defaultFPS                       = 30
	defaultMinFreeGiB                = 2
	defaultSpeechProvider            = "edge_tts"
	defaultTranscriberProvider       = "whisper"
	defaultFootageProvider           = "pexels"
	defaultRendererProvider          = "command"
	defaultEdgeTTSBinary             = "edge-tts"
	defaultOpenAIBaseURL             = "https://api.openai.com/v1"
	defaultOpenAISpeechModel         = "tts-1"
	defaultOpenAISpeechVoice         = "alloy"
	defaultOpenAITranscriptionModel  = "whisper-1"
	defaultOpenAIMaxRetries          = 2
	defaultWhisperBinary             = "whisper-cli"
	defaultWhisperModel              = "~/.local/share/reelsmith/models/ggml-base.en.bin"
	defaultWhisperLanguage           = "en"
	defaultPexelsBaseURL             = "https://api.pexels.com"
	defaultPexelsPerPage             = 15
	defaultPollinationsBaseURL       = "https://image.pollinations.ai/prompt"
	defaultPollinationsModel         = "flux"
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultLoudnessLUFS              = -16
	defaultRendererBinary            = "npx"
	defaultProviderTimeoutSeconds    = 120
	defaultRenderTimeoutSeconds      = 3600
	defaultProgressHeartbeatSeconds  = 15
	defaultProgressCloseGraceMillis  = 1000
	defaultProgressSampleIntervalPct = 5
	defaultWorkflowPollInterval      = 5
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultAPIMaxBodyBytes           = 1 << 20
	defaultAPIShutdownSeconds        = 10
	defaultNotifyRequestTimeout      = 10
)

var defaultRendererArgs = []string{
	"remotion", "render", "src/index.ts", "CaptionedVideo",
	"--props={props}", "{output}",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Render: Render{
			FPS:        defaultFPS,
			MinFreeGiB: defaultMinFreeGiB,
			Defaults:   timeline.DefaultRenderConfig(),
		},
		Captions:  captions.DefaultOptions(),
		Animation: animation.DefaultParams(),
		Providers: Providers{
			Speech:      defaultSpeechProvider,
			Transcriber: defaultTranscriberProvider,
			Footage:     defaultFootageProvider,
			Renderer:    defaultRendererProvider,
		},
		EdgeTTS: EdgeTTS{
			Binary:         defaultEdgeTTSBinary,
			TimeoutSeconds: defaultProviderTimeoutSeconds,
		},
		OpenAI: OpenAI{
			BaseURL:            defaultOpenAIBaseURL,
			SpeechModel:        defaultOpenAISpeechModel,
			SpeechVoice:        defaultOpenAISpeechVoice,
			TranscriptionModel: defaultOpenAITranscriptionModel,
			TimeoutSeconds:     defaultProviderTimeoutSeconds,
			MaxRetries:         defaultOpenAIMaxRetries,
		},
		Whisper: Whisper{
			Binary:         defaultWhisperBinary,
			Model:          defaultWhisperModel,
			Language:       defaultWhisperLanguage,
			TimeoutSeconds: defaultProviderTimeoutSeconds,
		},
		Pexels: Pexels{
			BaseURL:        defaultPexelsBaseURL,
			PerPage:        defaultPexelsPerPage,
			TimeoutSeconds: defaultProviderTimeoutSeconds,
		},
		Pollinations: Pollinations{
			BaseURL: defaultPollinationsBaseURL,
			Model:   defaultPollinationsModel,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			LoudnessLUFS:   defaultLoudnessLUFS,
			TimeoutSeconds: defaultProviderTimeoutSeconds,
		},
		Renderer: Renderer{
			Binary:         defaultRendererBinary,
			Args:           append([]string(nil), defaultRendererArgs...),
			TimeoutSeconds: defaultRenderTimeoutSeconds,
		},
		Progress: Progress{
			HeartbeatSeconds:  defaultProgressHeartbeatSeconds,
			CloseGraceMillis:  defaultProgressCloseGraceMillis,
			SampleIntervalPct: defaultProgressSampleIntervalPct,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultWorkflowPollInterval,
			HeartbeatInterval: defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:  defaultWorkflowHeartbeatTimeout,
		},
		API: API{
			MaxBodyBytes:    defaultAPIMaxBodyBytes,
			ShutdownSeconds: defaultAPIShutdownSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
