// Package factory selects concrete collaborator backends from configuration.
package factory

import (
	"fmt"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/providers"
	"reelsmith/internal/providers/command"
	"reelsmith/internal/providers/edgetts"
	"reelsmith/internal/providers/ffmpeg"
	"reelsmith/internal/providers/openai"
	"reelsmith/internal/providers/pexels"
	"reelsmith/internal/providers/pollinations"
	"reelsmith/internal/providers/whispercli"
)

// Build returns one backend per role as named by cfg.Providers.
func Build(cfg *config.Config) (providers.Collaborators, error) {
	if cfg == nil {
		return providers.Collaborators{}, fmt.Errorf("factory: nil config")
	}
	var (
		set     providers.Collaborators
		openAI  *openai.Client
		useOpen = func() *openai.Client {
			if openAI == nil {
				openAI = openai.New(openai.Config{
					APIKey:             cfg.OpenAI.APIKey,
					BaseURL:            cfg.OpenAI.BaseURL,
					SpeechModel:        cfg.OpenAI.SpeechModel,
					SpeechVoice:        cfg.OpenAI.SpeechVoice,
					TranscriptionModel: cfg.OpenAI.TranscriptionModel,
					Timeout:            seconds(cfg.OpenAI.TimeoutSeconds),
					MaxRetries:         cfg.OpenAI.MaxRetries,
				})
			}
			return openAI
		}
	)

	switch cfg.Providers.Speech {
	case "edge_tts":
		set.Speech = edgetts.New(edgetts.Config{
			Binary:  cfg.EdgeTTS.Binary,
			Timeout: seconds(cfg.EdgeTTS.TimeoutSeconds),
			TempDir: cfg.Paths.WorkDir,
		})
	case "openai":
		set.Speech = useOpen()
	default:
		return providers.Collaborators{}, fmt.Errorf("factory: unknown speech provider %q", cfg.Providers.Speech)
	}

	switch cfg.Providers.Transcriber {
	case "whisper":
		set.Transcriber = whispercli.New(whispercli.Config{
			Binary:   cfg.Whisper.Binary,
			Model:    cfg.Whisper.Model,
			Language: cfg.Whisper.Language,
			Threads:  cfg.Whisper.Threads,
			Timeout:  seconds(cfg.Whisper.TimeoutSeconds),
			TempDir:  cfg.Paths.WorkDir,
		})
	case "openai":
		set.Transcriber = useOpen()
	default:
		return providers.Collaborators{}, fmt.Errorf("factory: unknown transcriber %q", cfg.Providers.Transcriber)
	}

	switch cfg.Providers.Footage {
	case "pexels":
		set.Footage = pexels.New(pexels.Config{
			APIKey:  cfg.Pexels.APIKey,
			BaseURL: cfg.Pexels.BaseURL,
			PerPage: cfg.Pexels.PerPage,
			Timeout: seconds(cfg.Pexels.TimeoutSeconds),
		})
	case "pollinations":
		set.Footage = pollinations.New(pollinations.Config{
			BaseURL: cfg.Pollinations.BaseURL,
			Model:   cfg.Pollinations.Model,
		})
	default:
		return providers.Collaborators{}, fmt.Errorf("factory: unknown footage provider %q", cfg.Providers.Footage)
	}

	switch cfg.Providers.Renderer {
	case "command":
		set.Renderer = command.New(command.Config{
			Binary:     cfg.Renderer.Binary,
			Args:       cfg.Renderer.Args,
			WorkingDir: cfg.Renderer.WorkingDir,
			Timeout:    seconds(cfg.Renderer.TimeoutSeconds),
		})
	default:
		return providers.Collaborators{}, fmt.Errorf("factory: unknown renderer %q", cfg.Providers.Renderer)
	}

	tools := ffmpeg.New(ffmpeg.Config{
		FFmpegBinary:  cfg.FFmpeg.FFmpegBinary,
		FFprobeBinary: cfg.FFmpeg.FFprobeBinary,
		LoudnessLUFS:  cfg.FFmpeg.LoudnessLUFS,
		Timeout:       seconds(cfg.FFmpeg.TimeoutSeconds),
	})
	set.Normalizer = tools
	set.Prober = tools
	return set, nil
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}
