// Package ffmpeg levels narration loudness and measures media durations with
// the ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/providers"
)

const name = "ffmpeg"

// TranscriptionSampleRate is the sample rate of the transcription WAV.
const TranscriptionSampleRate = 16000

// Config configures the ffmpeg tools.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	LoudnessLUFS  float64
	Timeout       time.Duration
}

// Tools implements providers.AudioNormalizer and providers.DurationProber.
type Tools struct {
	cfg  Config
	exec providers.Executor
}

// Option customizes Tools.
type Option func(*Tools)

// WithExecutor overrides the command executor.
func WithExecutor(exec providers.Executor) Option {
	return func(t *Tools) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// New constructs Tools.
func New(cfg Config, opts ...Option) *Tools {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(cfg.FFprobeBinary) == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if cfg.LoudnessLUFS >= 0 {
		cfg.LoudnessLUFS = -16
	}
	t := &Tools{cfg: cfg, exec: providers.CommandExecutor{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements providers.Backend.
func (t *Tools) Name() string { return name }

// HealthCheck verifies both binaries resolve.
func (t *Tools) HealthCheck(context.Context) providers.Health {
	if health := providers.CommandHealth(name, t.cfg.FFmpegBinary); !health.Ready {
		return health
	}
	if health := providers.CommandHealth(name, t.cfg.FFprobeBinary); !health.Ready {
		return health
	}
	return providers.Healthy(name)
}

// Normalize applies EBU R128 loudness normalisation to src and writes the
// playback mp3 and the transcription WAV in a single ffmpeg pass.
func (t *Tools) Normalize(ctx context.Context, src string, dst providers.NormalizedAudio) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("ffmpeg normalize: empty source path")
	}
	if dst.PlaybackPath == "" || dst.TranscriptionPath == "" {
		return fmt.Errorf("ffmpeg normalize: both output paths are required")
	}
	for _, path := range []string{dst.PlaybackPath, dst.TranscriptionPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("ffmpeg normalize: create output dir: %w", err)
		}
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	if err := t.exec.Run(ctx, t.cfg.FFmpegBinary, NormalizeArgs(src, dst, t.cfg.LoudnessLUFS), nil); err != nil {
		return fmt.Errorf("ffmpeg normalize: %w", err)
	}
	return nil
}

// NormalizeArgs builds the ffmpeg argument list for Normalize.
func NormalizeArgs(src string, dst providers.NormalizedAudio, lufs float64) []string {
	filter := fmt.Sprintf("loudnorm=I=%g:TP=-1.5:LRA=11", lufs)
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", src,
		"-filter_complex", "[0:a]" + filter + ",asplit=2[play][asr]",
		"-map", "[play]", "-c:a", "libmp3lame", "-b:a", "192k", "-ar", "44100", dst.PlaybackPath,
		"-map", "[asr]", "-c:a", "pcm_s16le", "-ac", "1", "-ar", fmt.Sprint(TranscriptionSampleRate), dst.TranscriptionPath,
	}
}

// Duration implements providers.DurationProber.
func (t *Tools) Duration(ctx context.Context, path string) (float64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("ffprobe: empty path")
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	var out strings.Builder
	err := t.exec.Run(ctx, t.cfg.FFprobeBinary, ffprobe.Args(path), func(line string) {
		out.WriteString(line)
		out.WriteByte('\n')
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	result, err := ffprobe.Decode([]byte(out.String()))
	if err != nil {
		return 0, err
	}
	duration := result.AudioDurationSeconds()
	if duration <= 0 {
		return 0, fmt.Errorf("ffprobe: %s has no measurable audio duration", filepath.Base(path))
	}
	return duration, nil
}

func (t *Tools) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.cfg.Timeout)
}
