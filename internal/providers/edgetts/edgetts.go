// Package edgetts synthesizes narration with the edge-tts command-line tool.
package edgetts

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/providers"
)

const name = "edge_tts"

// Config configures the edge-tts backend.
type Config struct {
	Binary  string
	Timeout time.Duration
	// TempDir receives intermediate media; os.TempDir when empty.
	TempDir string
}

// Synthesizer runs edge-tts once per request.
type Synthesizer struct {
	cfg  Config
	exec providers.Executor
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithExecutor overrides the command executor.
func WithExecutor(exec providers.Executor) Option {
	return func(s *Synthesizer) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// New constructs a Synthesizer.
func New(cfg Config, opts ...Option) *Synthesizer {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "edge-tts"
	}
	s := &Synthesizer{cfg: cfg, exec: providers.CommandExecutor{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements providers.Backend.
func (s *Synthesizer) Name() string { return name }

// HealthCheck implements providers.Backend.
func (s *Synthesizer) HealthCheck(context.Context) providers.Health {
	return providers.CommandHealth(name, s.cfg.Binary)
}

// Synthesize writes the narration to a temporary mp3 and returns its bytes.
func (s *Synthesizer) Synthesize(ctx context.Context, req providers.SpeechRequest) (providers.Speech, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return providers.Speech{}, fmt.Errorf("edge-tts: empty text")
	}
	dir, err := os.MkdirTemp(s.cfg.TempDir, "edgetts-*")
	if err != nil {
		return providers.Speech{}, fmt.Errorf("edge-tts: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	output := filepath.Join(dir, "speech.mp3")
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if err := s.exec.Run(ctx, s.cfg.Binary, Args(text, req.Voice, req.Speed, output), nil); err != nil {
		return providers.Speech{}, fmt.Errorf("edge-tts: %w", err)
	}
	audio, err := os.ReadFile(output)
	if err != nil {
		return providers.Speech{}, fmt.Errorf("edge-tts: read output: %w", err)
	}
	if len(audio) == 0 {
		return providers.Speech{}, fmt.Errorf("edge-tts: produced no audio")
	}
	return providers.Speech{Audio: audio, Format: "mp3"}, nil
}

// Args builds the edge-tts argument list.
func Args(text, voice string, speed float64, output string) []string {
	args := []string{"--text", text, "--write-media", output}
	if voice = strings.TrimSpace(voice); voice != "" {
		args = append(args, "--voice", voice)
	}
	if rate := Rate(speed); rate != "" {
		args = append(args, "--rate="+rate)
	}
	return args
}

// Rate converts a speed multiplier into edge-tts' signed percentage form.
// Speed 1 (or unset) yields an empty string.
func Rate(speed float64) string {
	if speed <= 0 || speed == 1 {
		return ""
	}
	pct := int(math.Round((speed - 1) * 100))
	if pct == 0 {
		return ""
	}
	if pct > 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}
