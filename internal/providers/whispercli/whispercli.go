// Package whispercli transcribes narration with a local whisper.cpp binary.
package whispercli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/providers"
)

const name = "whisper"

// Config configures the whisper.cpp backend.
type Config struct {
	Binary   string
	Model    string
	Language string
	Threads  int
	Timeout  time.Duration
	TempDir  string
}

// Transcriber runs whisper-cli with word-level segmentation and JSON output.
type Transcriber struct {
	cfg  Config
	exec providers.Executor
}

// Option customizes a Transcriber.
type Option func(*Transcriber)

// WithExecutor overrides the command executor.
func WithExecutor(exec providers.Executor) Option {
	return func(t *Transcriber) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// New constructs a Transcriber.
func New(cfg Config, opts ...Option) *Transcriber {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "whisper-cli"
	}
	t := &Transcriber{cfg: cfg, exec: providers.CommandExecutor{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements providers.Backend.
func (t *Transcriber) Name() string { return name }

// HealthCheck verifies the binary and model file.
func (t *Transcriber) HealthCheck(context.Context) providers.Health {
	if health := providers.CommandHealth(name, t.cfg.Binary); !health.Ready {
		return health
	}
	if strings.TrimSpace(t.cfg.Model) == "" {
		return providers.Unhealthy(name, "model not configured")
	}
	if _, err := os.Stat(t.cfg.Model); err != nil {
		return providers.Unhealthy(name, fmt.Sprintf("model %s not readable", t.cfg.Model))
	}
	return providers.Healthy(name)
}

// Transcribe expects 16 kHz mono WAV bytes.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) ([]captions.Token, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("whisper: empty audio")
	}
	dir, err := os.MkdirTemp(t.cfg.TempDir, "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("whisper: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.wav")
	if err := os.WriteFile(input, audio, 0o644); err != nil {
		return nil, fmt.Errorf("whisper: write input: %w", err)
	}
	prefix := filepath.Join(dir, "transcript")

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}
	if err := t.exec.Run(ctx, t.cfg.Binary, t.args(input, prefix), nil); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	data, err := os.ReadFile(prefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper: read transcript: %w", err)
	}
	return ParseTranscript(data)
}

func (t *Transcriber) args(input, prefix string) []string {
	args := []string{
		"-m", t.cfg.Model,
		"-f", input,
		"-oj",
		"-of", prefix,
		"-ml", "1",
		"-sow",
		"-np",
	}
	if lang := strings.TrimSpace(t.cfg.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if t.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(t.cfg.Threads))
	}
	return args
}

type transcript struct {
	Transcription []segment `json:"transcription"`
}

type segment struct {
	Offsets struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	} `json:"offsets"`
	Text string `json:"text"`
}

// ParseTranscript converts whisper.cpp JSON output into caption tokens.
// Segment text keeps its leading space so joined tokens read naturally.
func ParseTranscript(data []byte) ([]captions.Token, error) {
	var doc transcript
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("whisper: decode transcript: %w", err)
	}
	tokens := make([]captions.Token, 0, len(doc.Transcription))
	for _, seg := range doc.Transcription {
		text := seg.Text
		if strings.TrimSpace(text) == "" || isMarker(text) {
			continue
		}
		start, end := seg.Offsets.From, seg.Offsets.To
		if end < start {
			end = start
		}
		tokens = append(tokens, captions.Token{Text: text, StartMs: start, EndMs: end})
	}
	if err := captions.Validate(tokens); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return tokens, nil
}

func isMarker(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "[_") && strings.HasSuffix(text, "_]")
}
