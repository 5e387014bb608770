package providers

import (
	"context"

	"reelsmith/internal/captions"
	"reelsmith/internal/timeline"
)

// Health reports whether a backend looks usable.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy returns a ready Health for name.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy returns a not-ready Health with a reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Backend is implemented by every collaborator.
type Backend interface {
	Name() string
	HealthCheck(ctx context.Context) Health
}

// SpeechRequest asks for narration of one scene.
type SpeechRequest struct {
	Text  string
	Voice string
	Speed float64
}

// Speech is synthesized narration. DurationSeconds is the nominal length
// reported by the backend and may be zero when unknown.
type Speech struct {
	Audio           []byte
	Format          string
	DurationSeconds float64
}

// SpeechSynthesizer turns scene text into audio.
type SpeechSynthesizer interface {
	Backend
	Synthesize(ctx context.Context, req SpeechRequest) (Speech, error)
}

// NormalizedAudio names the two files an AudioNormalizer produces.
type NormalizedAudio struct {
	PlaybackPath      string
	TranscriptionPath string
}

// AudioNormalizer levels loudness and writes a playback track plus a 16 kHz
// mono WAV for transcription.
type AudioNormalizer interface {
	Backend
	Normalize(ctx context.Context, src string, dst NormalizedAudio) error
}

// Transcriber produces word-level timings for narration audio.
type Transcriber interface {
	Backend
	Transcribe(ctx context.Context, audio []byte) ([]captions.Token, error)
}

// FootageQuery describes the background a scene needs.
type FootageQuery struct {
	SearchTerms           []string
	Prompt                string
	TargetDurationSeconds float64
	Orientation           timeline.Orientation
}

// FootageSource resolves a scene's background video or image reference.
type FootageSource interface {
	Backend
	Find(ctx context.Context, query FootageQuery) (string, error)
}

// DurationProber measures media duration in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// RenderRequest hands a composed plan to a renderer.
type RenderRequest struct {
	Plan       *timeline.Plan
	OutputPath string
	WorkDir    string
}

// Renderer turns a plan into a finished video file and returns its path.
// progress receives completion fractions in [0,1].
type Renderer interface {
	Backend
	Render(ctx context.Context, req RenderRequest, progress func(float64)) (string, error)
}

// Collaborators bundles one backend per role, chosen by configuration.
type Collaborators struct {
	Speech      SpeechSynthesizer
	Normalizer  AudioNormalizer
	Transcriber Transcriber
	Footage     FootageSource
	Renderer    Renderer
	// Prober is optional; nominal speech durations are used without it.
	Prober DurationProber
}

// Missing lists the required roles that are nil.
func (c Collaborators) Missing() []string {
	var missing []string
	if c.Speech == nil {
		missing = append(missing, "speech")
	}
	if c.Normalizer == nil {
		missing = append(missing, "normalizer")
	}
	if c.Transcriber == nil {
		missing = append(missing, "transcriber")
	}
	if c.Footage == nil {
		missing = append(missing, "footage")
	}
	if c.Renderer == nil {
		missing = append(missing, "renderer")
	}
	return missing
}

// HealthCheck reports every configured backend once, keyed by role.
func (c Collaborators) HealthCheck(ctx context.Context) map[string]Health {
	roles := map[string]Backend{}
	if c.Speech != nil {
		roles["speech"] = c.Speech
	}
	if c.Normalizer != nil {
		roles["normalizer"] = c.Normalizer
	}
	if c.Transcriber != nil {
		roles["transcriber"] = c.Transcriber
	}
	if c.Footage != nil {
		roles["footage"] = c.Footage
	}
	if c.Renderer != nil {
		roles["renderer"] = c.Renderer
	}
	out := make(map[string]Health, len(roles))
	for role, backend := range roles {
		out[role] = backend.HealthCheck(ctx)
	}
	return out
}
