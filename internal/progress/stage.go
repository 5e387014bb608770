// Package progress models render job stages and fans progress events out to
// live subscribers.
package progress

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage is one named phase of job processing.
type Stage string

const (
	StageQueued          Stage = "queued"
	StageGeneratingAudio Stage = "generating_audio"
	StageTranscribing    Stage = "transcribing"
	StageFetchingVideos  Stage = "fetching_videos"
	StageComposing       Stage = "composing"
	StageRendering       Stage = "rendering"
	StageComplete        Stage = "complete"
	StageError           Stage = "error"
)

var stageOrder = []Stage{
	StageQueued,
	StageGeneratingAudio,
	StageTranscribing,
	StageFetchingVideos,
	StageComposing,
	StageRendering,
	StageComplete,
	StageError,
}

// Stages returns every stage in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage converts a stored value to a Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range stageOrder {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// Rank orders stages for monotonicity checks. Unknown stages rank -1.
func (s Stage) Rank() int {
	for i, candidate := range stageOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further events follow this stage.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// Label is the human readable stage name.
func (s Stage) Label() string {
	return cases.Title(language.Und).String(strings.ReplaceAll(string(s), "_", " "))
}

// Event is a single progress update for a job.
type Event struct {
	JobID     string    `json:"jobId"`
	Stage     Stage     `json:"stage"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is what a subscriber receives: either an event or a heartbeat.
type Message struct {
	Event     *Event
	Heartbeat bool
	At        time.Time
}

// ClampPercent limits progress to [0,100].
func ClampPercent(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
