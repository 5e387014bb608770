package workflow

import (
	"strings"
	"time"

	"reelsmith/internal/progress"
	"reelsmith/internal/providers"
	"reelsmith/internal/queue"
	"reelsmith/internal/timeline"
)

// Collaborators bundles the provider backends a Manager drives.
type Collaborators = providers.Collaborators

// SceneInput is one narration segment of a submission.
type SceneInput struct {
	Text        string   `json:"text" yaml:"text"`
	SearchTerms []string `json:"searchTerms,omitempty" yaml:"searchTerms,omitempty"`
	Prompt      string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// SubmitRequest is an ordered scene list plus render settings.
type SubmitRequest struct {
	Scenes []SceneInput          `json:"scenes" yaml:"scenes"`
	Config timeline.RenderConfig `json:"config" yaml:"config"`
}

// State is the externally visible job status.
type State string

const (
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

// JobStatus answers a status query. Queued jobs report StateProcessing with
// Queued set and a positive Position.
type JobStatus struct {
	ID        string         `json:"id"`
	State     State          `json:"status"`
	Queued    bool           `json:"queued,omitempty"`
	Position  int            `json:"position,omitempty"`
	Stage     progress.Stage `json:"stage,omitempty"`
	Progress  float64        `json:"progress"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	SizeBytes int64          `json:"sizeBytes,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// JobOutcome records how the most recent job ended.
type JobOutcome struct {
	ID       string        `json:"id"`
	State    State         `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Finished time.Time     `json:"finished"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool                        `json:"running"`
	CurrentJob string                      `json:"currentJob,omitempty"`
	LastError  string                      `json:"lastError,omitempty"`
	LastJob    *JobOutcome                 `json:"lastJob,omitempty"`
	Queue      queue.Counts                `json:"queue"`
	StaleJobs  int                         `json:"staleJobs,omitempty"`
	Processed  int                         `json:"processed"`
	Failed     int                         `json:"failed"`
	Providers  map[string]providers.Health `json:"providers"`
}

// ValidJobID reports whether id is safe to use as a path component.
func ValidJobID(id string) bool {
	if id == "" || len(id) > 128 || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`+"\x00")
}
