package api

import (
	"reelsmith/internal/deps"
	"reelsmith/internal/logging"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitResponse acknowledges a queued job.
type SubmitResponse struct {
	ID string `json:"id"`
}

// JobStatus describes a job in a transport-friendly format.
type JobStatus struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Queued     bool    `json:"queued,omitempty"`
	Position   int     `json:"position,omitempty"`
	Stage      string  `json:"stage,omitempty"`
	StageLabel string  `json:"stageLabel,omitempty"`
	Progress   float64 `json:"progress"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	SizeBytes  int64   `json:"sizeBytes,omitempty"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
}

// JobListResponse wraps the queued and processing jobs.
type JobListResponse struct {
	Jobs []JobStatus `json:"jobs"`
}

// JobOutcome summarises how the most recent job ended.
type JobOutcome struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"durationMs"`
	FinishedAt string `json:"finishedAt"`
}

// ProviderHealth mirrors readiness reporting for provider backends.
type ProviderHealth struct {
	Role   string `json:"role"`
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// QueueCounts reports how many jobs wait for or occupy the worker.
type QueueCounts struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running    bool             `json:"running"`
	CurrentJob string           `json:"currentJob,omitempty"`
	Queue      QueueCounts      `json:"queue"`
	StaleJobs  int              `json:"staleJobs,omitempty"`
	Processed  int              `json:"processed"`
	Failed     int              `json:"failed"`
	LastError  string           `json:"lastError,omitempty"`
	LastJob    *JobOutcome      `json:"lastJob,omitempty"`
	Providers  []ProviderHealth `json:"providers"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	OutputDir    string         `json:"outputDir"`
	Workflow     WorkflowStatus `json:"workflow"`
	Dependencies []deps.Status  `json:"dependencies"`
}

// HealthResponse answers liveness probes.
type HealthResponse struct {
	Status string `json:"status"`
}

// LogStreamResponse carries a page of log events plus the cursor to resume from.
type LogStreamResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
