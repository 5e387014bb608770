package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a persisted job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
)

var allStatuses = []Status{StatusQueued, StatusProcessing}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Job is a render job persisted while it waits for or occupies the worker.
type Job struct {
	Seq             int64
	ID              string
	Status          Status
	RequestJSON     string
	SceneCount      int
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	LastHeartbeat   *time.Time
}

// IsProcessing reports whether the worker currently owns the job.
func (j *Job) IsProcessing() bool {
	return j != nil && j.Status == StatusProcessing
}

// Counts summarises the jobs currently held by the store.
type Counts struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
}

// Total is the number of jobs in the store.
func (c Counts) Total() int {
	return c.Queued + c.Processing
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
