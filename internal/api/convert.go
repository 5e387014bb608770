package api

import (
	"sort"

	"reelsmith/internal/progress"
	"reelsmith/internal/workflow"
)

// FromJobStatus converts a workflow status into its wire form.
func FromJobStatus(status workflow.JobStatus) JobStatus {
	out := JobStatus{
		ID:        status.ID,
		Status:    string(status.State),
		Queued:    status.Queued,
		Position:  status.Position,
		Stage:     string(status.Stage),
		Progress:  progress.ClampPercent(status.Progress),
		Message:   status.Message,
		Error:     status.Error,
		SizeBytes: status.SizeBytes,
	}
	if status.Stage != "" {
		out.StageLabel = status.Stage.Label()
	}
	if status.UpdatedAt != nil && !status.UpdatedAt.IsZero() {
		out.UpdatedAt = status.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return out
}

// FromJobStatuses converts a list, never returning nil.
func FromJobStatuses(statuses []workflow.JobStatus) []JobStatus {
	out := make([]JobStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, FromJobStatus(status))
	}
	return out
}

// FromStatusSummary converts workflow diagnostics into their wire form.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	out := WorkflowStatus{
		Running:    summary.Running,
		CurrentJob: summary.CurrentJob,
		Queue: QueueCounts{
			Queued:     summary.Queue.Queued,
			Processing: summary.Queue.Processing,
		},
		StaleJobs: summary.StaleJobs,
		Processed: summary.Processed,
		Failed:    summary.Failed,
		LastError: summary.LastError,
		Providers: ProviderHealthSlice(summary),
	}
	if last := summary.LastJob; last != nil {
		out.LastJob = &JobOutcome{
			ID:         last.ID,
			Status:     string(last.State),
			Error:      last.Error,
			DurationMS: last.Duration.Milliseconds(),
			FinishedAt: last.Finished.UTC().Format(dateTimeFormat),
		}
	}
	return out
}

// ProviderHealthSlice orders provider health by role for stable output.
func ProviderHealthSlice(summary workflow.StatusSummary) []ProviderHealth {
	out := make([]ProviderHealth, 0, len(summary.Providers))
	for role, health := range summary.Providers {
		out = append(out, ProviderHealth{
			Role:   role,
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}
