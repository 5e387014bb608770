package workflow

import (
	"context"
	"errors"
	"os"

	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// Status reports a job's state. A queue row means the job is still
// processing (or waiting); otherwise the artifact decides between ready and
// failed.
func (m *Manager) Status(ctx context.Context, id string) (JobStatus, error) {
	if !ValidJobID(id) {
		return JobStatus{}, services.Wrap(services.ErrValidation, "status", "job id", "invalid job id", nil)
	}
	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		return JobStatus{}, services.Wrap(services.ErrResource, "status", "lookup", "queue unavailable", err)
	}
	if job != nil {
		return m.processingStatus(ctx, job)
	}

	if info, err := os.Stat(m.cfg.ArtifactPath(id)); err == nil && info.Mode().IsRegular() {
		return JobStatus{
			ID:        id,
			State:     StateReady,
			Stage:     progress.StageComplete,
			Progress:  100,
			SizeBytes: info.Size(),
		}, nil
	}
	message := m.failureMessage(id)
	if message == "" {
		message = "no rendered video found for job"
	}
	return JobStatus{ID: id, State: StateFailed, Stage: progress.StageError, Error: message}, nil
}

func (m *Manager) processingStatus(ctx context.Context, job *queue.Job) (JobStatus, error) {
	status := JobStatus{
		ID:       job.ID,
		State:    StateProcessing,
		Stage:    progress.Stage(job.ProgressStage),
		Progress: job.ProgressPercent,
		Message:  job.ProgressMessage,
	}
	updated := job.UpdatedAt
	status.UpdatedAt = &updated
	if job.Status == queue.StatusQueued {
		pos, err := m.store.Position(ctx, job.ID)
		if err != nil {
			return JobStatus{}, services.Wrap(services.ErrResource, "status", "position", "queue unavailable", err)
		}
		status.Queued = true
		status.Position = pos
		status.Stage = progress.StageQueued
	}
	return status, nil
}

// Artifact returns the path and size of a finished job's video.
func (m *Manager) Artifact(ctx context.Context, id string) (string, int64, error) {
	if !ValidJobID(id) {
		return "", 0, services.Wrap(services.ErrValidation, "artifact", "job id", "invalid job id", nil)
	}
	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		return "", 0, services.Wrap(services.ErrResource, "artifact", "lookup", "queue unavailable", err)
	}
	if job != nil {
		return "", 0, services.Wrap(services.ErrNotFound, "artifact", "lookup", "job is still processing", nil)
	}
	path := m.cfg.ArtifactPath(id)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", 0, services.Wrap(services.ErrNotFound, "artifact", "lookup", "no rendered video for job", err)
	}
	return path, info.Size(), nil
}

// RemoveArtifact deletes a finished job's video. It reports false when there
// was nothing to delete.
func (m *Manager) RemoveArtifact(ctx context.Context, id string) (bool, error) {
	path, _, err := m.Artifact(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrResource, "artifact", "remove", "could not delete video", err)
	}
	logging.WithContext(services.WithJobID(ctx, id), m.logger).Info("artifact removed",
		logging.String(logging.FieldEventType, "artifact_removed"),
	)
	return true, nil
}

// Jobs lists every queued and processing job in FIFO order.
func (m *Manager) Jobs(ctx context.Context) ([]JobStatus, error) {
	jobs, err := m.store.List(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrResource, "jobs", "list", "queue unavailable", err)
	}
	out := make([]JobStatus, 0, len(jobs))
	for _, job := range jobs {
		status, err := m.processingStatus(ctx, job)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

// Summary returns the latest workflow information.
func (m *Manager) Summary(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:    m.running,
		CurrentJob: m.currentJob,
		Processed:  m.processed,
		Failed:     m.failed,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		outcome := *m.lastJob
		summary.LastJob = &outcome
	}
	m.mu.RUnlock()

	counts, err := m.store.Counts(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue counts",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_stats_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	summary.Queue = counts
	if stale, err := m.heartbeat.StaleJobs(ctx); err == nil {
		summary.StaleJobs = len(stale)
	}
	summary.Providers = m.collab.HealthCheck(ctx)
	return summary
}
