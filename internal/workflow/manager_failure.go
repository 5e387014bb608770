package workflow

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// failJob ends a job in the failed state: temp media is purged, the queue row
// is removed and exactly one error event is published.
func (m *Manager) failJob(ctx context.Context, job *queue.Job, jobErr error, elapsed time.Duration) {
	logger := logging.WithContext(ctx, m.logger)
	message := failureMessage(jobErr)
	details := services.Details(jobErr)

	stage := job.ProgressStage
	percent := job.ProgressPercent
	if latest, err := m.store.GetByID(ctx, job.ID); err == nil && latest != nil {
		stage = latest.ProgressStage
		percent = latest.ProgressPercent
	}

	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.String("failed_stage", firstNonEmpty(details.Stage, stage)),
		logging.String("operation", details.Operation),
		logging.Duration("elapsed", elapsed),
		logging.ErrorKind(jobErr),
		logging.Error(jobErr),
		logging.String(logging.FieldEventType, "job_failed"),
	}
	if details.Kind == services.KindComposition {
		attrs = append(attrs, logging.Alert("composition_failure"))
	}
	if details.Kind == services.KindResource {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "check disk space and directory permissions"))
	}
	logger.Error("job failed", logging.Args(attrs...)...)

	m.purgeWorkDir(ctx, job.ID)
	m.rememberFailure(job.ID, message)
	m.mu.Lock()
	m.failed++
	m.runFailed++
	m.lastJob = &JobOutcome{ID: job.ID, State: StateFailed, Error: message, Duration: elapsed, Finished: time.Now().UTC()}
	m.mu.Unlock()
	m.removeRow(ctx, job.ID)

	m.broadcaster.Publish(progress.Event{
		JobID:    job.ID,
		Stage:    progress.StageError,
		Progress: percent,
		Message:  "Failed",
		Error:    message,
	})

	m.setLastError(jobErr)
	m.notifyJobFailed(ctx, job, message, firstNonEmpty(details.Stage, stage))
}

// completeJob finalises a rendered job. The artifact is already in place, so
// removing the row makes the job read as ready.
func (m *Manager) completeJob(ctx context.Context, job *queue.Job, elapsed time.Duration) {
	logger := logging.WithContext(ctx, m.logger)
	m.mu.Lock()
	m.processed++
	m.runProcessed++
	m.lastJob = &JobOutcome{ID: job.ID, State: StateReady, Duration: elapsed, Finished: time.Now().UTC()}
	m.mu.Unlock()
	m.removeRow(ctx, job.ID)
	m.purgeWorkDir(ctx, job.ID)

	m.broadcaster.Publish(progress.Event{
		JobID:    job.ID,
		Stage:    progress.StageComplete,
		Progress: 100,
		Message:  "Video ready",
	})

	artifact := m.cfg.ArtifactPath(job.ID)
	var size int64
	if info, err := os.Stat(artifact); err == nil {
		size = info.Size()
	}
	logger.Info("job completed",
		logging.Int("scenes", job.SceneCount),
		logging.Duration("elapsed", elapsed),
		logging.Int64("artifact_bytes", size),
		logging.String("artifact", artifact),
		logging.String(logging.FieldEventType, "job_completed"),
	)

	m.notifyJobCompleted(ctx, job, artifact, elapsed)
}

func (m *Manager) removeRow(ctx context.Context, id string) {
	if _, err := m.store.Remove(context.WithoutCancel(ctx), id); err != nil {
		m.logger.Warn("failed to remove finished job row",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_remove_failed"),
			logging.String(logging.FieldErrorHint, "clear the queue database if the job keeps reporting processing"),
		)
	}
}

func (m *Manager) purgeWorkDir(ctx context.Context, id string) {
	if !ValidJobID(id) {
		return
	}
	if err := os.RemoveAll(m.cfg.JobWorkDir(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WithContext(ctx, m.logger).Warn("failed to purge job temp media",
			logging.Error(err),
			logging.String(logging.FieldEventType, "work_dir_purge_failed"),
			logging.String(logging.FieldErrorHint, "remove the job directory under paths.work_dir manually"),
		)
	}
}

// failureMessage renders a job error as a single human readable line.
func failureMessage(err error) string {
	if err == nil {
		return "failed without error detail"
	}
	details := services.Details(err)
	message := strings.TrimSpace(details.Message)
	cause := strings.TrimSpace(details.Cause)
	switch {
	case message != "" && cause != "":
		return message + ": " + cause
	case message != "":
		return message
	case cause != "":
		return cause
	}
	return strings.TrimSpace(err.Error())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
