package workflow

import (
	"context"
	"errors"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
)

func (m *Manager) notifyJobCompleted(ctx context.Context, job *queue.Job, artifact string, elapsed time.Duration) {
	m.publishNotification(ctx, notifications.EventJobCompleted, notifications.Payload{
		"jobID":    job.ID,
		"scenes":   job.SceneCount,
		"artifact": artifact,
		"duration": elapsed,
	})
}

func (m *Manager) notifyJobFailed(ctx context.Context, job *queue.Job, message, stage string) {
	m.publishNotification(ctx, notifications.EventJobFailed, notifications.Payload{
		"jobID": job.ID,
		"error": message,
		"stage": stage,
	})
}

// queueActivated sends the queue-started notification when the worker picks
// up its first job after being idle.
func (m *Manager) queueActivated(ctx context.Context) {
	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.runProcessed = 0
	m.runFailed = 0
	m.mu.Unlock()

	counts, err := m.store.Counts(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("queue counts unavailable for start notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "start notification will not be sent"),
			)
		}
		return
	}
	m.publishNotification(ctx, notifications.EventQueueStarted, notifications.Payload{"count": counts.Total()})
}

// queueDrained sends the queue-completed notification once the queue empties.
func (m *Manager) queueDrained(ctx context.Context) {
	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = false
	processed, failed := m.runProcessed, m.runFailed
	elapsed := time.Since(m.queueStart)
	m.mu.Unlock()

	if processed == 0 && failed == 0 {
		return
	}
	m.publishNotification(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"processed": processed,
		"failed":    failed,
		"duration":  elapsed,
	})
}

func (m *Manager) publishNotification(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send notification", logging.String("event", string(event)))
			return
		}
		m.logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldImpact, "push notification was not delivered"),
		)
	}
}
