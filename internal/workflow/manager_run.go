package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

const errorRetryInterval = 10 * time.Second

// Start fails jobs interrupted by a previous run and begins background
// processing with a single worker.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if missing := m.collab.Missing(); len(missing) > 0 {
		m.mu.Unlock()
		return services.Wrap(services.ErrConfiguration, "startup", "collaborators", "missing providers: "+strings.Join(missing, ", "), nil)
	}
	m.mu.Unlock()

	if err := m.failInterrupted(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.runWorker(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion. A job cut
// off mid-flight stays processing and is failed on the next Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) failInterrupted(ctx context.Context) error {
	jobs, err := m.store.Interrupted(ctx)
	if err != nil {
		return services.Wrap(services.ErrResource, "startup", "list interrupted", "queue unavailable", err)
	}
	for _, job := range jobs {
		jobCtx := services.WithJobID(ctx, job.ID)
		cause := services.Wrap(services.ErrResource, job.ProgressStage, "resume", "interrupted by restart", nil)
		m.failJob(jobCtx, job, cause, 0)
	}
	if len(jobs) > 0 {
		m.logger.Info("failed interrupted jobs",
			logging.Int("count", len(jobs)),
			logging.String(logging.FieldEventType, "interrupted_jobs_failed"),
		)
	}
	return nil
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextQueued(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleNextJobError(ctx, err)
			continue
		}
		if job == nil {
			m.queueDrained(ctx)
			m.waitForJobOrShutdown(ctx)
			continue
		}

		m.queueActivated(ctx)
		m.processJob(ctx, job)
	}
}

func (m *Manager) handleNextJobError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("failed to fetch next queued job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.backoff(ctx)
}

func (m *Manager) backoff(ctx context.Context) {
	timer := time.NewTimer(m.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-timer.C:
	}
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, m.logger)
	started := time.Now()

	if err := m.store.MarkProcessing(jobCtx, job.ID); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.setLastError(err)
		logger.Warn("could not claim queued job",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_claim_failed"),
			logging.String(logging.FieldErrorHint, "job may have been removed while queued"),
		)
		// A removed row is gone from the next fetch; anything else would be
		// fetched again immediately.
		if !errors.Is(err, queue.ErrJobNotFound) {
			m.backoff(ctx)
		}
		return
	}
	m.setCurrentJob(job.ID)
	defer m.setCurrentJob("")

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	logger.Info("job started",
		logging.Int("scenes", job.SceneCount),
		logging.String(logging.FieldEventType, "job_started"),
	)

	tracker := newProgressTracker(m, job.ID)
	req, err := decodeRequest(job)
	if err == nil {
		err = m.runPipeline(jobCtx, job, req, tracker)
	}
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			logger.Info("job interrupted by shutdown",
				logging.String(logging.FieldEventType, "job_interrupted"),
			)
			return
		}
		m.failJob(jobCtx, job, err, time.Since(started))
		return
	}
	m.completeJob(jobCtx, job, time.Since(started))
}
