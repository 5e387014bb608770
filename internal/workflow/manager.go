package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/progress"
	"reelsmith/internal/queue"
)

const maxRememberedFailures = 256

// Manager coordinates the render queue.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	collab       Collaborators
	broadcaster  *progress.Broadcaster
	logger       *slog.Logger
	notifier     notifications.Service
	freeSpace    func(path string) (uint64, error)
	pollInterval time.Duration
	retryDelay   time.Duration

	heartbeat *HeartbeatMonitor
	wake      chan struct{}

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	currentJob string
	lastJob    *JobOutcome

	failures     map[string]string
	failureOrder []string

	queueActive  bool
	queueStart   time.Time
	runProcessed int
	runFailed    int
	processed    int
	failed       int
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithFreeSpaceFunc overrides how available disk space is measured.
func WithFreeSpaceFunc(fn func(path string) (uint64, error)) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.freeSpace = fn
		}
	}
}

// WithPollInterval overrides how often the idle worker re-checks the queue.
func WithPollInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// WithRetryInterval overrides how long the worker backs off after a queue
// database error.
func WithRetryInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.retryDelay = interval
		}
	}
}

// NewManager constructs a workflow manager. The broadcaster may be shared
// with the API server so progress subscriptions see worker events.
func NewManager(cfg *config.Config, store *queue.Store, collab Collaborators, broadcaster *progress.Broadcaster, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if broadcaster == nil {
		broadcaster = progress.NewBroadcaster(progress.Options{Logger: logger})
	}
	logger = logging.NewComponentLogger(logger, "workflow-manager")
	m := &Manager{
		cfg:          cfg,
		store:        store,
		collab:       collab,
		broadcaster:  broadcaster,
		logger:       logger,
		notifier:     notifications.NewService(cfg),
		freeSpace:    fileutil.FreeBytes,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryDelay:   errorRetryInterval,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		wake:     make(chan struct{}, 1),
		failures: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.pollInterval <= 0 {
		m.pollInterval = 5 * time.Second
	}
	return m
}

// Broadcaster returns the progress broadcaster jobs publish to.
func (m *Manager) Broadcaster() *progress.Broadcaster {
	return m.broadcaster
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setCurrentJob(id string) {
	m.mu.Lock()
	m.currentJob = id
	m.mu.Unlock()
}

func (m *Manager) rememberFailure(id, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.failures[id]; !ok {
		m.failureOrder = append(m.failureOrder, id)
	}
	m.failures[id] = message
	for len(m.failureOrder) > maxRememberedFailures {
		delete(m.failures, m.failureOrder[0])
		m.failureOrder = m.failureOrder[1:]
	}
}

func (m *Manager) failureMessage(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures[id]
}
