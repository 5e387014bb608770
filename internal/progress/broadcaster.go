package progress

import (
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/logging"
)

const (
	defaultHeartbeatInterval = 15 * time.Second
	defaultCloseGrace        = time.Second
)

// Options tunes subscriber lifetimes.
type Options struct {
	HeartbeatInterval time.Duration
	CloseGrace        time.Duration
	Logger            *slog.Logger
}

// Broadcaster fans job progress events out to live subscribers. It keeps no
// event history: a subscriber only sees events published after it joined.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	closing map[string]*time.Timer
	closed  bool

	heartbeat time.Duration
	grace     time.Duration
	logger    *slog.Logger
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster(opts Options) *Broadcaster {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	if opts.CloseGrace < 0 {
		opts.CloseGrace = defaultCloseGrace
	}
	return &Broadcaster{
		subs:      make(map[string]map[*Subscription]struct{}),
		closing:   make(map[string]*time.Timer),
		heartbeat: opts.HeartbeatInterval,
		grace:     opts.CloseGrace,
		logger:    logging.NewComponentLogger(opts.Logger, "progress"),
	}
}

// Subscribe registers a new stream for jobID. The returned subscription's
// channel closes after the job's terminal event (plus the grace period), when
// the subscriber calls Close, or when the broadcaster shuts down.
func (b *Broadcaster) Subscribe(jobID string) *Subscription {
	out := make(chan Message)
	sub := &Subscription{
		JobID:  jobID,
		C:      out,
		out:    out,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		owner:  b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(out)
		sub.once.Do(func() { close(sub.done) })
		return sub
	}
	set, ok := b.subs[jobID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[jobID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	go sub.pump(b.heartbeat)
	b.logger.Debug("progress subscriber added", logging.String(logging.FieldJobID, jobID))
	return sub
}

// Publish delivers event to every current subscriber of its job, in call
// order, without blocking on slow consumers. A terminal event schedules the
// job's subscribers to close once the grace period elapses.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Progress = ClampPercent(event.Progress)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for sub := range b.subs[event.JobID] {
		evt := event
		sub.enqueue(Message{Event: &evt, At: event.Timestamp})
	}
	if !event.Stage.Terminal() {
		return
	}
	if _, pending := b.closing[event.JobID]; pending {
		return
	}
	jobID := event.JobID
	b.closing[jobID] = time.AfterFunc(b.grace, func() { b.finishJob(jobID) })
}

// Subscribers reports how many live streams are attached to jobID.
func (b *Broadcaster) Subscribers(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[jobID])
}

// Close stops every subscription immediately.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, timer := range b.closing {
		timer.Stop()
	}
	b.closing = nil
	var all []*Subscription
	for _, set := range b.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
}

func (b *Broadcaster) finishJob(jobID string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	set := b.subs[jobID]
	delete(b.subs, jobID)
	delete(b.closing, jobID)
	b.mu.Unlock()

	for sub := range set {
		sub.drainAndClose()
	}
	if len(set) > 0 {
		b.logger.Debug("progress subscribers closed",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("subscriber_count", len(set)),
		)
	}
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[sub.JobID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.JobID)
	}
}

// Subscription is one live progress stream.
type Subscription struct {
	JobID string
	C     <-chan Message

	out    chan Message
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
	owner  *Broadcaster

	mu       sync.Mutex
	queue    []Message
	draining bool
}

// Close detaches the subscription. Pending messages are discarded.
func (s *Subscription) Close() {
	s.stop()
	if s.owner != nil {
		s.owner.remove(s)
	}
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription) enqueue(msg Message) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) drainAndClose() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() (Message, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Message{}, false, s.draining
	}
	msg := s.queue[0]
	s.queue[0] = Message{}
	s.queue = s.queue[1:]
	return msg, true, s.draining
}

func (s *Subscription) pump(interval time.Duration) {
	defer close(s.out)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		msg, ok, draining := s.pop()
		if ok {
			select {
			case s.out <- msg:
				continue
			case <-s.done:
				return
			}
		}
		if draining {
			return
		}
		select {
		case <-s.notify:
		case at := <-ticker.C:
			select {
			case s.out <- Message{Heartbeat: true, At: at.UTC()}:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}
