package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultStreamCapacity = 512

// LogEvent is one log record as served by the daemon's log API.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	JobID         string            `json:"job_id,omitempty"`
	Scene         string            `json:"scene,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField mirrors the console handler's info bullet lines.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogFilter narrows a page of events. Empty fields match everything.
type LogFilter struct {
	JobID     string
	Component string
	Level     string
}

// Matches reports whether evt passes the filter.
func (f LogFilter) Matches(evt LogEvent) bool {
	if f.JobID != "" && evt.JobID != f.JobID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(f.Component, evt.Component) {
		return false
	}
	return f.Level == "" || strings.EqualFold(f.Level, evt.Level)
}

// Apply returns the events that pass the filter, never nil.
func (f LogFilter) Apply(events []LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		if f.Matches(evt) {
			out = append(out, evt)
		}
	}
	return out
}

// StreamHub keeps the most recent log events in memory, numbered by a
// sequence that never resets, so API clients can page and long-poll.
type StreamHub struct {
	mu       sync.Mutex
	capacity int
	events   []LogEvent
	lastSeq  uint64
	changed  chan struct{}
}

// NewStreamHub returns a hub that retains at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = defaultStreamCapacity
	}
	return &StreamHub{
		capacity: capacity,
		events:   make([]LogEvent, 0, capacity),
		changed:  make(chan struct{}),
	}
}

// Publish assigns the next sequence to evt, evicts the oldest event when the
// hub is full and wakes every pending Fetch.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	h.mu.Lock()
	h.lastSeq++
	evt.Sequence = h.lastSeq
	if len(h.events) == h.capacity {
		h.events = append(h.events[:0], h.events[1:]...)
	}
	h.events = append(h.events, evt)
	close(h.changed)
	h.changed = make(chan struct{})
	h.mu.Unlock()
}

// Fetch returns up to limit events newer than since, together with the
// latest sequence. With wait set it blocks until such an event exists or ctx
// ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	limit = h.clampLimit(limit)
	for {
		h.mu.Lock()
		events, last := h.afterLocked(since, limit), h.lastSeq
		changed := h.changed
		h.mu.Unlock()

		if len(events) > 0 || !wait {
			return events, last, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return nil, last, ctx.Err()
		case <-changed:
		}
	}
}

// Tail returns the newest limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	limit = h.clampLimit(limit)
	h.mu.Lock()
	defer h.mu.Unlock()
	start := max(len(h.events)-limit, 0)
	if start == len(h.events) {
		return nil, h.lastSeq
	}
	return append([]LogEvent(nil), h.events[start:]...), h.lastSeq
}

// FirstSequence reports the oldest sequence still held, or the latest
// sequence when the hub is empty.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return h.lastSeq
	}
	return h.events[0].Sequence
}

func (h *StreamHub) clampLimit(limit int) int {
	if limit <= 0 || limit > h.capacity {
		return h.capacity
	}
	return limit
}

// afterLocked relies on events being ordered by sequence.
func (h *StreamHub) afterLocked(since uint64, limit int) []LogEvent {
	for i, evt := range h.events {
		if evt.Sequence > since {
			end := min(i+limit, len(h.events))
			return append([]LogEvent(nil), h.events[i:end]...)
		}
	}
	return nil
}

// streamHandler copies every record it forwards into a StreamHub.
type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(buildLogEvent(record, h.attrs))
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &streamHandler{
		next:  h.next.WithAttrs(attrs),
		hub:   h.hub,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub}
}

// buildLogEvent lifts the job context keys into dedicated fields. Record
// attributes are applied after inherited ones, so call sites win.
func buildLogEvent(record slog.Record, inherited []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
		Fields:    make(map[string]string),
	}
	for _, attr := range inherited {
		event.apply(attr)
	}

	var own []kv
	record.Attrs(func(attr slog.Attr) bool {
		if key := event.apply(attr); key != "" {
			own = append(own, kv{key: key, value: attr.Value})
		}
		return true
	})

	if info, _ := selectInfoFields(own, infoAttrLimit, false); len(info) > 0 {
		event.Details = make([]DetailField, len(info))
		for i, field := range info {
			event.Details[i] = DetailField{Label: field.label, Value: field.value}
		}
	}
	return event
}

func (e *LogEvent) apply(attr slog.Attr) string {
	key := strings.TrimSpace(attr.Key)
	if key == "" {
		return ""
	}
	value := attrString(attr.Value)
	switch key {
	case FieldJobID:
		e.JobID = value
	case FieldStage:
		e.Stage = value
	case FieldScene:
		e.Scene = value
	case FieldCorrelationID:
		e.CorrelationID = value
	case FieldComponent:
		e.Component = value
	default:
		e.Fields[key] = value
	}
	return key
}
