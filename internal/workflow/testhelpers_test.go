package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/config"
	"reelsmith/internal/notifications"
	"reelsmith/internal/progress"
	"reelsmith/internal/providers"
	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

const speechPrefix = "audio:"

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubNotifier) count(event notifications.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeBackend struct{ name string }

func (f fakeBackend) Name() string { return f.name }

func (f fakeBackend) HealthCheck(context.Context) providers.Health { return providers.Healthy(f.name) }

type fakeSpeech struct {
	fakeBackend
	mu    sync.Mutex
	texts []string
}

// Synthesize fails any scene whose text mentions "mute".
func (f *fakeSpeech) Synthesize(_ context.Context, req providers.SpeechRequest) (providers.Speech, error) {
	f.mu.Lock()
	f.texts = append(f.texts, req.Text)
	f.mu.Unlock()
	if strings.Contains(req.Text, "mute") {
		return providers.Speech{}, errors.New("voice service unavailable")
	}
	return providers.Speech{Audio: []byte(speechPrefix + req.Text), Format: "mp3", DurationSeconds: 2}, nil
}

func (f *fakeSpeech) narrated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeNormalizer struct{ fakeBackend }

func (fakeNormalizer) Normalize(_ context.Context, src string, dst providers.NormalizedAudio) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst.PlaybackPath, data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(dst.TranscriptionPath, data, 0o644)
}

// fakeTranscriber emits one 250ms token per word, 300ms apart, and fails on
// narration that mentions "garbled".
type fakeTranscriber struct{ fakeBackend }

func (fakeTranscriber) Transcribe(_ context.Context, audio []byte) ([]captions.Token, error) {
	if strings.Contains(string(audio), "garbled") {
		return nil, errors.New("transcription model crashed")
	}
	words := strings.Fields(strings.TrimPrefix(string(audio), speechPrefix))
	tokens := make([]captions.Token, 0, len(words))
	for i, word := range words {
		text := word
		if i > 0 {
			text = " " + word
		}
		start := int64(i * 300)
		tokens = append(tokens, captions.Token{Text: text, StartMs: start, EndMs: start + 250})
	}
	return tokens, nil
}

// fakeFootage fails any scene whose first search term is "broken".
type fakeFootage struct{ fakeBackend }

func (fakeFootage) Find(_ context.Context, query providers.FootageQuery) (string, error) {
	if len(query.SearchTerms) > 0 && query.SearchTerms[0] == "broken" {
		return "", errors.New("no footage matched")
	}
	if len(query.SearchTerms) == 0 {
		return "https://images.example/" + query.Prompt, nil
	}
	return "https://footage.example/" + query.SearchTerms[0] + ".mp4", nil
}

type fakeRenderer struct {
	fakeBackend
	mu    sync.Mutex
	order []string
}

func (f *fakeRenderer) Render(_ context.Context, req providers.RenderRequest, progressFn func(float64)) (string, error) {
	f.mu.Lock()
	f.order = append(f.order, filepath.Base(req.WorkDir))
	f.mu.Unlock()
	progressFn(0.25)
	progressFn(0.1)
	progressFn(0.251)
	if err := os.WriteFile(req.OutputPath, []byte("rendered video"), 0o644); err != nil {
		return "", err
	}
	progressFn(1)
	return req.OutputPath, nil
}

func (f *fakeRenderer) rendered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// messageCounter is a slog handler that counts records by message.
type messageCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMessageCounter() *messageCounter {
	return &messageCounter{counts: make(map[string]int)}
}

func (c *messageCounter) Enabled(context.Context, slog.Level) bool { return true }

func (c *messageCounter) Handle(_ context.Context, record slog.Record) error {
	c.mu.Lock()
	c.counts[record.Message]++
	c.mu.Unlock()
	return nil
}

func (c *messageCounter) WithAttrs([]slog.Attr) slog.Handler { return c }

func (c *messageCounter) WithGroup(string) slog.Handler { return c }

func (c *messageCounter) count(message string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[message]
}

type harness struct {
	cfg         *config.Config
	store       *queue.Store
	manager     *workflow.Manager
	broadcaster *progress.Broadcaster
	notifier    *stubNotifier
	speech      *fakeSpeech
	renderer    *fakeRenderer
}

func newCollaborators() (workflow.Collaborators, *fakeSpeech, *fakeRenderer) {
	speech := &fakeSpeech{fakeBackend: fakeBackend{"speech"}}
	renderer := &fakeRenderer{fakeBackend: fakeBackend{"renderer"}}
	return workflow.Collaborators{
		Speech:      speech,
		Normalizer:  fakeNormalizer{fakeBackend{"normalizer"}},
		Transcriber: fakeTranscriber{fakeBackend{"transcriber"}},
		Footage:     fakeFootage{fakeBackend{"footage"}},
		Renderer:    renderer,
	}, speech, renderer
}

func newHarness(t *testing.T, cfgOpts []testsupport.ConfigOption, opts ...workflow.ManagerOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, cfgOpts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	collab, speech, renderer := newCollaborators()
	notifier := &stubNotifier{}
	broadcaster := progress.NewBroadcaster(progress.Options{HeartbeatInterval: time.Hour})
	t.Cleanup(broadcaster.Close)

	opts = append([]workflow.ManagerOption{
		workflow.WithNotifier(notifier),
		workflow.WithPollInterval(20 * time.Millisecond),
	}, opts...)
	manager := workflow.NewManager(cfg, store, collab, broadcaster, nil, opts...)
	t.Cleanup(manager.Stop)
	return &harness{
		cfg:         cfg,
		store:       store,
		manager:     manager,
		broadcaster: broadcaster,
		notifier:    notifier,
		speech:      speech,
		renderer:    renderer,
	}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (h *harness) submit(t *testing.T, terms ...string) string {
	t.Helper()
	scenes := make([]workflow.SceneInput, 0, len(terms))
	for _, term := range terms {
		scenes = append(scenes, workflow.SceneInput{Text: "hello from " + term, SearchTerms: []string{term}})
	}
	id, err := h.manager.Submit(context.Background(), workflow.SubmitRequest{Scenes: scenes})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return id
}

// collectEvents reads a subscription until the broadcaster closes it.
func collectEvents(t *testing.T, sub *progress.Subscription) []progress.Event {
	t.Helper()
	var events []progress.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return events
			}
			if msg.Event != nil {
				events = append(events, *msg.Event)
			}
		case <-timeout:
			t.Fatalf("subscription for %s never closed after %d events", sub.JobID, len(events))
			return events
		}
	}
}

func countStage(events []progress.Event, stage progress.Stage) int {
	n := 0
	for _, evt := range events {
		if evt.Stage == stage {
			n++
		}
	}
	return n
}

func waitForState(t *testing.T, m *workflow.Manager, id string, want workflow.State) workflow.JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var last workflow.JobStatus
	for time.Now().Before(deadline) {
		status, err := m.Status(context.Background(), id)
		if err != nil {
			t.Fatalf("Status(%s): %v", id, err)
		}
		if status.State == want {
			return status
		}
		last = status
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s; last status %+v", id, want, last)
	return last
}
