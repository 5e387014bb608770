package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/api"
	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/services"
	"reelsmith/internal/workflow"
)

type fakeJobs struct {
	mu        sync.Mutex
	submitted []workflow.SubmitRequest
	statuses  map[string]workflow.JobStatus
	artifacts map[string]string
	listErr   error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		statuses:  make(map[string]workflow.JobStatus),
		artifacts: make(map[string]string),
	}
}

func (f *fakeJobs) Submit(_ context.Context, req workflow.SubmitRequest) (string, error) {
	if len(req.Scenes) == 0 {
		return "", services.Wrap(services.ErrValidation, "submit", "validate", "at least one scene is required", nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	id := "job-1"
	f.statuses[id] = workflow.JobStatus{ID: id, State: workflow.StateProcessing, Queued: true, Position: 1, Stage: progress.StageQueued}
	return id, nil
}

func (f *fakeJobs) Status(_ context.Context, id string) (workflow.JobStatus, error) {
	if !workflow.ValidJobID(id) {
		return workflow.JobStatus{}, services.Wrap(services.ErrValidation, "status", "job id", "invalid job id", nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.statuses[id]; ok {
		return status, nil
	}
	return workflow.JobStatus{ID: id, State: workflow.StateFailed, Error: "no rendered video found for job"}, nil
}

func (f *fakeJobs) Jobs(context.Context) ([]workflow.JobStatus, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]workflow.JobStatus, 0, len(f.statuses))
	for _, status := range f.statuses {
		out = append(out, status)
	}
	return out, nil
}

func (f *fakeJobs) Artifact(_ context.Context, id string) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, ok := f.artifacts[id]
	if !ok {
		return "", 0, services.Wrap(services.ErrNotFound, "artifact", "lookup", "no rendered video for job", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	return path, info.Size(), nil
}

func (f *fakeJobs) RemoveArtifact(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, ok := f.artifacts[id]
	if !ok {
		return false, nil
	}
	delete(f.artifacts, id)
	return true, os.Remove(path)
}

func (f *fakeJobs) setStatus(status workflow.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[status.ID] = status
}

type apiHarness struct {
	jobs   *fakeJobs
	bus    *progress.Broadcaster
	hub    *logging.StreamHub
	server *httptest.Server
	client *api.Client
	work   string
}

func newAPIHarness(t *testing.T, token string) *apiHarness {
	t.Helper()
	h := &apiHarness{
		jobs: newFakeJobs(),
		bus:  progress.NewBroadcaster(progress.Options{HeartbeatInterval: 20 * time.Millisecond}),
		hub:  logging.NewStreamHub(16),
		work: t.TempDir(),
	}
	router := api.NewRouter(api.Options{
		Jobs:     h.jobs,
		Progress: h.bus,
		Logs:     h.hub,
		WorkDir:  h.work,
		Token:    token,
		Status: func(context.Context) api.DaemonStatus {
			return api.DaemonStatus{Running: true, PID: 42}
		},
		MaxBodyBytes: 1024,
	})
	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)
	t.Cleanup(h.bus.Close)

	client, err := api.NewClient(h.server.URL, token)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	h.client = client
	return h
}

func TestSubmitQueuesJob(t *testing.T) {
	h := newAPIHarness(t, "")
	ctx := context.Background()

	id, err := h.client.Submit(ctx, workflow.SubmitRequest{Scenes: []workflow.SceneInput{{Text: "hello", SearchTerms: []string{"sea"}}}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "job-1" {
		t.Fatalf("unexpected id %q", id)
	}
	h.jobs.mu.Lock()
	submitted := append([]workflow.SubmitRequest(nil), h.jobs.submitted...)
	h.jobs.mu.Unlock()
	if len(submitted) != 1 || submitted[0].Scenes[0].Text != "hello" {
		t.Fatalf("request not forwarded: %+v", submitted)
	}

	status, err := h.client.Status(ctx, id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != "processing" || !status.Queued || status.Position != 1 || status.StageLabel != "Queued" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSubmitStatusCodes(t *testing.T) {
	h := newAPIHarness(t, "")

	resp, err := http.Post(h.server.URL+"/api/jobs", "application/json", strings.NewReader(`{"scenes":[{"text":"a"}]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/jobs/job-1/status" {
		t.Fatalf("unexpected location %q", loc)
	}

	cases := map[string]struct {
		body string
		want int
	}{
		"no scenes":    {body: `{"scenes":[]}`, want: http.StatusBadRequest},
		"malformed":    {body: `{"scenes":`, want: http.StatusBadRequest},
		"body too big": {body: `{"scenes":[{"text":"` + strings.Repeat("x", 2048) + `"}]}`, want: http.StatusRequestEntityTooLarge},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(h.server.URL+"/api/jobs", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}

	_, err = h.client.Submit(context.Background(), workflow.SubmitRequest{})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != "validation" || apiErr.Message == "" {
		t.Fatalf("expected validation APIError, got %v", err)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	h := newAPIHarness(t, "secret")

	resp, err := http.Get(h.server.URL + "/api/jobs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, h.server.URL+"/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}

	if _, err := h.client.Jobs(context.Background()); err != nil {
		t.Fatalf("client with token should pass: %v", err)
	}

	// Health stays public for probes.
	resp, err = http.Get(h.server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected public health, got %d", resp.StatusCode)
	}
}

func TestStatusErrorsMapToHTTPCodes(t *testing.T) {
	h := newAPIHarness(t, "")
	h.jobs.listErr = errors.New("database is locked")

	_, err := h.client.Jobs(context.Background())
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}

	_, err = h.client.Status(context.Background(), "..")
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsafe id, got %v", err)
	}

	status, err := h.client.Status(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != "failed" || status.Error == "" {
		t.Fatalf("unknown job should report failed, got %+v", status)
	}
}

func TestProgressStreamRelaysEventsUntilTerminal(t *testing.T) {
	h := newAPIHarness(t, "")
	h.jobs.setStatus(workflow.JobStatus{ID: "job", State: workflow.StateProcessing, Stage: progress.StageRendering, Progress: 70})

	var (
		mu     sync.Mutex
		events []progress.Event
	)
	done := make(chan error, 1)
	go func() {
		final, err := h.client.WatchProgress(context.Background(), "job", func(evt progress.Event) {
			mu.Lock()
			events = append(events, evt)
			mu.Unlock()
		})
		if final != nil {
			err = errors.New("unexpected final status")
		}
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.bus.Subscribers("job") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Wait for the snapshot so live events cannot overtake it.
	for {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.bus.Publish(progress.Event{JobID: "job", Stage: progress.StageRendering, Progress: 80})
	h.bus.Publish(progress.Event{JobID: "job", Stage: progress.StageRendering, Progress: 75})
	h.bus.Publish(progress.Event{JobID: "other", Stage: progress.StageRendering, Progress: 99})
	h.bus.Publish(progress.Event{JobID: "job", Stage: progress.StageComplete, Progress: 100})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WatchProgress: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not end after terminal event")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 3 {
		t.Fatalf("expected snapshot, 80 and complete, got %+v", events)
	}
	if events[0].Progress != 70 || events[1].Progress != 80 || events[2].Stage != progress.StageComplete {
		t.Fatalf("unexpected event sequence %+v", events)
	}
}

func TestProgressStreamSendsKeepAlive(t *testing.T) {
	h := newAPIHarness(t, "")
	h.jobs.setStatus(workflow.JobStatus{ID: "job", State: workflow.StateProcessing, Stage: progress.StageQueued})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, h.server.URL+"/api/jobs/job/progress", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var buf bytes.Buffer
	chunk := make([]byte, 256)
	for !strings.Contains(buf.String(), ": keep-alive") {
		n, err := resp.Body.Read(chunk)
		buf.Write(chunk[:n])
		if err != nil {
			t.Fatalf("stream ended before keep-alive: %v (%q)", err, buf.String())
		}
	}
	if !strings.HasPrefix(buf.String(), "data: ") {
		t.Fatalf("stream should open with a snapshot, got %q", buf.String())
	}
}

func TestProgressForFinishedJobIsGone(t *testing.T) {
	h := newAPIHarness(t, "")
	h.jobs.setStatus(workflow.JobStatus{ID: "done", State: workflow.StateReady, Stage: progress.StageComplete, Progress: 100, SizeBytes: 12})

	final, err := h.client.WatchProgress(context.Background(), "done", func(progress.Event) {
		t.Error("no events expected for a finished job")
	})
	if err != nil {
		t.Fatalf("WatchProgress: %v", err)
	}
	if final == nil || final.Status != "ready" || final.SizeBytes != 12 {
		t.Fatalf("expected final ready status, got %+v", final)
	}
}

func TestArtifactDownloadAndRemove(t *testing.T) {
	h := newAPIHarness(t, "")
	path := filepath.Join(t.TempDir(), "job.mp4")
	if err := os.WriteFile(path, []byte("video bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	h.jobs.mu.Lock()
	h.jobs.artifacts["job"] = path
	h.jobs.mu.Unlock()

	resp, err := http.Get(h.server.URL + "/api/jobs/job/artifact")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "video bytes" {
		t.Fatalf("unexpected artifact reply %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "video/mp4" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "job.mp4") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	var out bytes.Buffer
	n, err := h.client.DownloadArtifact(context.Background(), "job", &out)
	if err != nil || n != int64(len("video bytes")) {
		t.Fatalf("DownloadArtifact = %d, %v", n, err)
	}

	if err := h.client.RemoveArtifact(context.Background(), "job"); err != nil {
		t.Fatalf("RemoveArtifact: %v", err)
	}
	if err := h.client.RemoveArtifact(context.Background(), "job"); !api.IsNotFound(err) {
		t.Fatalf("second remove should be not found, got %v", err)
	}
	if _, err := h.client.DownloadArtifact(context.Background(), "job", io.Discard); !api.IsNotFound(err) {
		t.Fatalf("expected not found after removal, got %v", err)
	}
}

func TestTempFilesServedWithoutTraversal(t *testing.T) {
	h := newAPIHarness(t, "secret")
	jobDir := filepath.Join(h.work, "job")
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, "scene-0-voice.mp3"), []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp, err := http.Get(h.server.URL + "/api/tmp/job/scene-0-voice.mp3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "mp3" {
		t.Fatalf("unexpected temp file reply %d %q", resp.StatusCode, body)
	}

	for _, path := range []string{"/api/tmp/job/missing.mp3", "/api/tmp/job/..", "/api/tmp/..%2Fjob/scene-0-voice.mp3"} {
		resp, err := http.Get(h.server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			t.Fatalf("%s should not be served", path)
		}
	}
}

func TestDaemonStatusHealthAndLogs(t *testing.T) {
	h := newAPIHarness(t, "")
	ctx := context.Background()

	if err := h.client.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	status, err := h.client.DaemonStatus(ctx)
	if err != nil {
		t.Fatalf("DaemonStatus: %v", err)
	}
	if !status.Running || status.PID != 42 {
		t.Fatalf("unexpected daemon status %+v", status)
	}

	h.hub.Publish(logging.LogEvent{Level: "INFO", Message: "job queued", Component: "workflow", JobID: "a"})
	h.hub.Publish(logging.LogEvent{Level: "WARN", Message: "slow render", Component: "renderer", JobID: "b"})

	resp, err := http.Get(h.server.URL + "/api/logs?job=b")
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	defer resp.Body.Close()
	var page api.LogStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if len(page.Events) != 1 || page.Events[0].Message != "slow render" || page.Next != 2 {
		t.Fatalf("unexpected log page %+v", page)
	}
}
