package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const userAgent = "Reelsmith-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventTest           Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted:   cfg.Notifications.JobCompleted,
			EventJobFailed:      cfg.Notifications.JobFailed,
			EventQueueStarted:   true,
			EventQueueCompleted: true,
			EventTest:           true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventJobCompleted:
		message := fmt.Sprintf("✅ Video ready: %s", stringValue(data, "jobID"))
		if scenes := intValue(data, "scenes"); scenes > 0 {
			message = fmt.Sprintf("%s (%d scenes)", message, scenes)
		}
		if artifact := stringValue(data, "artifact"); artifact != "" {
			message = fmt.Sprintf("%s\nFile: %s", message, artifact)
		}
		return payload{
			title:    "Reelsmith - Video Ready",
			message:  message,
			tags:     []string{"reelsmith", "render", "completed"},
			priority: "high",
		}, true
	case EventJobFailed:
		reason := stringValue(data, "error")
		if reason == "" {
			reason = "unknown"
		}
		label := stringValue(data, "jobID")
		if stage := stringValue(data, "stage"); stage != "" {
			label = fmt.Sprintf("%s during %s", label, stage)
		}
		return payload{
			title:    "Reelsmith - Render Failed",
			message:  fmt.Sprintf("❌ Job %s failed: %s", label, reason),
			tags:     []string{"reelsmith", "error", "alert"},
			priority: "high",
		}, true
	case EventQueueStarted:
		return payload{
			title:   "Reelsmith - Queue Started",
			message: fmt.Sprintf("Started processing queue with %d jobs", intValue(data, "count")),
			tags:    []string{"reelsmith", "queue", "started"},
		}, true
	case EventQueueCompleted:
		processed := intValue(data, "processed")
		failed := intValue(data, "failed")
		duration := durationValue(data, "duration").Round(time.Second)
		title := "Reelsmith - Queue Complete"
		message := fmt.Sprintf("Queue processing complete: %d jobs rendered in %s", processed, duration)
		if failed > 0 {
			title = "Reelsmith - Queue Complete (with errors)"
			message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, duration)
		}
		return payload{
			title:   title,
			message: message,
			tags:    []string{"reelsmith", "queue", "completed"},
		}, true
	case EventTest:
		return payload{
			title:    "Reelsmith - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"reelsmith", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringValue(data Payload, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func intValue(data Payload, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func durationValue(data Payload, key string) time.Duration {
	if v, ok := data[key].(time.Duration); ok && v > 0 {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
