package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/workflow"
)

// jobProgress streams a job's progress as Server-Sent Events. The stream
// opens with a snapshot of the persisted progress, relays live events, emits
// ": keep-alive" comments on idle heartbeats, and ends after the terminal
// event. Jobs that are no longer processing answer 410 with their status.
func (h *handlers) jobProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	status, err := h.opts.Jobs.Status(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if status.State != workflow.StateProcessing {
		writeJSON(w, http.StatusGone, FromJobStatus(status))
		return
	}
	if h.opts.Progress == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "progress streaming unavailable"})
		return
	}

	sub := h.opts.Progress.Subscribe(id)
	defer sub.Close()

	// Re-read after subscribing so a job finishing in between is not missed.
	status, err = h.opts.Jobs.Status(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	w.WriteHeader(http.StatusOK)

	stream := &sseWriter{w: w, rc: rc}
	snapshot := snapshotEvent(status)
	if err := stream.event(snapshot); err != nil {
		return
	}
	if snapshot.Stage.Terminal() {
		return
	}

	logger := logging.WithContext(ctx, h.logger)
	logger.Debug("progress stream opened", logging.String(logging.FieldJobID, id))
	defer logger.Debug("progress stream closed", logging.String(logging.FieldJobID, id))

	last := snapshot.Progress
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if msg.Heartbeat || msg.Event == nil {
				if err := stream.comment("keep-alive"); err != nil {
					return
				}
				continue
			}
			evt := *msg.Event
			if !evt.Stage.Terminal() && evt.Progress < last {
				continue
			}
			last = evt.Progress
			if err := stream.event(evt); err != nil {
				return
			}
			if evt.Stage.Terminal() {
				return
			}
		}
	}
}

// snapshotEvent renders a status as the first event of a stream. Finished
// jobs produce their terminal event.
func snapshotEvent(status workflow.JobStatus) progress.Event {
	evt := progress.Event{
		JobID:     status.ID,
		Stage:     status.Stage,
		Progress:  progress.ClampPercent(status.Progress),
		Message:   status.Message,
		Timestamp: time.Now().UTC(),
	}
	switch status.State {
	case workflow.StateReady:
		evt.Stage = progress.StageComplete
		evt.Progress = 100
	case workflow.StateFailed:
		evt.Stage = progress.StageError
		evt.Error = status.Error
	default:
		if evt.Stage == "" {
			evt.Stage = progress.StageQueued
		}
	}
	return evt
}

type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (s *sseWriter) event(evt progress.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.rc.Flush()
}
