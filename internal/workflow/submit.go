package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

const submitStage = "submit"

// Validate checks a submission before it is queued.
func (r SubmitRequest) Validate() error {
	if len(r.Scenes) == 0 {
		return services.Wrap(services.ErrValidation, submitStage, "validate", "at least one scene is required", nil)
	}
	for i, scene := range r.Scenes {
		if strings.TrimSpace(scene.Text) == "" {
			return services.Wrap(services.ErrValidation, submitStage, "validate", fmt.Sprintf("scene %d has no text", i), nil)
		}
		if len(searchTerms(scene.SearchTerms)) == 0 && strings.TrimSpace(scene.Prompt) == "" {
			return services.Wrap(services.ErrValidation, submitStage, "validate", fmt.Sprintf("scene %d needs search terms or a prompt", i), nil)
		}
	}
	return nil
}

// Submit validates and queues a job, returning its id. The
// render config is merged with the configured defaults before it is stored,
// so later default changes never alter a queued job.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	req.Config = req.Config.Normalize(m.cfg.Render.Defaults)
	for i := range req.Scenes {
		req.Scenes[i].Text = strings.TrimSpace(req.Scenes[i].Text)
		req.Scenes[i].SearchTerms = searchTerms(req.Scenes[i].SearchTerms)
		req.Scenes[i].Prompt = strings.TrimSpace(req.Scenes[i].Prompt)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, submitStage, "encode request", "request could not be encoded", err)
	}
	job, err := m.store.Enqueue(ctx, "", string(payload), len(req.Scenes))
	if err != nil {
		return "", services.Wrap(services.ErrResource, submitStage, "enqueue", "queue unavailable", err)
	}

	m.logger.Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("scenes", len(req.Scenes)),
		logging.String("orientation", string(req.Config.Orientation)),
		logging.String(logging.FieldEventType, "job_queued"),
	)
	m.broadcaster.Publish(progress.Event{JobID: job.ID, Stage: progress.StageQueued, Message: "Queued"})
	m.signal()
	return job.ID, nil
}

func decodeRequest(job *queue.Job) (SubmitRequest, error) {
	var req SubmitRequest
	if err := json.Unmarshal([]byte(job.RequestJSON), &req); err != nil {
		return SubmitRequest{}, services.Wrap(services.ErrComposition, string(progress.StageQueued), "decode request", "stored request is unreadable", err)
	}
	if err := req.Validate(); err != nil {
		return SubmitRequest{}, err
	}
	return req, nil
}

func searchTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if trimmed := strings.TrimSpace(term); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
