package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
)

// Each stage owns a slice of the overall percentage. Bands are contiguous so
// stage-major processing yields non-decreasing progress.
type band struct {
	lo, hi float64
}

var stageBands = map[progress.Stage]band{
	progress.StageQueued:          {0, 0},
	progress.StageGeneratingAudio: {0, 30},
	progress.StageTranscribing:    {30, 50},
	progress.StageFetchingVideos:  {50, 65},
	progress.StageComposing:       {65, 70},
	progress.StageRendering:       {70, 100},
	progress.StageComplete:        {100, 100},
}

// minRenderDelta suppresses renderer ticks smaller than this many points.
const minRenderDelta = 0.5

// bandPercent maps a completed fraction of stage onto the overall scale.
func bandPercent(stage progress.Stage, fraction float64) float64 {
	b, ok := stageBands[stage]
	if !ok {
		return 0
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return b.lo + (b.hi-b.lo)*fraction
}

type progressTracker struct {
	m       *Manager
	jobID   string
	sampler *logging.ProgressSampler

	mu      sync.Mutex
	stage   progress.Stage
	percent float64
}

func newProgressTracker(m *Manager, jobID string) *progressTracker {
	return &progressTracker{
		m:       m,
		jobID:   jobID,
		sampler: logging.NewProgressSampler(float64(m.cfg.Progress.SampleIntervalPct)),
		stage:   progress.StageQueued,
	}
}

// step reports done of total units finished within stage.
func (t *progressTracker) step(ctx context.Context, stage progress.Stage, done, total int, message string) {
	fraction := 1.0
	if total > 0 {
		fraction = float64(done) / float64(total)
	}
	t.report(ctx, stage, bandPercent(stage, fraction), message)
}

// report persists and publishes a snapshot. Progress never moves backwards;
// a lower percent keeps the previous value.
func (t *progressTracker) report(ctx context.Context, stage progress.Stage, percent float64, message string) {
	t.mu.Lock()
	percent = progress.ClampPercent(percent)
	if percent < t.percent {
		percent = t.percent
	}
	if stage == t.stage && stage == progress.StageRendering && percent < 100 && percent-t.percent < minRenderDelta {
		t.mu.Unlock()
		return
	}
	t.stage = stage
	t.percent = percent
	t.mu.Unlock()

	if err := t.m.store.UpdateProgress(ctx, t.jobID, string(stage), percent, message); err != nil && !errors.Is(err, context.Canceled) {
		t.m.logger.Warn("progress snapshot not persisted",
			logging.String(logging.FieldJobID, t.jobID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "progress_persist_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	t.m.broadcaster.Publish(progress.Event{JobID: t.jobID, Stage: stage, Progress: percent, Message: message})

	if t.sampler.ShouldLog(percent, string(stage), message) {
		logging.WithContext(ctx, t.m.logger).Info("job progress",
			logging.String(logging.FieldProgressStage, string(stage)),
			logging.Float64(logging.FieldProgressPercent, percent),
			logging.String(logging.FieldProgressMessage, message),
		)
	}
}

func sceneMessage(verb string, index, total int) string {
	return fmt.Sprintf("%s scene %d/%d", verb, index+1, total)
}
