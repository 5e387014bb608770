package timeline

import (
	"fmt"
	"math"

	"reelsmith/internal/animation"
	"reelsmith/internal/captions"
	"reelsmith/internal/services"
)

const composeStage = "composing"

// AudioRef points at a scene's narration track.
type AudioRef struct {
	URL             string  `json:"url" yaml:"url"`
	DurationSeconds float64 `json:"durationSeconds" yaml:"durationSeconds"`
}

// SceneRecord is the fully resolved input for one scene.
type SceneRecord struct {
	Captions []captions.Token `json:"captions" yaml:"captions"`
	VideoRef string           `json:"videoRef" yaml:"videoRef"`
	Audio    AudioRef         `json:"audio" yaml:"audio"`
}

// PageSlot places a caption page on the frame axis, relative to its scene.
type PageSlot struct {
	StartFrame     int           `json:"startFrame"`
	DurationFrames int           `json:"durationFrames"`
	Page           captions.Page `json:"page"`
}

// SceneSlot places a scene on the absolute frame axis.
type SceneSlot struct {
	StartFrame     int         `json:"startFrame"`
	DurationFrames int         `json:"durationFrames"`
	PaddingFrames  int         `json:"paddingFrames,omitempty"`
	Scene          SceneRecord `json:"scene"`
	Pages          []PageSlot  `json:"pages"`
}

// EndFrame is the first frame after the slot.
func (s SceneSlot) EndFrame() int {
	return s.StartFrame + s.DurationFrames
}

// Plan is the frame-indexed composition handed to the renderer.
type Plan struct {
	FPS            int              `json:"fps"`
	Width          int              `json:"width"`
	Height         int              `json:"height"`
	DurationFrames int              `json:"durationFrames"`
	Config         RenderConfig     `json:"config"`
	Slots          []SceneSlot      `json:"slots"`
	Pagination     captions.Options `json:"pagination"`
	Animation      animation.Params `json:"animation"`
}

// Options tunes pagination and animation curves.
type Options struct {
	Pagination captions.Options
	Animation  animation.Params
}

// DefaultOptions returns stock pagination and animation settings.
func DefaultOptions() Options {
	return Options{
		Pagination: captions.DefaultOptions(),
		Animation:  animation.DefaultParams(),
	}
}

// Compose lays scenes end to end on the frame axis. Scene boundaries come
// from cumulative audio durations so rounding never accumulates: scene i
// starts at round(fps·Σd[0..i)) and ends at round(fps·Σd[0..i]). The final
// scene is extended by the configured trailing padding.
func Compose(scenes []SceneRecord, cfg RenderConfig, fps int, opts Options) (*Plan, error) {
	if len(scenes) == 0 {
		return nil, compositionError("no scenes to compose")
	}
	if fps <= 0 {
		return nil, compositionError(fmt.Sprintf("invalid frame rate %d", fps))
	}
	// Only fields still unset take the stock defaults.
	cfg = cfg.Normalize(DefaultRenderConfig())
	opts.Animation = opts.Animation.Normalized()
	width, height := cfg.Dimensions()

	plan := &Plan{
		FPS:        fps,
		Width:      width,
		Height:     height,
		Config:     cfg,
		Slots:      make([]SceneSlot, 0, len(scenes)),
		Pagination: opts.Pagination,
		Animation:  opts.Animation,
	}

	var cumulative float64
	edge := 0
	for i, scene := range scenes {
		d := scene.Audio.DurationSeconds
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return nil, compositionError(fmt.Sprintf("scene %d has invalid audio duration %v", i, d))
		}
		cumulative += d
		next := secondsToFrames(cumulative, fps)
		plan.Slots = append(plan.Slots, SceneSlot{
			StartFrame:     edge,
			DurationFrames: next - edge,
			Scene:          scene,
		})
		edge = next
	}

	last := &plan.Slots[len(plan.Slots)-1]
	last.PaddingFrames = cfg.PaddingFrames(fps)
	last.DurationFrames += last.PaddingFrames

	for i := range plan.Slots {
		plan.Slots[i].Pages = layoutPages(plan.Slots[i], fps, opts.Pagination)
	}
	plan.DurationFrames = last.EndFrame()

	if err := Validate(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func layoutPages(slot SceneSlot, fps int, opts captions.Options) []PageSlot {
	pages := captions.Paginate(slot.Scene.Captions, opts)
	if len(pages) == 0 {
		return nil
	}
	out := make([]PageSlot, len(pages))
	for i, page := range pages {
		out[i] = PageSlot{
			StartFrame: clampFrame(msToFrames(page.StartMs, fps), slot.DurationFrames),
			Page:       page,
		}
	}
	for i := range out {
		end := slot.DurationFrames
		if i+1 < len(out) {
			end = out[i+1].StartFrame
		}
		out[i].DurationFrames = max(end-out[i].StartFrame, 0)
	}
	return out
}

// Validate re-checks the structural invariants of a plan: slots are
// contiguous from frame zero, caption pages stay inside their scene, and the
// unpadded frame total matches the summed audio within one frame.
func Validate(plan *Plan) error {
	if plan == nil {
		return compositionError("nil plan")
	}
	if plan.FPS <= 0 {
		return compositionError(fmt.Sprintf("invalid frame rate %d", plan.FPS))
	}
	if len(plan.Slots) == 0 {
		return compositionError("plan has no scenes")
	}

	expectedStart := 0
	unpadded := 0
	var seconds float64
	for i, slot := range plan.Slots {
		if slot.StartFrame != expectedStart {
			return compositionError(fmt.Sprintf("scene %d starts at frame %d, expected %d", i, slot.StartFrame, expectedStart))
		}
		if slot.DurationFrames < 0 || slot.PaddingFrames < 0 || slot.PaddingFrames > slot.DurationFrames {
			return compositionError(fmt.Sprintf("scene %d has invalid duration %d (padding %d)", i, slot.DurationFrames, slot.PaddingFrames))
		}
		if slot.PaddingFrames > 0 && i != len(plan.Slots)-1 {
			return compositionError(fmt.Sprintf("scene %d is padded but is not the last scene", i))
		}
		prevEnd := 0
		for j, page := range slot.Pages {
			if page.StartFrame < prevEnd || page.DurationFrames < 0 || page.StartFrame+page.DurationFrames > slot.DurationFrames {
				return compositionError(fmt.Sprintf("scene %d caption page %d spans [%d,%d) outside [%d,%d)", i, j, page.StartFrame, page.StartFrame+page.DurationFrames, prevEnd, slot.DurationFrames))
			}
			prevEnd = page.StartFrame + page.DurationFrames
		}
		expectedStart = slot.EndFrame()
		unpadded += slot.DurationFrames - slot.PaddingFrames
		seconds += slot.Scene.Audio.DurationSeconds
	}

	if plan.DurationFrames != expectedStart {
		return compositionError(fmt.Sprintf("plan duration %d does not match last scene end %d", plan.DurationFrames, expectedStart))
	}
	if want := secondsToFrames(seconds, plan.FPS); absInt(unpadded-want) > 1 {
		return compositionError(fmt.Sprintf("scene frames sum to %d, audio implies %d", unpadded, want))
	}
	return nil
}

func compositionError(message string) error {
	return services.Wrap(services.ErrComposition, composeStage, "compose", message, nil)
}

func secondsToFrames(seconds float64, fps int) int {
	return int(math.Round(seconds * float64(fps)))
}

func msToFrames(ms int64, fps int) int {
	return int(math.Round(float64(ms) * float64(fps) / 1000))
}

func clampFrame(frame, limit int) int {
	if frame < 0 {
		return 0
	}
	if frame > limit {
		return limit
	}
	return frame
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
