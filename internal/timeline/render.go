package timeline

import (
	"sort"

	"reelsmith/internal/animation"
	"reelsmith/internal/captions"
)

// Word is one caption token as drawn on a frame.
type Word struct {
	Text   string `json:"text"`
	Active bool   `json:"active"`
}

// SceneLayer describes the background layer of a frame.
type SceneLayer struct {
	Index          int                 `json:"index"`
	LocalFrame     int                 `json:"localFrame"`
	DurationFrames int                 `json:"durationFrames"`
	VideoRef       string              `json:"videoRef"`
	AudioURL       string              `json:"audioUrl"`
	Opacity        float64             `json:"opacity"`
	SlideOffsetPct float64             `json:"slideOffsetPct"`
	Transform      animation.Transform `json:"transform"`
}

// CaptionLayer describes the caption page visible on a frame.
type CaptionLayer struct {
	PageIndex  int             `json:"pageIndex"`
	LocalFrame int             `json:"localFrame"`
	Lines      [][]Word        `json:"lines"`
	Opacity    float64         `json:"opacity"`
	OffsetYPx  float64         `json:"offsetYPx"`
	Scale      float64         `json:"scale"`
	Position   CaptionPosition `json:"position"`
	Style      CaptionStyle    `json:"style"`
}

// Frame is the complete set of draw instructions for one frame index.
type Frame struct {
	Index       int           `json:"index"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Scene       *SceneLayer   `json:"scene,omitempty"`
	Caption     *CaptionLayer `json:"caption,omitempty"`
	Music       string        `json:"music,omitempty"`
	MusicVolume float64       `json:"musicVolume"`
}

// Empty reports whether the frame lies outside the plan.
func (f Frame) Empty() bool {
	return f.Scene == nil
}

// Render derives the draw instructions for a single frame from the plan. It
// holds no state between calls, so frames may be rendered in any order and
// re-rendering a frame always yields the same result.
func Render(plan *Plan, frame int) Frame {
	if plan == nil || frame < 0 || frame >= plan.DurationFrames {
		return Frame{Index: frame}
	}
	out := Frame{
		Index:       frame,
		Width:       plan.Width,
		Height:      plan.Height,
		Music:       plan.Config.Music,
		MusicVolume: plan.Config.Volume(),
	}

	idx := sort.Search(len(plan.Slots), func(i int) bool {
		return plan.Slots[i].EndFrame() > frame
	})
	if idx >= len(plan.Slots) {
		return Frame{Index: frame}
	}
	slot := plan.Slots[idx]
	local := frame - slot.StartFrame
	cfg := plan.Config
	window := cfg.TransitionFrames(plan.FPS)

	out.Scene = &SceneLayer{
		Index:          idx,
		LocalFrame:     local,
		DurationFrames: slot.DurationFrames,
		VideoRef:       slot.Scene.VideoRef,
		AudioURL:       slot.Scene.Audio.URL,
		Opacity:        animation.TransitionOpacity(cfg.Transition, local, slot.DurationFrames, window),
		SlideOffsetPct: animation.SlideOffsetPct(cfg.Transition, local, window),
		Transform:      animation.KenBurns(cfg.KenBurnsEnabled(), local, slot.DurationFrames, plan.Animation),
	}

	for pi, page := range slot.Pages {
		if local < page.StartFrame || local >= page.StartFrame+page.DurationFrames {
			continue
		}
		pageLocal := local - page.StartFrame
		out.Caption = &CaptionLayer{
			PageIndex:  pi,
			LocalFrame: pageLocal,
			Lines:      renderLines(page.Page, slot.StartFrame, plan.FPS, frame),
			Opacity:    animation.CaptionOpacity(cfg.CaptionAnimation, pageLocal, plan.Animation),
			OffsetYPx:  animation.CaptionOffset(cfg.CaptionAnimation, pageLocal, plan.Animation),
			Scale:      animation.CaptionScaleFactor(cfg.CaptionAnimation, pageLocal, plan.FPS, plan.Animation),
			Position:   cfg.CaptionPosition,
			Style:      cfg.CaptionStyle,
		}
		break
	}
	return out
}

func renderLines(page captions.Page, sceneStart, fps, frame int) [][]Word {
	tokens := page.Tokens()
	active := activeFlags(tokens, sceneStart, fps, frame)
	lines := make([][]Word, 0, len(page.Lines))
	k := 0
	for _, line := range page.Lines {
		words := make([]Word, 0, len(line.Tokens))
		for _, tok := range line.Tokens {
			words = append(words, Word{Text: tok.Text, Active: active[k]})
			k++
		}
		lines = append(lines, words)
	}
	return lines
}

// activeFlags marks the tokens spoken at frame. When rounding lets the end
// frame of one token meet the start frame of a later one, the later token
// wins so a boundary frame never highlights two words.
func activeFlags(tokens []captions.Token, sceneStart, fps, frame int) []bool {
	flags := make([]bool, len(tokens))
	for i, tok := range tokens {
		flags[i] = TokenActive(sceneStart, tok, fps, frame)
	}
	for i := range tokens {
		if !flags[i] {
			continue
		}
		start := sceneStart + msToFrames(tokens[i].StartMs, fps)
		for j := i + 1; j < len(tokens); j++ {
			if flags[j] && sceneStart+msToFrames(tokens[j].StartMs, fps) > start {
				flags[i] = false
				break
			}
		}
	}
	return flags
}

// TokenActive reports whether tok is being spoken at the absolute frame. The
// interval is closed on both ends.
func TokenActive(sceneStartFrame int, tok captions.Token, fps, frame int) bool {
	if fps <= 0 {
		return false
	}
	start := sceneStartFrame + msToFrames(tok.StartMs, fps)
	end := sceneStartFrame + msToFrames(tok.EndMs, fps)
	return frame >= start && frame <= end
}
