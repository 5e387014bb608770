package timeline

import (
	"math"
	"strings"

	"reelsmith/internal/animation"
)

// Orientation selects the output frame shape.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// CaptionPosition selects where caption pages are anchored vertically.
type CaptionPosition string

const (
	CaptionTop    CaptionPosition = "top"
	CaptionCenter CaptionPosition = "center"
	CaptionBottom CaptionPosition = "bottom"
)

// CaptionStyle is passed through to the renderer untouched.
type CaptionStyle struct {
	FontSize        int    `json:"fontSize,omitempty" yaml:"fontSize,omitempty" toml:"font_size"`
	FontFamily      string `json:"fontFamily,omitempty" yaml:"fontFamily,omitempty" toml:"font_family"`
	BackgroundColor string `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty" toml:"background_color"`
	TextColor       string `json:"textColor,omitempty" yaml:"textColor,omitempty" toml:"text_color"`
	HighlightColor  string `json:"highlightColor,omitempty" yaml:"highlightColor,omitempty" toml:"highlight_color"`
}

// RenderConfig is the per-job set of rendering options. Every field is
// optional; Normalize fills gaps from a defaults value.
type RenderConfig struct {
	Orientation          Orientation                `json:"orientation,omitempty" yaml:"orientation,omitempty" toml:"orientation"`
	PaddingBackMs        *int64                     `json:"paddingBackMs,omitempty" yaml:"paddingBackMs,omitempty" toml:"padding_back_ms"`
	Transition           animation.Transition       `json:"transition,omitempty" yaml:"transition,omitempty" toml:"transition"`
	TransitionDurationMs int64                      `json:"transitionDurationMs,omitempty" yaml:"transitionDurationMs,omitempty" toml:"transition_duration_ms"`
	CaptionAnimation     animation.CaptionAnimation `json:"captionAnimation,omitempty" yaml:"captionAnimation,omitempty" toml:"caption_animation"`
	KenBurns             *bool                      `json:"kenBurnsEnabled,omitempty" yaml:"kenBurnsEnabled,omitempty" toml:"ken_burns"`
	CaptionPosition      CaptionPosition            `json:"captionPosition,omitempty" yaml:"captionPosition,omitempty" toml:"caption_position"`
	CaptionStyle         CaptionStyle               `json:"captionStyle,omitempty" yaml:"captionStyle,omitempty" toml:"caption_style"`
	MusicVolume          *float64                   `json:"musicVolume,omitempty" yaml:"musicVolume,omitempty" toml:"music_volume"`
	Music                string                     `json:"music,omitempty" yaml:"music,omitempty" toml:"music"`
	TTSSpeed             float64                    `json:"ttsSpeed,omitempty" yaml:"ttsSpeed,omitempty" toml:"tts_speed"`
	Voice                string                     `json:"voice,omitempty" yaml:"voice,omitempty" toml:"voice"`
}

// DefaultRenderConfig returns the stock render options.
func DefaultRenderConfig() RenderConfig {
	kenBurns := false
	volume := 0.1
	padding := int64(1500)
	return RenderConfig{
		Orientation:          OrientationPortrait,
		PaddingBackMs:        &padding,
		Transition:           animation.TransitionNone,
		TransitionDurationMs: 500,
		CaptionAnimation:     animation.CaptionNone,
		KenBurns:             &kenBurns,
		CaptionPosition:      CaptionCenter,
		CaptionStyle: CaptionStyle{
			FontSize:        72,
			FontFamily:      "Inter",
			BackgroundColor: "transparent",
			TextColor:       "#FFFFFF",
			HighlightColor:  "#39E508",
		},
		MusicVolume: &volume,
		TTSSpeed:    1.0,
		Voice:       "en-US-AriaNeural",
	}
}

// Normalize returns a copy of c with omitted fields taken from defaults and
// unrecognised enum values replaced by the default. It never fails.
func (c RenderConfig) Normalize(defaults RenderConfig) RenderConfig {
	stock := DefaultRenderConfig()
	out := c

	out.Orientation = Orientation(strings.ToLower(strings.TrimSpace(string(c.Orientation))))
	switch out.Orientation {
	case OrientationPortrait, OrientationLandscape:
	default:
		out.Orientation = pick(defaults.Orientation, stock.Orientation, OrientationPortrait, OrientationLandscape)
	}

	padding := stock.PaddingBackMs
	if defaults.PaddingBackMs != nil && *defaults.PaddingBackMs >= 0 {
		padding = defaults.PaddingBackMs
	}
	if c.PaddingBackMs != nil && *c.PaddingBackMs >= 0 {
		padding = c.PaddingBackMs
	}
	p := *padding
	out.PaddingBackMs = &p

	out.Transition = animation.Transition(strings.ToLower(strings.TrimSpace(string(c.Transition))))
	switch out.Transition {
	case animation.TransitionNone, animation.TransitionFade, animation.TransitionSlide:
	default:
		out.Transition = pick(defaults.Transition, stock.Transition, animation.TransitionNone, animation.TransitionFade, animation.TransitionSlide)
	}

	if c.TransitionDurationMs <= 0 {
		out.TransitionDurationMs = defaults.TransitionDurationMs
		if out.TransitionDurationMs <= 0 {
			out.TransitionDurationMs = stock.TransitionDurationMs
		}
	}

	switch c.CaptionAnimation {
	case animation.CaptionNone, animation.CaptionFadeIn, animation.CaptionSlideUp, animation.CaptionScale:
	default:
		out.CaptionAnimation = pick(defaults.CaptionAnimation, stock.CaptionAnimation, animation.CaptionNone, animation.CaptionFadeIn, animation.CaptionSlideUp, animation.CaptionScale)
	}

	if c.KenBurns == nil {
		enabled := false
		if defaults.KenBurns != nil {
			enabled = *defaults.KenBurns
		}
		out.KenBurns = &enabled
	} else {
		enabled := *c.KenBurns
		out.KenBurns = &enabled
	}

	out.CaptionPosition = CaptionPosition(strings.ToLower(strings.TrimSpace(string(c.CaptionPosition))))
	switch out.CaptionPosition {
	case CaptionTop, CaptionCenter, CaptionBottom:
	default:
		out.CaptionPosition = pick(defaults.CaptionPosition, stock.CaptionPosition, CaptionTop, CaptionCenter, CaptionBottom)
	}

	out.CaptionStyle = normalizeStyle(c.CaptionStyle, defaults.CaptionStyle, stock.CaptionStyle)

	volume := stock.MusicVolume
	if defaults.MusicVolume != nil && validVolume(*defaults.MusicVolume) {
		volume = defaults.MusicVolume
	}
	if c.MusicVolume != nil && validVolume(*c.MusicVolume) {
		volume = c.MusicVolume
	}
	v := *volume
	out.MusicVolume = &v

	if strings.TrimSpace(c.Music) == "" {
		out.Music = strings.TrimSpace(defaults.Music)
	}

	if c.TTSSpeed <= 0 || math.IsNaN(c.TTSSpeed) || math.IsInf(c.TTSSpeed, 0) {
		out.TTSSpeed = defaults.TTSSpeed
		if out.TTSSpeed <= 0 || math.IsNaN(out.TTSSpeed) {
			out.TTSSpeed = stock.TTSSpeed
		}
	}

	if strings.TrimSpace(c.Voice) == "" {
		out.Voice = firstNonEmpty(defaults.Voice, stock.Voice)
	}
	return out
}

// KenBurnsEnabled reports the effective pan/zoom flag.
func (c RenderConfig) KenBurnsEnabled() bool {
	return c.KenBurns != nil && *c.KenBurns
}

// Volume reports the effective background music volume.
func (c RenderConfig) Volume() float64 {
	if c.MusicVolume == nil {
		return 0
	}
	return *c.MusicVolume
}

// Dimensions returns the output frame size in pixels.
func (c RenderConfig) Dimensions() (width, height int) {
	if c.Orientation == OrientationLandscape {
		return 1920, 1080
	}
	return 1080, 1920
}

// TransitionFrames converts the transition window to frames at fps.
func (c RenderConfig) TransitionFrames(fps int) int {
	return msToFrames(c.TransitionDurationMs, fps)
}

// Padding reports the effective trailing padding in milliseconds.
func (c RenderConfig) Padding() int64 {
	if c.PaddingBackMs == nil || *c.PaddingBackMs < 0 {
		return 0
	}
	return *c.PaddingBackMs
}

// PaddingFrames converts the trailing padding to frames at fps.
func (c RenderConfig) PaddingFrames(fps int) int {
	return msToFrames(c.Padding(), fps)
}

func pick[T comparable](preferred, fallback T, allowed ...T) T {
	for _, a := range allowed {
		if preferred == a {
			return preferred
		}
	}
	return fallback
}

func normalizeStyle(style, defaults, stock CaptionStyle) CaptionStyle {
	if style.FontSize <= 0 {
		style.FontSize = defaults.FontSize
		if style.FontSize <= 0 {
			style.FontSize = stock.FontSize
		}
	}
	style.FontFamily = firstNonEmpty(style.FontFamily, defaults.FontFamily, stock.FontFamily)
	style.BackgroundColor = firstNonEmpty(style.BackgroundColor, defaults.BackgroundColor, stock.BackgroundColor)
	style.TextColor = firstNonEmpty(style.TextColor, defaults.TextColor, stock.TextColor)
	style.HighlightColor = firstNonEmpty(style.HighlightColor, defaults.HighlightColor, stock.HighlightColor)
	return style
}

func validVolume(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
