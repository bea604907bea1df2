package edl

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Params is the tool-specific payload supplied by the planning agent.
type Params map[string]any

// Clone returns a deep copy of the payload.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(Params(val).Clone())
	case Params:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// Float returns the numeric value stored under the first present key, or
// fallback when none parse.
func (p Params) Float(fallback float64, keys ...string) float64 {
	for _, key := range keys {
		raw, ok := p[key]
		if !ok {
			continue
		}
		if v, ok := toFloat(raw); ok {
			return v
		}
	}
	return fallback
}

// String returns the trimmed string stored under the first present key.
func (p Params) String(fallback string, keys ...string) string {
	for _, key := range keys {
		raw, ok := p[key]
		if !ok || raw == nil {
			continue
		}
		switch val := raw.(type) {
		case string:
			if trimmed := strings.TrimSpace(val); trimmed != "" {
				return trimmed
			}
		case json.Number:
			return val.String()
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case int:
			return strconv.Itoa(val)
		}
	}
	return fallback
}

// Map returns the nested object stored under key.
func (p Params) Map(key string) (Params, bool) {
	switch val := p[key].(type) {
	case map[string]any:
		return Params(val), true
	case Params:
		return val, true
	default:
		return nil, false
	}
}

// Has reports whether key is present and non-nil.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

func toFloat(raw any) (float64, bool) {
	switch val := raw.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ParamsEqual compares two payloads structurally. Numeric values compare by
// value regardless of their Go type, and a nil payload equals an empty one.
func ParamsEqual(a, b Params) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return reflect.DeepEqual(normalizeValue(map[string]any(a)), normalizeValue(map[string]any(b)))
}

func normalizeValue(v any) any {
	if f, ok := toFloatStrict(v); ok {
		return f
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case Params:
		return normalizeValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// toFloatStrict converts only numeric kinds; numeric-looking strings stay strings.
func toFloatStrict(v any) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int64, int32, json.Number:
		return toFloat(v)
	default:
		return 0, false
	}
}

// Rect is a rectangle in normalized [0,1] frame coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullFrame covers the whole frame.
var FullFrame = Rect{X: 0, Y: 0, Width: 1, Height: 1}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Valid reports whether the rectangle has positive area.
func (r Rect) Valid() bool { return r.Width > 0 && r.Height > 0 }

// Rect reads a normalized rectangle from the nested object under key. Both
// width/height and w/h spellings are accepted.
func (p Params) Rect(key string) (Rect, bool) {
	nested, ok := p.Map(key)
	if !ok {
		return Rect{}, false
	}
	return nested.asRect()
}

func (p Params) asRect() (Rect, bool) {
	r := Rect{
		X:      p.Float(0, "x"),
		Y:      p.Float(0, "y"),
		Width:  p.Float(0, "width", "w"),
		Height: p.Float(0, "height", "h"),
	}
	if !r.Valid() {
		return Rect{}, false
	}
	return r, true
}

const (
	DefaultZoomScale          = 1.5
	DefaultTransitionDuration = 0.5
	DefaultTextSize           = 64
	DefaultHighlightThickness = 4
	DefaultSlowMotionFactor   = 0.5
	DefaultBRollPiPSize       = 30
	DefaultFadeToBlack        = 1.0
)

// SplitParams is the typed view of split_layout params. Ratio is zero when the
// caller should fall back to the configured split.
type SplitParams struct {
	Ratio float64
}

// Split narrows split_layout params.
func (d Decision) Split() SplitParams {
	ratio := d.Params.Float(0, "splitRatio", "ratio")
	if ratio <= 0 || ratio >= 1 {
		ratio = 0
	}
	return SplitParams{Ratio: ratio}
}

// ZoomParams is the typed view of zoom_webcam/zoom_screen params.
type ZoomParams struct {
	Scale   float64
	CenterX float64
	CenterY float64
	Region  *Rect
}

// Zoom narrows zoom params.
func (d Decision) Zoom() ZoomParams {
	z := ZoomParams{
		Scale:   d.Params.Float(DefaultZoomScale, "scale", "zoom"),
		CenterX: clamp01(d.Params.Float(0.5, "centerX", "center_x")),
		CenterY: clamp01(d.Params.Float(0.5, "centerY", "center_y")),
	}
	if z.Scale < 1 {
		z.Scale = 1
	}
	if r, ok := d.Params.Rect("region"); ok {
		z.Region = &r
	}
	return z
}

// TransitionParams is the typed view of transition params.
type TransitionParams struct {
	Duration  float64
	Direction string
}

// Transition narrows transition params.
func (d Decision) Transition() TransitionParams {
	duration := d.Params.Float(DefaultTransitionDuration, "duration")
	if duration <= 0 {
		duration = DefaultTransitionDuration
	}
	direction := strings.ToLower(d.Params.String("left", "direction"))
	switch direction {
	case "left", "right", "up", "down":
	default:
		direction = "left"
	}
	return TransitionParams{Duration: duration, Direction: direction}
}

// Text animations.
const (
	AnimationNone    = "none"
	AnimationFadeIn  = "fade-in"
	AnimationSlideUp = "slide-up"
	AnimationPop     = "pop"
)

// TextParams is the typed view of text_overlay params.
type TextParams struct {
	Text      string
	Position  string
	Animation string
	FontSize  int
	FontColor string
	BoxColor  string
}

// Text narrows text_overlay params.
func (d Decision) Text() TextParams {
	t := TextParams{
		Text:      d.Params.String("", "text"),
		Position:  strings.ToLower(d.Params.String("bottom", "position")),
		Animation: strings.ToLower(d.Params.String(AnimationNone, "animation", "style")),
		FontSize:  int(math.Round(d.Params.Float(DefaultTextSize, "fontSize", "font_size"))),
		FontColor: d.Params.String("white", "fontColor", "color"),
		BoxColor:  d.Params.String("", "boxColor", "background"),
	}
	if t.FontSize <= 0 {
		t.FontSize = DefaultTextSize
	}
	switch t.Animation {
	case AnimationFadeIn, AnimationSlideUp, AnimationPop:
	default:
		t.Animation = AnimationNone
	}
	return t
}

// HighlightParams is the typed view of highlight_region params.
type HighlightParams struct {
	Region    Rect
	Color     string
	Thickness int
}

// Highlight narrows highlight_region params. The region is read from a nested
// "region" object or from top-level x/y/width/height keys.
func (d Decision) Highlight() (HighlightParams, bool) {
	region, ok := d.Params.Rect("region")
	if !ok {
		region, ok = d.Params.asRect()
	}
	if !ok {
		return HighlightParams{}, false
	}
	h := HighlightParams{
		Region:    region,
		Color:     d.Params.String("yellow", "color"),
		Thickness: int(math.Round(d.Params.Float(DefaultHighlightThickness, "thickness"))),
	}
	if h.Thickness <= 0 {
		h.Thickness = DefaultHighlightThickness
	}
	return h, true
}

// SlowMotion narrows slow_motion params into a playback-rate factor in (0,1].
func (d Decision) SlowMotion() float64 {
	factor := d.Params.Float(DefaultSlowMotionFactor, "factor", "speed", "rate")
	if factor <= 0 || factor > 1 {
		return DefaultSlowMotionFactor
	}
	return factor
}

// B-roll placement modes.
const (
	BRollFullscreen = "fullscreen"
	BRollPiP        = "pip"
)

// BRollParams is the typed view of b_roll params.
type BRollParams struct {
	Asset  string
	Mode   string
	Corner string
	Size   float64
}

// BRoll narrows b_roll params.
func (d Decision) BRoll() BRollParams {
	b := BRollParams{
		Asset:  d.Params.String("", "asset", "path", "file"),
		Mode:   strings.ToLower(d.Params.String(BRollFullscreen, "mode", "placement")),
		Corner: strings.ToLower(d.Params.String("bottom-right", "corner", "position")),
		Size:   d.Params.Float(DefaultBRollPiPSize, "size", "sizePercent"),
	}
	if b.Mode != BRollPiP {
		b.Mode = BRollFullscreen
	}
	switch b.Corner {
	case "top-left", "top-right", "bottom-left", "bottom-right":
	default:
		b.Corner = "bottom-right"
	}
	if b.Size <= 0 || b.Size > 100 {
		b.Size = DefaultBRollPiPSize
	}
	return b
}

// FadeDuration narrows fade_to_black params.
func (d Decision) FadeDuration() float64 {
	duration := d.Params.Float(DefaultFadeToBlack, "duration")
	if duration <= 0 {
		return DefaultFadeToBlack
	}
	return duration
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
