package edl

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EdgeTolerance is the maximum distance in seconds for two timestamps to be
// considered the same layout edge.
const EdgeTolerance = 0.01

// Kind discriminates the decision union.
type Kind string

const (
	KindLayout     Kind = "layout"
	KindTransition Kind = "transition"
	KindEffect     Kind = "effect"
)

// Tool names a concrete decision variant.
type Tool string

const (
	ToolOnlyWebcam  Tool = "only_webcam"
	ToolOnlyScreen  Tool = "only_screen"
	ToolSplitLayout Tool = "split_layout"
	ToolZoomWebcam  Tool = "zoom_webcam"
	ToolZoomScreen  Tool = "zoom_screen"

	ToolCut            Tool = "cut"
	ToolFade           Tool = "fade"
	ToolSwipe          Tool = "swipe"
	ToolZoomTransition Tool = "zoom_transition"

	ToolTextOverlay     Tool = "text_overlay"
	ToolHighlightRegion Tool = "highlight_region"
	ToolSlowMotion      Tool = "slow_motion"
	ToolBRoll           Tool = "b_roll"
	ToolFadeToBlack     Tool = "fade_to_black"
)

var toolKinds = map[Tool]Kind{
	ToolOnlyWebcam:      KindLayout,
	ToolOnlyScreen:      KindLayout,
	ToolSplitLayout:     KindLayout,
	ToolZoomWebcam:      KindLayout,
	ToolZoomScreen:      KindLayout,
	ToolCut:             KindTransition,
	ToolFade:            KindTransition,
	ToolSwipe:           KindTransition,
	ToolZoomTransition:  KindTransition,
	ToolTextOverlay:     KindEffect,
	ToolHighlightRegion: KindEffect,
	ToolSlowMotion:      KindEffect,
	ToolBRoll:           KindEffect,
	ToolFadeToBlack:     KindEffect,
}

// Kind reports the decision kind the tool belongs to, or "" for unknown tools.
func (t Tool) Kind() Kind {
	return toolKinds[t]
}

// Valid reports whether the tool is part of the closed tool set.
func (t Tool) Valid() bool {
	_, ok := toolKinds[t]
	return ok
}

var titleCaser = cases.Title(language.Und)

// DisplayName renders the tool for humans, e.g. "zoom_screen" -> "Zoom Screen".
func (t Tool) DisplayName() string {
	return titleCaser.String(strings.ReplaceAll(string(t), "_", " "))
}

// Tools returns every tool of the given kind in declaration order.
func Tools(kind Kind) []Tool {
	all := []Tool{
		ToolOnlyWebcam, ToolOnlyScreen, ToolSplitLayout, ToolZoomWebcam, ToolZoomScreen,
		ToolCut, ToolFade, ToolSwipe, ToolZoomTransition,
		ToolTextOverlay, ToolHighlightRegion, ToolSlowMotion, ToolBRoll, ToolFadeToBlack,
	}
	out := make([]Tool, 0, len(all))
	for _, tool := range all {
		if tool.Kind() == kind {
			out = append(out, tool)
		}
	}
	return out
}

// Decision is one timestamped edit instruction.
type Decision struct {
	ID        string   `json:"id,omitempty"`
	Type      Kind     `json:"type"`
	Tool      Tool     `json:"tool"`
	StartTime float64  `json:"startTime"`
	EndTime   *float64 `json:"endTime,omitempty"`
	Params    Params   `json:"params,omitempty"`
}

// Clone returns a deep copy of the decision.
func (d Decision) Clone() Decision {
	out := d
	if d.EndTime != nil {
		end := *d.EndTime
		out.EndTime = &end
	}
	out.Params = d.Params.Clone()
	return out
}

// IsLayout reports whether the decision is a layout decision.
func (d Decision) IsLayout() bool { return d.Type == KindLayout }

// IsTransition reports whether the decision is a transition decision.
func (d Decision) IsTransition() bool { return d.Type == KindTransition }

// IsEffect reports whether the decision is an effect decision.
func (d Decision) IsEffect() bool { return d.Type == KindEffect }

// End returns the explicit end time and whether one was set.
func (d Decision) End() (float64, bool) {
	if d.EndTime == nil {
		return 0, false
	}
	return *d.EndTime, true
}

// Seconds returns a pointer to v, for building EndTime values.
func Seconds(v float64) *float64 {
	return &v
}

// WebcamRegion is the detected camera overlay rectangle in source-frame pixels.
type WebcamRegion struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Position   string  `json:"position,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Usable reports whether the region describes a non-degenerate rectangle.
func (r *WebcamRegion) Usable() bool {
	return r != nil && r.Width > 0 && r.Height > 0
}

const (
	DefaultOutputWidth  = 1920
	DefaultOutputHeight = 1080
	DefaultSourceWidth  = 1920
)

// Metadata carries destination and source facts the compiler needs. A zero
// SourceHeight is assumed to be a 16:9 frame at SourceWidth.
type Metadata struct {
	OutputWidth       int     `json:"outputWidth,omitempty"`
	OutputHeight      int     `json:"outputHeight,omitempty"`
	TargetAspectRatio string  `json:"targetAspectRatio,omitempty"`
	SourceDuration    float64 `json:"sourceDuration,omitempty"`
	SourceWidth       int     `json:"sourceWidth,omitempty"`
	SourceHeight      int     `json:"sourceHeight,omitempty"`
	FontPath          string  `json:"fontPath,omitempty"`
}

// WithDefaults fills zero dimensions with the repository defaults.
func (m Metadata) WithDefaults() Metadata {
	if m.OutputWidth <= 0 {
		m.OutputWidth = DefaultOutputWidth
	}
	if m.OutputHeight <= 0 {
		m.OutputHeight = DefaultOutputHeight
	}
	if m.SourceWidth <= 0 {
		m.SourceWidth = DefaultSourceWidth
	}
	if m.SourceHeight <= 0 {
		m.SourceHeight = m.SourceWidth * 9 / 16
	}
	if strings.TrimSpace(m.TargetAspectRatio) == "" {
		m.TargetAspectRatio = aspectLabel(m.OutputWidth, m.OutputHeight)
	}
	return m
}

// IsWidescreen reports whether the target is 16:9.
func (m Metadata) IsWidescreen() bool {
	if ratio := strings.TrimSpace(m.TargetAspectRatio); ratio != "" {
		return ratio == "16:9"
	}
	if m.OutputWidth <= 0 || m.OutputHeight <= 0 {
		return true
	}
	return aspectLabel(m.OutputWidth, m.OutputHeight) == "16:9"
}

func aspectLabel(w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	g := gcd(w, h)
	return strconv.Itoa(w/g) + ":" + strconv.Itoa(h/g)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// List is the finalized program handed between pipeline stages.
type List struct {
	Decisions    []Decision    `json:"decisions"`
	SourceVideo  string        `json:"sourceVideo"`
	OutputPath   string        `json:"outputPath"`
	WebcamRegion *WebcamRegion `json:"webcamRegion,omitempty"`
	Metadata     Metadata      `json:"metadata"`
}

// Clone returns a deep copy of the list.
func (l List) Clone() List {
	out := l
	out.Decisions = make([]Decision, len(l.Decisions))
	for i, d := range l.Decisions {
		out.Decisions[i] = d.Clone()
	}
	if l.WebcamRegion != nil {
		region := *l.WebcamRegion
		out.WebcamRegion = &region
	}
	return out
}

// Count returns how many decisions of the given kind the list holds.
func (l List) Count(kind Kind) int {
	n := 0
	for _, d := range l.Decisions {
		if d.Type == kind {
			n++
		}
	}
	return n
}

// SortByStart returns a copy of decisions ordered by StartTime. Ties keep their
// original relative order.
func SortByStart(decisions []Decision) []Decision {
	out := make([]Decision, len(decisions))
	copy(out, decisions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// Near reports whether a and b are within EdgeTolerance of each other.
func Near(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= EdgeTolerance
}
