// Package accumulator incrementally builds an edit decision list from agent
// output, assigns stable identifiers, and checks the structural invariants
// the compiler relies on.
package accumulator

import (
	"fmt"
	"math"
	"strconv"

	"montage/internal/edl"
)

// Accumulator collects decisions for one video. It is not safe for concurrent
// use; give each agent its own instance.
type Accumulator struct {
	decisions []edl.Decision
	counter   int
	metadata  edl.Metadata
}

// Option customizes a new Accumulator.
type Option func(*Accumulator)

// WithMetadata sets the metadata stamped onto lists produced by ToEDL.
func WithMetadata(meta edl.Metadata) Option {
	return func(a *Accumulator) {
		a.metadata = meta
	}
}

// New returns an empty accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add appends a decision and returns its assigned "{type}-{n}" identifier.
// Any ID already present on the decision is replaced.
func (a *Accumulator) Add(decision edl.Decision) string {
	a.counter++
	d := decision.Clone()
	if d.Type == "" {
		d.Type = d.Tool.Kind()
	}
	d.ID = string(d.Type) + "-" + strconv.Itoa(a.counter)
	a.decisions = append(a.decisions, d)
	return d.ID
}

// Decisions returns a copy of the accumulated decisions ordered by start time.
func (a *Accumulator) Decisions() []edl.Decision {
	out := make([]edl.Decision, len(a.decisions))
	for i, d := range a.decisions {
		out[i] = d.Clone()
	}
	return edl.SortByStart(out)
}

// Len reports how many decisions have been added since the last Clear.
func (a *Accumulator) Len() int {
	return len(a.decisions)
}

// Validate checks layout overlap and transition placement.
func (a *Accumulator) Validate() Result {
	return ValidateDecisions(a.decisions)
}

// ToEDL snapshots the accumulated decisions into a list. Later Add calls do
// not affect the returned value.
func (a *Accumulator) ToEDL(sourceVideo, outputPath string, region *edl.WebcamRegion) edl.List {
	list := edl.List{
		Decisions:   a.Decisions(),
		SourceVideo: sourceVideo,
		OutputPath:  outputPath,
		Metadata:    a.metadata,
	}
	if region != nil {
		r := *region
		list.WebcamRegion = &r
	}
	return list
}

// Clear drops all decisions and restarts identifier numbering.
func (a *Accumulator) Clear() {
	a.decisions = nil
	a.counter = 0
}

// Result is the outcome of a structural validation pass.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateDecisions runs the structural checks against an arbitrary decision
// slice. Every violation is reported; the check never stops early.
func ValidateDecisions(decisions []edl.Decision) Result {
	sorted := edl.SortByStart(decisions)
	var layouts, transitions []edl.Decision
	for _, d := range sorted {
		switch d.Type {
		case edl.KindLayout:
			layouts = append(layouts, d)
		case edl.KindTransition:
			transitions = append(transitions, d)
		}
	}

	errs := make([]string, 0)
	for i := 0; i < len(layouts); i++ {
		for j := i + 1; j < len(layouts); j++ {
			if overlaps(layouts[i], layouts[j]) {
				errs = append(errs, fmt.Sprintf(
					"layout %s (%s, %s) overlaps layout %s (%s, %s)",
					label(layouts[i]), formatTime(layouts[i].StartTime), formatEnd(layouts[i]),
					label(layouts[j]), formatTime(layouts[j].StartTime), formatEnd(layouts[j]),
				))
			}
		}
	}

	if len(layouts) > 0 {
		for _, tr := range transitions {
			if !onLayoutEdge(tr.StartTime, layouts) {
				errs = append(errs, fmt.Sprintf(
					"transition %s at %s does not align with any layout boundary",
					label(tr), formatTime(tr.StartTime),
				))
			}
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// overlaps treats an open-ended layout as running forever. Ranges that touch
// within edl.EdgeTolerance do not overlap.
func overlaps(a, b edl.Decision) bool {
	aEnd := endOrInf(a) - edl.EdgeTolerance
	bEnd := endOrInf(b) - edl.EdgeTolerance
	return a.StartTime < bEnd && b.StartTime < aEnd
}

func endOrInf(d edl.Decision) float64 {
	if end, ok := d.End(); ok {
		return end
	}
	return math.Inf(1)
}

func onLayoutEdge(t float64, layouts []edl.Decision) bool {
	for _, l := range layouts {
		if edl.Near(t, l.StartTime) {
			return true
		}
		if end, ok := l.End(); ok && edl.Near(t, end) {
			return true
		}
	}
	return false
}

func label(d edl.Decision) string {
	if d.ID != "" {
		return d.ID
	}
	return string(d.Tool)
}

func formatTime(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "s"
}

func formatEnd(d edl.Decision) string {
	if end, ok := d.End(); ok {
		return formatTime(end)
	}
	return "open"
}
