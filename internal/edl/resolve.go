package edl

// Span is a decision with a fully closed interval. Open is set when the end
// could not be determined because the source duration is unknown.
type Span struct {
	Decision Decision
	Start    float64
	End      float64
	Open     bool
}

// Duration returns End-Start, or zero for open spans.
func (s Span) Duration() float64 {
	if s.Open || s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Contains reports whether t falls inside [Start, End).
func (s Span) Contains(t float64) bool {
	if t < s.Start {
		return false
	}
	return s.Open || t < s.End
}

// Resolve sorts decisions by start time and closes every interval:
//
//   - layouts without an end run to the next layout start, else to sourceDuration
//   - effects without an end run to sourceDuration
//   - transitions occupy [start, start+duration]
func Resolve(decisions []Decision, sourceDuration float64) []Span {
	sorted := SortByStart(decisions)
	spans := make([]Span, 0, len(sorted))

	nextLayoutStart := make([]float64, len(sorted))
	hasNext := make([]bool, len(sorted))
	var (
		pending  float64
		havePend bool
	)
	for i := len(sorted) - 1; i >= 0; i-- {
		nextLayoutStart[i] = pending
		hasNext[i] = havePend
		if sorted[i].IsLayout() {
			pending = sorted[i].StartTime
			havePend = true
		}
	}

	for i, d := range sorted {
		span := Span{Decision: d, Start: d.StartTime}
		switch {
		case d.IsTransition():
			span.End = d.StartTime + d.Transition().Duration
		default:
			if end, ok := d.End(); ok {
				span.End = end
				break
			}
			if d.IsLayout() && hasNext[i] {
				span.End = nextLayoutStart[i]
				break
			}
			if sourceDuration > d.StartTime {
				span.End = sourceDuration
				break
			}
			span.End = d.StartTime
			span.Open = true
		}
		spans = append(spans, span)
	}
	return spans
}

// Filter returns the spans of the given kind, preserving order.
func Filter(spans []Span, kind Kind) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Decision.Type == kind {
			out = append(out, s)
		}
	}
	return out
}
