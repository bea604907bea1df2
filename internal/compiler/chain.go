package compiler

import (
	"math"
	"strconv"

	"montage/internal/edl"
)

// ZoomSegment records where a layout landed on the output timeline and which
// source rectangle it shows.
type ZoomSegment struct {
	Start  float64    `json:"start"`
	End    float64    `json:"end"`
	Open   bool       `json:"open,omitempty"`
	Tool   edl.Tool   `json:"tool"`
	Params edl.Params `json:"params,omitempty"`
	Crop   edl.Rect   `json:"crop"`
}

// Contains reports whether output time t falls inside the segment.
func (z ZoomSegment) Contains(t float64) bool {
	if t < z.Start {
		return false
	}
	return z.Open || t < z.End
}

type zoomTable []ZoomSegment

// at returns the segment active at output time t.
func (zt zoomTable) at(t float64) (ZoomSegment, bool) {
	for _, z := range zt {
		if z.Contains(t) {
			return z, true
		}
	}
	return ZoomSegment{}, false
}

// chain joins segments in order. Boundaries with a blending transition become
// an xfade whose offset is the running video length minus the blend; all
// others become a hard concat.
func (l *lowering) chain(segments []segment, transitions []edl.Span) {
	first := segments[0]
	l.videoID, l.audioID = first.video, first.audio
	cumV, cumA := first.duration, first.duration
	l.recordZoom(first, 0)

	for i := 1; i < len(segments); i++ {
		prev, next := segments[i-1], segments[i]
		blend, d := l.blendAt(next.span.Start, transitions, prev, next)

		if blend == "" {
			l.concat(next)
			l.recordZoom(next, cumV)
			cumV += next.duration
			cumA += next.duration
			continue
		}

		offset := cumV - d
		out := l.labels.Next("x")
		l.graph.emit(in(l.videoID, next.video), []string{filter("xfade",
			kv("transition", blend),
			kv("duration", seconds(d)),
			kv("offset", seconds(offset)),
		)}, out)
		l.videoID = out

		trimmed, joined := l.labels.Next("at"), l.labels.Next("ac")
		l.graph.emit(in(l.audioID), []string{
			filter("atrim", kv("duration", seconds(cumA-d))),
			"asetpts=PTS-STARTPTS",
		}, trimmed)
		l.graph.emit(in(trimmed, next.audio), []string{"concat=n=2:v=0:a=1"}, joined)
		l.audioID = joined

		l.recordZoom(next, offset)
		cumV = offset + next.duration
		cumA = cumA - d + next.duration
		l.stats.Crossfades++
	}

	l.stats.VideoDuration = round3(cumV)
	l.stats.AudioDuration = round3(cumA)
}

// blendAt finds the transition sitting on the boundary at t and returns the
// xfade transition name and duration. An empty name means a hard cut.
func (l *lowering) blendAt(t float64, transitions []edl.Span, prev, next segment) (string, float64) {
	for _, tr := range transitions {
		if !edl.Near(tr.Start, t) {
			continue
		}
		d := tr.Decision
		name := xfadeName(d)
		if name == "" {
			return "", 0
		}
		duration := d.Transition().Duration
		if prev.duration > 0 {
			duration = math.Min(duration, prev.duration)
		}
		if next.duration > 0 {
			duration = math.Min(duration, next.duration)
		}
		if duration <= 0 {
			return "", 0
		}
		return name, duration
	}
	return "", 0
}

func xfadeName(d edl.Decision) string {
	switch d.Tool {
	case edl.ToolFade:
		return "fade"
	case edl.ToolSwipe:
		return "slide" + d.Transition().Direction
	case edl.ToolZoomTransition:
		return "radial"
	default:
		return ""
	}
}

// concat hard-joins next onto the running output. concat resets the frame
// timing, so fps is applied again before anything downstream computes offsets.
func (l *lowering) concat(next segment) {
	v, a := l.labels.Next("cv"), l.labels.Next("ca")
	l.graph.emit(in(l.videoID, l.audioID, next.video, next.audio), []string{"concat=n=2:v=1:a=1"}, v, a)
	out := l.labels.Next("f")
	l.graph.emit(in(v), []string{filter("fps", strconv.Itoa(l.opts.FrameRate))}, out)
	l.videoID, l.audioID = out, a
	l.stats.Concats++
}

func (l *lowering) recordZoom(seg segment, start float64) {
	d := seg.span.Decision
	l.zoom = append(l.zoom, ZoomSegment{
		Start:  round3(start),
		End:    round3(start + seg.duration),
		Open:   seg.span.Open,
		Tool:   d.Tool,
		Params: d.Params.Clone(),
		Crop:   seg.crop,
	})
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
