package compiler

import (
	"strconv"

	"montage/internal/edl"
)

// fallbackWebcam is the bottom-right quarter, where screen recorders usually
// place the camera bubble.
var fallbackWebcam = edl.Rect{X: 0.75, Y: 0.75, Width: 0.25, Height: 0.25}

// minScreenWidth is the narrowest screen strip kept after removing the webcam
// columns. Narrower strips fall back to the full frame.
const minScreenWidth = 0.05

// segment is one lowered layout span.
type segment struct {
	span     edl.Span
	video    string
	audio    string
	duration float64
	crop     edl.Rect
}

func (l *lowering) lowerSegment(span edl.Span) segment {
	seg := segment{
		span:     span,
		video:    l.labels.Next("v"),
		audio:    l.labels.Next("a"),
		duration: span.Duration(),
		crop:     edl.FullFrame,
	}

	trim := l.trimFilters(span)
	d := span.Decision
	switch d.Tool {
	case edl.ToolOnlyWebcam:
		seg.crop = l.webcamRect()
		l.graph.emit(in("0:v"), join(trim, cropFilter(seg.crop), l.fill(l.meta.OutputWidth, l.meta.OutputHeight)), seg.video)
	case edl.ToolOnlyScreen:
		seg.crop = l.screenRect()
		l.graph.emit(in("0:v"), join(trim, cropFilter(seg.crop), l.fill(l.meta.OutputWidth, l.meta.OutputHeight)), seg.video)
	case edl.ToolSplitLayout:
		l.lowerSplit(d, trim, seg.video)
	case edl.ToolZoomWebcam, edl.ToolZoomScreen:
		seg.crop = l.zoomRect(d)
		l.graph.emit(in("0:v"), join(trim, cropFilter(seg.crop), l.fill(l.meta.OutputWidth, l.meta.OutputHeight)), seg.video)
	default:
		l.graph.emit(in("0:v"), join(trim, l.fill(l.meta.OutputWidth, l.meta.OutputHeight)), seg.video)
	}

	l.graph.emit(in("0:a"), l.audioTrimFilters(span), seg.audio)
	return seg
}

func (l *lowering) trimFilters(span edl.Span) []string {
	args := []string{kv("start", seconds(span.Start))}
	if !span.Open {
		args = append(args, kv("end", seconds(span.End)))
	}
	return []string{
		filter("trim", args...),
		"setpts=PTS-STARTPTS",
		filter("fps", strconv.Itoa(l.opts.FrameRate)),
	}
}

func (l *lowering) audioTrimFilters(span edl.Span) []string {
	args := []string{kv("start", seconds(span.Start))}
	if !span.Open {
		args = append(args, kv("end", seconds(span.End)))
	}
	return []string{filter("atrim", args...), "asetpts=PTS-STARTPTS"}
}

// lowerSplit stacks the screen above the webcam. A 16:9 target has no room
// for a stack, so the full frame is letterboxed instead.
func (l *lowering) lowerSplit(d edl.Decision, trim []string, out string) {
	w, h := l.meta.OutputWidth, l.meta.OutputHeight
	if l.meta.IsWidescreen() {
		l.graph.emit(in("0:v"), join(trim, l.letterbox(w, h)), out)
		return
	}

	ratio := d.Split().Ratio
	if ratio == 0 {
		ratio = l.opts.SplitRatio
	}
	topH := even(float64(h) * ratio)
	if topH >= h {
		topH = h - 2
	}
	bottomH := h - topH

	top, bottom := l.labels.Next("sp"), l.labels.Next("sp")
	l.graph.emit(in("0:v"), join(trim, []string{"split=2"}), top, bottom)

	screen, webcam := l.labels.Next("st"), l.labels.Next("sb")
	l.graph.emit(in(top), join(cropFilter(l.screenRect()), l.fill(w, topH)), screen)
	l.graph.emit(in(bottom), join(cropFilter(l.webcamRect()), l.fill(w, bottomH)), webcam)
	l.graph.emit(in(screen, webcam), []string{"vstack=inputs=2"}, out)
}

// webcamRect returns the camera area in normalized source coordinates.
func (l *lowering) webcamRect() edl.Rect {
	if l.region == nil {
		return fallbackWebcam
	}
	sw, sh := float64(l.meta.SourceWidth), float64(l.meta.SourceHeight)
	r, ok := clipRect(edl.Rect{
		X:      l.region.X / sw,
		Y:      l.region.Y / sh,
		Width:  l.region.Width / sw,
		Height: l.region.Height / sh,
	})
	if !ok {
		return fallbackWebcam
	}
	return r
}

// screenRect returns the full-height strip beside the webcam. Without a
// detected region the whole frame counts as screen.
func (l *lowering) screenRect() edl.Rect {
	if l.region == nil {
		return edl.FullFrame
	}
	cam := l.webcamRect()
	var r edl.Rect
	if cam.X+cam.Width/2 >= 0.5 {
		r = edl.Rect{X: 0, Y: 0, Width: cam.X, Height: 1}
	} else {
		r = edl.Rect{X: cam.Right(), Y: 0, Width: 1 - cam.Right(), Height: 1}
	}
	if r.Width <= minScreenWidth {
		return edl.FullFrame
	}
	return r
}

// zoomRect resolves the crop for a zoom layout. An explicit region wins;
// otherwise the base area is scaled down around the requested center.
// zoom_screen uses the screen strip when a webcam was detected and the full
// frame when not.
func (l *lowering) zoomRect(d edl.Decision) edl.Rect {
	z := d.Zoom()
	if z.Region != nil {
		if r, ok := clipRect(*z.Region); ok {
			return r
		}
	}

	var base edl.Rect
	if d.Tool == edl.ToolZoomWebcam {
		base = l.webcamRect()
	} else {
		base = l.screenRect()
	}

	w := base.Width / z.Scale
	h := base.Height / z.Scale
	return edl.Rect{
		X:      base.X + clamp(z.CenterX*base.Width-w/2, 0, base.Width-w),
		Y:      base.Y + clamp(z.CenterY*base.Height-h/2, 0, base.Height-h),
		Width:  w,
		Height: h,
	}
}

// fill scales to cover w×h and center-crops the overflow.
func (l *lowering) fill(w, h int) []string {
	ws, hs := strconv.Itoa(w), strconv.Itoa(h)
	return []string{
		filter("scale", ws, hs, "force_original_aspect_ratio=increase"),
		filter("crop", ws, hs),
		"setsar=1",
	}
}

func (l *lowering) letterbox(w, h int) []string {
	ws, hs := strconv.Itoa(w), strconv.Itoa(h)
	return []string{
		filter("scale", ws, hs, "force_original_aspect_ratio=decrease"),
		filter("pad", ws, hs, "(ow-iw)/2", "(oh-ih)/2", "color=black"),
		"setsar=1",
	}
}

// cropFilter crops a normalized rectangle relative to the input size. The
// full frame needs no filter.
func cropFilter(r edl.Rect) []string {
	if r == edl.FullFrame {
		return nil
	}
	return []string{filter("crop",
		"iw*"+ratio(r.Width),
		"ih*"+ratio(r.Height),
		"iw*"+ratio(r.X),
		"ih*"+ratio(r.Y),
	)}
}

// clipRect intersects r with the unit square.
func clipRect(r edl.Rect) (edl.Rect, bool) {
	x0, y0 := clamp(r.X, 0, 1), clamp(r.Y, 0, 1)
	x1, y1 := clamp(r.Right(), 0, 1), clamp(r.Bottom(), 0, 1)
	if x1 <= x0 || y1 <= y0 {
		return edl.Rect{}, false
	}
	return edl.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

func join(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
