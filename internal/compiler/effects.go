package compiler

import (
	"math"
	"strconv"

	"montage/internal/edl"
)

// textAnimationWindow is how long fade-in and slide-up take to settle.
const textAnimationWindow = 0.5

func (l *lowering) applyEffects(effects []edl.Span) {
	fadeSeen := false
	for _, span := range effects {
		var ok bool
		switch span.Decision.Tool {
		case edl.ToolTextOverlay:
			ok = l.textOverlay(span)
		case edl.ToolHighlightRegion:
			ok = l.highlight(span)
		case edl.ToolSlowMotion:
			ok = l.slowMotion(span)
		case edl.ToolFadeToBlack:
			if !fadeSeen {
				ok = l.fadeToBlack(span)
				fadeSeen = true
			}
		case edl.ToolBRoll:
			continue
		}
		if ok {
			l.stats.Effects++
		} else {
			l.stats.DroppedEffect++
		}
	}
}

func (l *lowering) pushVideo(filters ...string) {
	out := l.labels.Next("e")
	l.graph.emit(in(l.videoID), filters, out)
	l.videoID = out
}

func (l *lowering) textOverlay(span edl.Span) bool {
	p := span.Decision.Text()
	if p.Text == "" {
		return false
	}

	size := p.FontSize
	if p.Animation == edl.AnimationPop {
		size = int(math.Round(float64(size) * 1.25))
	}

	start := seconds(span.Start)
	window := number(textAnimationWindow)
	y := textY(p.Position)

	var args []string
	if l.meta.FontPath != "" {
		args = append(args, kv("fontfile", l.escape.Path(l.meta.FontPath)))
	}
	args = append(args,
		kv("text", l.escape.Text(p.Text)),
		kv("fontsize", strconv.Itoa(size)),
		kv("fontcolor", p.FontColor),
		"x=(w-text_w)/2",
	)
	switch p.Animation {
	case edl.AnimationSlideUp:
		args = append(args, "y='"+y+"+h*0.05*max(0,1-(t-"+start+")/"+window+")'")
	default:
		args = append(args, "y="+y)
	}
	if p.Animation == edl.AnimationFadeIn {
		args = append(args, "alpha='if(lt(t,"+start+"+"+window+"),max(0,(t-"+start+")/"+window+"),1)'")
	}
	if p.BoxColor != "" {
		args = append(args, "box=1", kv("boxcolor", l.escape.Option(p.BoxColor)), "boxborderw=12")
	}
	args = append(args, enableWindow(span.Start, span.End, span.Open))

	l.pushVideo(filter("drawtext", args...))
	return true
}

func textY(position string) string {
	switch position {
	case "top":
		return "h*0.08"
	case "center", "middle":
		return "(h-text_h)/2"
	default:
		return "h*0.85-text_h"
	}
}

// highlight draws a border around a source-frame region. When the region is
// shown through a zoom_screen crop, its coordinates follow the crop; regions
// outside the crop are not drawn.
func (l *lowering) highlight(span edl.Span) bool {
	p, ok := span.Decision.Highlight()
	if !ok {
		return false
	}

	region, ok := clipRect(p.Region)
	if !ok {
		return false
	}
	mid := span.Start
	if !span.Open {
		mid = (span.Start + span.End) / 2
	}
	if z, found := l.zoom.at(mid); found && z.Tool == edl.ToolZoomScreen {
		region, ok = RemapRegion(p.Region, z.Crop)
		if !ok {
			return false
		}
	}

	w, h := float64(l.meta.OutputWidth), float64(l.meta.OutputHeight)
	l.pushVideo(filter("drawbox",
		kv("x", strconv.Itoa(int(math.Round(region.X*w)))),
		kv("y", strconv.Itoa(int(math.Round(region.Y*h)))),
		kv("w", strconv.Itoa(int(math.Round(region.Width*w)))),
		kv("h", strconv.Itoa(int(math.Round(region.Height*h)))),
		kv("color", l.escape.Option(p.Color)+"@0.9"),
		kv("t", strconv.Itoa(p.Thickness)),
		enableWindow(span.Start, span.End, span.Open),
	))
	return true
}

// RemapRegion maps a normalized source region into the output space of a crop
// rectangle and clips it to the frame. It reports false when nothing of the
// region is visible through the crop.
func RemapRegion(region, crop edl.Rect) (edl.Rect, bool) {
	if !crop.Valid() {
		return edl.Rect{}, false
	}
	r := edl.Rect{
		X:      (region.X - crop.X) / crop.Width,
		Y:      (region.Y - crop.Y) / crop.Height,
		Width:  region.Width / crop.Width,
		Height: region.Height / crop.Height,
	}
	return clipRect(r)
}

// slowMotion stretches timestamps inside the window by 1/factor and shifts
// everything after it by the added time.
func (l *lowering) slowMotion(span edl.Span) bool {
	k := number(1 / span.Decision.SlowMotion())
	s := seconds(span.Start)

	var expr string
	if span.Open {
		expr = "if(lt(T," + s + "),T," + s + "+(T-" + s + ")*" + k + ")"
	} else {
		e := seconds(span.End)
		expr = "if(lt(T," + s + "),T,if(lt(T," + e + ")," + s + "+(T-" + s + ")*" + k +
			",T+(" + e + "-" + s + ")*(" + k + "-1)))"
		l.stats.VideoDuration = round3(l.stats.VideoDuration + span.Duration()*(1/span.Decision.SlowMotion()-1))
	}
	l.pushVideo("setpts='" + expr + "/TB'")
	return true
}

// fadeToBlack fades video and audio out together. The fade start is the
// decision's start read on the output timeline, like every effect window.
func (l *lowering) fadeToBlack(span edl.Span) bool {
	d := span.Decision
	duration := edl.DefaultFadeToBlack
	switch {
	case d.Params.Has("duration"):
		duration = d.FadeDuration()
	case span.Duration() > 0:
		duration = span.Duration()
	}
	args := []string{"t=out", kv("st", seconds(span.Start)), kv("d", seconds(duration))}

	l.pushVideo(filter("fade", args...))

	out := l.labels.Next("af")
	l.graph.emit(in(l.audioID), []string{filter("afade", args...)}, out)
	l.audioID = out
	return true
}
