package compiler

import (
	"strconv"

	"montage/internal/edl"
)

// applyBRoll wires every b_roll asset as an extra input and overlays it onto
// the running output. Inputs are numbered after the source in encounter order.
func (l *lowering) applyBRoll(effects []edl.Span) {
	for _, span := range effects {
		if span.Decision.Tool != edl.ToolBRoll {
			continue
		}
		p := span.Decision.BRoll()
		if p.Asset == "" {
			l.stats.DroppedEffect++
			continue
		}
		l.inputs = append(l.inputs, p.Asset)
		index := len(l.inputs)

		w, h := l.meta.OutputWidth, l.meta.OutputHeight
		filters := []string{"setpts=PTS-STARTPTS+" + seconds(span.Start) + "/TB"}
		x, y := "0", "0"
		if p.Mode == edl.BRollPiP {
			filters = append(filters, filter("scale", strconv.Itoa(even(float64(w)*p.Size/100)), "-2"), "setsar=1")
			x, y = l.corner(p.Corner)
		} else {
			filters = append(filters, l.fill(w, h)...)
		}

		scaled := l.labels.Next("b")
		l.graph.emit(in(strconv.Itoa(index)+":v"), filters, scaled)

		out := l.labels.Next("o")
		l.graph.emit(in(l.videoID, scaled), []string{filter("overlay",
			kv("x", x),
			kv("y", y),
			enableWindow(span.Start, span.End, span.Open),
			"eof_action=pass",
		)}, out)
		l.videoID = out
		l.stats.BRolls++
	}
}

// corner returns overlay coordinates anchoring a picture-in-picture inset.
func (l *lowering) corner(anchor string) (string, string) {
	m := strconv.Itoa(l.opts.PiPMargin)
	right := "main_w-overlay_w-" + m
	bottom := "main_h-overlay_h-" + m
	switch anchor {
	case "top-left":
		return m, m
	case "top-right":
		return right, m
	case "bottom-left":
		return m, bottom
	default:
		return right, bottom
	}
}
