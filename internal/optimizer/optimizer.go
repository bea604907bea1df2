// Package optimizer shrinks an edit decision list without changing what it
// renders: adjacent identical layouts merge, transitions that no longer cross
// a visible change disappear, and overlapping identical effects coalesce.
//
// Optimize is pure and idempotent.
package optimizer

import (
	"montage/internal/edl"
)

// Report counts what an optimization pass removed.
type Report struct {
	MergedLayouts      int `json:"mergedLayouts"`
	DroppedTransitions int `json:"droppedTransitions"`
	MergedEffects      int `json:"mergedEffects"`
}

// Removed returns the total number of decisions removed.
func (r Report) Removed() int {
	return r.MergedLayouts + r.DroppedTransitions + r.MergedEffects
}

// Optimize returns an optimized copy of list.
func Optimize(list edl.List) edl.List {
	out, _ := OptimizeWithReport(list)
	return out
}

// OptimizeWithReport returns an optimized copy of list and a summary of the
// removals. The input is never modified.
func OptimizeWithReport(list edl.List) (edl.List, Report) {
	out := list.Clone()
	decisions := edl.SortByStart(out.Decisions)
	keep := make([]bool, len(decisions))
	for i := range keep {
		keep[i] = true
	}

	var report Report
	report.MergedLayouts = mergeLayouts(decisions, keep)
	report.DroppedTransitions = pruneTransitions(decisions, keep)
	report.MergedEffects = mergeEffects(decisions, keep)

	kept := make([]edl.Decision, 0, len(decisions))
	for i, d := range decisions {
		if keep[i] {
			kept = append(kept, d)
		}
	}
	out.Decisions = edl.SortByStart(kept)
	return out, report
}

func indicesOf(decisions []edl.Decision, keep []bool, kind edl.Kind) []int {
	idx := make([]int, 0, len(decisions))
	for i, d := range decisions {
		if keep[i] && d.Type == kind {
			idx = append(idx, i)
		}
	}
	return idx
}

// mergeLayouts extends a layout over its successor when both use the same tool
// and params and the first ends where the second starts.
func mergeLayouts(decisions []edl.Decision, keep []bool) int {
	layouts := indicesOf(decisions, keep, edl.KindLayout)
	if len(layouts) < 2 {
		return 0
	}
	merged := 0
	current := layouts[0]
	for _, next := range layouts[1:] {
		cur := &decisions[current]
		nxt := decisions[next]
		end, bounded := cur.End()
		if bounded && cur.Tool == nxt.Tool && edl.ParamsEqual(cur.Params, nxt.Params) && edl.Near(end, nxt.StartTime) {
			cur.EndTime = copyEnd(nxt.EndTime)
			keep[next] = false
			merged++
			continue
		}
		current = next
	}
	return merged
}

// pruneTransitions drops transitions that no longer sit on a layout edge and
// transitions between two layouts that share a tool.
func pruneTransitions(decisions []edl.Decision, keep []bool) int {
	layouts := indicesOf(decisions, keep, edl.KindLayout)
	if len(layouts) == 0 {
		return 0
	}
	transitions := indicesOf(decisions, keep, edl.KindTransition)

	type edge struct {
		start, end float64
		bounded    bool
		tool       edl.Tool
	}
	edges := make([]edge, len(layouts))
	for i, idx := range layouts {
		d := decisions[idx]
		e := edge{start: d.StartTime, tool: d.Tool}
		if end, ok := d.End(); ok {
			e.end, e.bounded = end, true
		} else if i+1 < len(layouts) {
			e.end, e.bounded = decisions[layouts[i+1]].StartTime, true
		}
		edges[i] = e
	}

	dropped := 0
	for _, idx := range transitions {
		t := decisions[idx].StartTime
		var (
			onEdge              bool
			before, after       edl.Tool
			hasBefore, hasAfter bool
		)
		for _, e := range edges {
			if edl.Near(t, e.start) {
				onEdge = true
				after, hasAfter = e.tool, true
			}
			if e.bounded && edl.Near(t, e.end) {
				onEdge = true
				before, hasBefore = e.tool, true
			}
		}
		if !onEdge || (hasBefore && hasAfter && before == after) {
			keep[idx] = false
			dropped++
		}
	}
	return dropped
}

// mergeEffects coalesces an effect into the previous effect of the same tool
// when their params are identical and their ranges overlap or touch. Only the
// immediately preceding member is considered so stacking order is kept. The
// union keeps the earliest start; an unbounded member leaves it unbounded.
func mergeEffects(decisions []edl.Decision, keep []bool) int {
	effects := indicesOf(decisions, keep, edl.KindEffect)
	groups := make(map[edl.Tool][]int)
	merged := 0
	for _, idx := range effects {
		d := decisions[idx]
		group := groups[d.Tool]
		if len(group) > 0 {
			target := group[len(group)-1]
			if edl.ParamsEqual(decisions[target].Params, d.Params) && touches(decisions[target], d) {
				decisions[target].EndTime = unionEnd(decisions[target], d)
				keep[idx] = false
				merged++
				continue
			}
		}
		groups[d.Tool] = append(group, idx)
	}
	return merged
}

func touches(a, b edl.Decision) bool {
	end, bounded := a.End()
	if !bounded {
		return true
	}
	return b.StartTime <= end+edl.EdgeTolerance
}

func unionEnd(a, b edl.Decision) *float64 {
	aEnd, aOK := a.End()
	bEnd, bOK := b.End()
	if !aOK || !bOK {
		return nil
	}
	if bEnd > aEnd {
		return edl.Seconds(bEnd)
	}
	return edl.Seconds(aEnd)
}

func copyEnd(end *float64) *float64 {
	if end == nil {
		return nil
	}
	return edl.Seconds(*end)
}
