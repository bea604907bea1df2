package optimizer

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"montage/internal/edl"
)

func layout(id string, tool edl.Tool, start float64, end *float64, params edl.Params) edl.Decision {
	return edl.Decision{ID: id, Type: edl.KindLayout, Tool: tool, StartTime: start, EndTime: end, Params: params}
}

func transition(id string, tool edl.Tool, at float64) edl.Decision {
	return edl.Decision{ID: id, Type: edl.KindTransition, Tool: tool, StartTime: at}
}

func effect(id string, tool edl.Tool, start float64, end *float64, params edl.Params) edl.Decision {
	return edl.Decision{ID: id, Type: edl.KindEffect, Tool: tool, StartTime: start, EndTime: end, Params: params}
}

func ids(list edl.List) []string {
	out := make([]string, len(list.Decisions))
	for i, d := range list.Decisions {
		out[i] = d.ID
	}
	return out
}

func TestMergesAdjacentIdenticalLayoutsAndDropsInteriorCut(t *testing.T) {
	list := edl.List{Decisions: []edl.Decision{
		layout("layout-1", edl.ToolOnlyWebcam, 0, edl.Seconds(5), nil),
		transition("transition-2", edl.ToolCut, 5),
		layout("layout-3", edl.ToolOnlyWebcam, 5, edl.Seconds(10), nil),
	}}

	out, report := OptimizeWithReport(list)
	if len(out.Decisions) != 1 {
		t.Fatalf("expected single decision, got %v", ids(out))
	}
	merged := out.Decisions[0]
	if merged.ID != "layout-1" || merged.StartTime != 0 {
		t.Fatalf("unexpected merged layout: %+v", merged)
	}
	if end, ok := merged.End(); !ok || end != 10 {
		t.Fatalf("expected merged end 10, got %v (bounded=%v)", end, ok)
	}
	if report.MergedLayouts != 1 || report.DroppedTransitions != 1 || report.Removed() != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if end, _ := list.Decisions[0].End(); end != 5 {
		t.Fatal("expected input list to be left untouched")
	}
}

func TestLayoutsWithDifferentParamsStaySeparate(t *testing.T) {
	list := edl.List{Decisions: []edl.Decision{
		layout("layout-1", edl.ToolZoomScreen, 0, edl.Seconds(5), edl.Params{"scale": 2.0}),
		layout("layout-2", edl.ToolZoomScreen, 5, edl.Seconds(10), edl.Params{"scale": 1.5}),
		layout("layout-3", edl.ToolZoomScreen, 10.004, nil, edl.Params{"scale": 1.5}),
	}}
	out := Optimize(list)
	if got := ids(out); !reflect.DeepEqual(got, []string{"layout-1", "layout-2"}) {
		t.Fatalf("unexpected decisions %v", got)
	}
	if out.Decisions[1].EndTime != nil {
		t.Fatalf("expected merge with open-ended layout to stay open, got %v", *out.Decisions[1].EndTime)
	}
}

func TestDropsTransitionsBetweenSameToolLayouts(t *testing.T) {
	list := edl.List{Decisions: []edl.Decision{
		layout("layout-1", edl.ToolZoomScreen, 0, edl.Seconds(5), edl.Params{"scale": 2.0}),
		transition("transition-2", edl.ToolFade, 5),
		layout("layout-3", edl.ToolZoomScreen, 5, edl.Seconds(10), edl.Params{"scale": 3.0}),
		transition("transition-4", edl.ToolSwipe, 10),
		layout("layout-5", edl.ToolOnlyWebcam, 10, nil, nil),
		transition("transition-6", edl.ToolFade, 12),
	}}
	out := Optimize(list)
	want := []string{"layout-1", "layout-3", "transition-4", "layout-5"}
	if got := ids(out); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestMergesOverlappingIdenticalEffects(t *testing.T) {
	text := edl.Params{"text": "Subscribe"}
	list := edl.List{Decisions: []edl.Decision{
		effect("effect-1", edl.ToolTextOverlay, 0, edl.Seconds(4), text),
		effect("effect-2", edl.ToolTextOverlay, 3, edl.Seconds(8), text),
		effect("effect-3", edl.ToolTextOverlay, 8, nil, text),
		effect("effect-4", edl.ToolHighlightRegion, 1, edl.Seconds(2), text),
	}}
	out, report := OptimizeWithReport(list)
	if got := ids(out); !reflect.DeepEqual(got, []string{"effect-1", "effect-4"}) {
		t.Fatalf("unexpected decisions %v", got)
	}
	if out.Decisions[0].EndTime != nil {
		t.Fatalf("expected union with unbounded effect to stay unbounded, got %v", *out.Decisions[0].EndTime)
	}
	if report.MergedEffects != 2 {
		t.Fatalf("expected 2 merged effects, got %+v", report)
	}
}

func TestEffectsDoNotMergeAcrossInterveningSameToolEffect(t *testing.T) {
	a := edl.Params{"text": "A"}
	list := edl.List{Decisions: []edl.Decision{
		effect("effect-1", edl.ToolTextOverlay, 0, edl.Seconds(10), a),
		effect("effect-2", edl.ToolTextOverlay, 2, edl.Seconds(20), edl.Params{"text": "B"}),
		effect("effect-3", edl.ToolTextOverlay, 5, edl.Seconds(15), a),
	}}
	out, report := OptimizeWithReport(list)
	if got := ids(out); !reflect.DeepEqual(got, []string{"effect-1", "effect-2", "effect-3"}) {
		t.Fatalf("expected stacking order to be preserved, got %v", got)
	}
	if end, _ := out.Decisions[0].End(); end != 10 {
		t.Fatalf("expected effect-1 to keep its end, got %v", end)
	}
	if report.MergedEffects != 0 {
		t.Fatalf("expected no merged effects, got %+v", report)
	}
}

func TestSeparatedEffectsAreKept(t *testing.T) {
	p := edl.Params{"factor": 0.5}
	list := edl.List{Decisions: []edl.Decision{
		effect("effect-1", edl.ToolSlowMotion, 0, edl.Seconds(2), p),
		effect("effect-2", edl.ToolSlowMotion, 2.5, edl.Seconds(3), p),
	}}
	if out := Optimize(list); len(out.Decisions) != 2 {
		t.Fatalf("expected separated effects to remain, got %v", ids(out))
	}
}

var (
	layoutTools = []edl.Tool{edl.ToolOnlyWebcam, edl.ToolOnlyScreen, edl.ToolZoomScreen}
	paramSets   = []edl.Params{nil, {"scale": 2.0}}
	effectTools = []edl.Tool{edl.ToolTextOverlay, edl.ToolSlowMotion}
)

func genList(t *rapid.T) edl.List {
	var decisions []edl.Decision
	cursor := 0.0
	for i, n := 0, rapid.IntRange(0, 8).Draw(t, "layouts"); i < n; i++ {
		length := float64(rapid.IntRange(1, 5).Draw(t, "length"))
		var end *float64
		if i < n-1 || rapid.Bool().Draw(t, "bounded") {
			end = edl.Seconds(cursor + length)
		}
		decisions = append(decisions, layout("", rapid.SampledFrom(layoutTools).Draw(t, "tool"), cursor, end, rapid.SampledFrom(paramSets).Draw(t, "params")))
		cursor += length
	}
	for i, n := 0, rapid.IntRange(0, 6).Draw(t, "transitions"); i < n; i++ {
		at := float64(rapid.IntRange(0, int(cursor)+2).Draw(t, "at"))
		decisions = append(decisions, transition("", edl.ToolFade, at))
	}
	for i, n := 0, rapid.IntRange(0, 8).Draw(t, "effects"); i < n; i++ {
		start := float64(rapid.IntRange(0, 20).Draw(t, "effectStart"))
		var end *float64
		if rapid.IntRange(0, 4).Draw(t, "effectOpen") > 0 {
			end = edl.Seconds(start + float64(rapid.IntRange(0, 6).Draw(t, "effectLength")))
		}
		decisions = append(decisions, effect("", rapid.SampledFrom(effectTools).Draw(t, "effectTool"), start, end, rapid.SampledFrom(paramSets).Draw(t, "effectParams")))
	}
	order := rapid.Permutation(decisions).Draw(t, "order")
	return edl.List{Decisions: order, SourceVideo: "in.mp4"}
}

func TestOptimizeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		once := Optimize(genList(rt))
		twice, report := OptimizeWithReport(once)
		if report.Removed() != 0 {
			rt.Fatalf("second pass removed decisions: %+v", report)
		}
		if !reflect.DeepEqual(once, twice) {
			rt.Fatalf("second pass changed output:\nonce:  %+v\ntwice: %+v", once.Decisions, twice.Decisions)
		}
	})
}

func TestOptimizeOutputIsSorted(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		out := Optimize(genList(rt))
		for i := 1; i < len(out.Decisions); i++ {
			if out.Decisions[i].StartTime < out.Decisions[i-1].StartTime {
				rt.Fatalf("output not sorted at %d", i)
			}
		}
	})
}
