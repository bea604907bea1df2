package compiler

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"montage/internal/edl"
)

func layout(id string, tool edl.Tool, start, end float64, params edl.Params) edl.Decision {
	return edl.Decision{ID: id, Type: edl.KindLayout, Tool: tool, StartTime: start, EndTime: edl.Seconds(end), Params: params}
}

func transition(id string, tool edl.Tool, at float64, params edl.Params) edl.Decision {
	return edl.Decision{ID: id, Type: edl.KindTransition, Tool: tool, StartTime: at, Params: params}
}

func effect(id string, tool edl.Tool, start, end float64, params edl.Params) edl.Decision {
	return edl.Decision{ID: id, Type: edl.KindEffect, Tool: tool, StartTime: start, EndTime: edl.Seconds(end), Params: params}
}

func newList(duration float64, decisions ...edl.Decision) edl.List {
	return edl.List{
		Decisions:   decisions,
		SourceVideo: "in.mp4",
		OutputPath:  "out.mp4",
		Metadata:    edl.Metadata{SourceDuration: duration},
	}
}

func TestSegmentCountWithHardCuts(t *testing.T) {
	list := newList(15,
		layout("layout-1", edl.ToolOnlyScreen, 0, 5, nil),
		layout("layout-2", edl.ToolOnlyWebcam, 5, 10, nil),
		layout("layout-3", edl.ToolOnlyScreen, 10, 15, nil),
	)

	prog := Compile(list)
	fc := prog.FilterComplex

	if got := strings.Count(fc, "[0:v]trim="); got != 3 {
		t.Fatalf("expected 3 video trims, got %d in %s", got, fc)
	}
	if got := strings.Count(fc, "[0:a]atrim="); got != 3 {
		t.Fatalf("expected 3 audio trims, got %d", got)
	}
	if got := strings.Count(fc, "concat=n=2:v=1:a=1"); got != 2 {
		t.Fatalf("expected 2 concats, got %d", got)
	}
	if strings.Contains(fc, "xfade") {
		t.Fatal("hard cuts should not emit xfade")
	}
	if prog.Stats.Segments != 3 || prog.Stats.Concats != 2 || prog.Stats.VideoDuration != 15 {
		t.Fatalf("unexpected stats: %+v", prog.Stats)
	}
	if prog.Passes != 1 {
		t.Fatalf("expected a single pass, got %d", prog.Passes)
	}
	if len(prog.InputArgs) != 0 {
		t.Fatalf("expected no extra inputs, got %v", prog.InputArgs)
	}
}

func TestConcatRenormalizesFrameRate(t *testing.T) {
	prog := New(Options{FrameRate: 24}).Compile(newList(10,
		layout("layout-1", edl.ToolOnlyScreen, 0, 5, nil),
		layout("layout-2", edl.ToolOnlyScreen, 5, 10, nil),
	))
	if !strings.Contains(prog.FilterComplex, "[cv0]fps=24[f0]") {
		t.Fatalf("expected fps after concat, got %s", prog.FilterComplex)
	}
	if !slices.Contains(prog.OutputArgs, "[f0]") || !slices.Contains(prog.OutputArgs, "[ca0]") {
		t.Fatalf("output args should map the concat outputs: %v", prog.OutputArgs)
	}
}

func TestCrossfadeAccounting(t *testing.T) {
	list := newList(20,
		layout("layout-1", edl.ToolOnlyScreen, 0, 10, nil),
		transition("transition-2", edl.ToolFade, 10, edl.Params{"duration": 2}),
		layout("layout-3", edl.ToolOnlyWebcam, 10, 20, nil),
	)

	prog := Compile(list)
	fc := prog.FilterComplex

	if !strings.Contains(fc, "xfade=transition=fade:duration=2.000:offset=8.000") {
		t.Fatalf("expected xfade at offset 8, got %s", fc)
	}
	if !strings.Contains(fc, "atrim=duration=8.000") || !strings.Contains(fc, "concat=n=2:v=0:a=1") {
		t.Fatalf("expected audio trim and concat, got %s", fc)
	}
	if strings.Contains(fc, "acrossfade") {
		t.Fatal("audio must not be blended")
	}
	if prog.Stats.VideoDuration != 18 || prog.Stats.AudioDuration != 18 {
		t.Fatalf("expected 18s video and audio, got %+v", prog.Stats)
	}
	if prog.Stats.Crossfades != 1 || prog.Stats.Concats != 0 {
		t.Fatalf("unexpected stats: %+v", prog.Stats)
	}
	zt := prog.Stats.ZoomTable
	if len(zt) != 2 || zt[1].Start != 8 || zt[1].End != 18 {
		t.Fatalf("unexpected zoom table: %+v", zt)
	}
}

func TestTransitionNames(t *testing.T) {
	tests := []struct {
		tool   edl.Tool
		params edl.Params
		want   string
	}{
		{edl.ToolFade, nil, "transition=fade"},
		{edl.ToolSwipe, edl.Params{"direction": "up"}, "transition=slideup"},
		{edl.ToolSwipe, nil, "transition=slideleft"},
		{edl.ToolZoomTransition, nil, "transition=radial"},
	}
	for _, tt := range tests {
		prog := Compile(newList(10,
			layout("layout-1", edl.ToolOnlyScreen, 0, 5, nil),
			transition("transition-2", tt.tool, 5, tt.params),
			layout("layout-3", edl.ToolOnlyWebcam, 5, 10, nil),
		))
		if !strings.Contains(prog.FilterComplex, tt.want) {
			t.Fatalf("%s: expected %q in %s", tt.tool, tt.want, prog.FilterComplex)
		}
	}
}

func TestCrossfadeDurationClampedToShortSegment(t *testing.T) {
	prog := Compile(newList(11,
		layout("layout-1", edl.ToolOnlyScreen, 0, 10, nil),
		transition("transition-2", edl.ToolFade, 10, edl.Params{"duration": 3}),
		layout("layout-3", edl.ToolOnlyWebcam, 10, 11, nil),
	))
	if !strings.Contains(prog.FilterComplex, "duration=1.000:offset=9.000") {
		t.Fatalf("expected clamped crossfade, got %s", prog.FilterComplex)
	}
}

func TestCutTransitionConcatenates(t *testing.T) {
	prog := Compile(newList(10,
		layout("layout-1", edl.ToolOnlyScreen, 0, 5, nil),
		transition("transition-2", edl.ToolCut, 5, nil),
		layout("layout-3", edl.ToolOnlyWebcam, 5, 10, nil),
	))
	if prog.Stats.Concats != 1 || prog.Stats.Crossfades != 0 {
		t.Fatalf("cut should concat: %+v", prog.Stats)
	}
}

func TestRemapRegion(t *testing.T) {
	crop := edl.Rect{X: 0.5, Y: 0, Width: 0.5, Height: 1}

	got, ok := RemapRegion(edl.Rect{X: 0.6, Y: 0.1, Width: 0.1, Height: 0.1}, crop)
	if !ok {
		t.Fatal("expected region inside crop to remap")
	}
	want := edl.Rect{X: 0.2, Y: 0.1, Width: 0.2, Height: 0.1}
	if !rectNear(got, want) {
		t.Fatalf("remap = %+v, want %+v", got, want)
	}

	if _, ok := RemapRegion(edl.Rect{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1}, crop); ok {
		t.Fatal("expected region outside crop to be dropped")
	}

	got, ok = RemapRegion(edl.Rect{X: 0.4, Y: 0.5, Width: 0.2, Height: 0.1}, crop)
	if !ok || !rectNear(got, edl.Rect{X: 0, Y: 0.5, Width: 0.2, Height: 0.1}) {
		t.Fatalf("expected partial overlap to clip, got %+v ok=%v", got, ok)
	}
}

func TestHighlightFollowsZoomScreenCrop(t *testing.T) {
	zoom := edl.Params{"region": map[string]any{"x": 0.5, "y": 0.0, "width": 0.5, "height": 1.0}}
	list := newList(10,
		layout("layout-1", edl.ToolZoomScreen, 0, 10, zoom),
		effect("effect-2", edl.ToolHighlightRegion, 2, 4, edl.Params{"region": map[string]any{"x": 0.6, "y": 0.1, "width": 0.1, "height": 0.1}}),
		effect("effect-3", edl.ToolHighlightRegion, 5, 6, edl.Params{"x": 0.1, "y": 0.1, "width": 0.1, "height": 0.1}),
	)

	prog := Compile(list)
	fc := prog.FilterComplex

	if !strings.Contains(fc, "drawbox=x=384:y=108:w=384:h=108") {
		t.Fatalf("expected remapped drawbox, got %s", fc)
	}
	if got := strings.Count(fc, "drawbox="); got != 1 {
		t.Fatalf("expected out-of-crop highlight to be dropped, got %d drawbox filters", got)
	}
	if prog.Stats.Effects != 1 || prog.Stats.DroppedEffect != 1 {
		t.Fatalf("unexpected stats: %+v", prog.Stats)
	}
	if !strings.Contains(fc, "crop=iw*0.5:ih*1:iw*0.5:ih*0") {
		t.Fatalf("expected explicit zoom region crop, got %s", fc)
	}
}

func TestHighlightOutsideZoomIsNotRemapped(t *testing.T) {
	prog := Compile(newList(10,
		layout("layout-1", edl.ToolOnlyScreen, 0, 10, nil),
		effect("effect-2", edl.ToolHighlightRegion, 2, 4, edl.Params{"x": 0.1, "y": 0.1, "width": 0.1, "height": 0.1}),
	))
	if !strings.Contains(prog.FilterComplex, "drawbox=x=192:y=108:w=192:h=108") {
		t.Fatalf("expected unmapped drawbox, got %s", prog.FilterComplex)
	}
}

func TestNoLayoutPassthrough(t *testing.T) {
	list := newList(30,
		effect("effect-1", edl.ToolTextOverlay, 1, 3, edl.Params{"text": "hi"}),
		effect("effect-2", edl.ToolBRoll, 1, 3, edl.Params{"asset": "clip.mp4"}),
	)

	prog := Compile(list)
	if prog.FilterComplex != "[0:v]null[v0]" {
		t.Fatalf("expected passthrough graph, got %q", prog.FilterComplex)
	}
	if !slices.Contains(prog.OutputArgs, "[v0]") || !slices.Contains(prog.OutputArgs, "0:a?") {
		t.Fatalf("expected passthrough mapping, got %v", prog.OutputArgs)
	}
	if len(prog.InputArgs) != 0 {
		t.Fatalf("passthrough should not add inputs, got %v", prog.InputArgs)
	}
}

func TestSplitLayout(t *testing.T) {
	region := &edl.WebcamRegion{X: 1440, Y: 810, Width: 480, Height: 270}

	vertical := newList(10, layout("layout-1", edl.ToolSplitLayout, 0, 10, nil))
	vertical.WebcamRegion = region
	vertical.Metadata.OutputWidth = 1080
	vertical.Metadata.OutputHeight = 1920
	fc := Compile(vertical).FilterComplex
	for _, want := range []string{
		"split=2[sp0][sp1]",
		"[sp0]crop=iw*0.75:ih*1:iw*0:ih*0,scale=1080:1248:force_original_aspect_ratio=increase",
		"[sp1]crop=iw*0.25:ih*0.25:iw*0.75:ih*0.75,scale=1080:672:force_original_aspect_ratio=increase",
		"[st0][sb0]vstack=inputs=2[v0]",
	} {
		if !strings.Contains(fc, want) {
			t.Fatalf("expected %q in %s", want, fc)
		}
	}

	wide := newList(10, layout("layout-1", edl.ToolSplitLayout, 0, 10, nil))
	wide.WebcamRegion = region
	fc = Compile(wide).FilterComplex
	if strings.Contains(fc, "vstack") || !strings.Contains(fc, "pad=1920:1080:(ow-iw)/2:(oh-ih)/2:color=black") {
		t.Fatalf("16:9 split should letterbox, got %s", fc)
	}
}

func TestZoomScreenFallbackTiers(t *testing.T) {
	params := edl.Params{"scale": 2.0, "centerX": 0.5, "centerY": 0.5}

	bare := Compile(newList(10, layout("layout-1", edl.ToolZoomScreen, 0, 10, params)))
	if got := bare.Stats.ZoomTable[0].Crop; !rectNear(got, edl.Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}) {
		t.Fatalf("full-frame zoom crop = %+v", got)
	}

	withCam := newList(10, layout("layout-1", edl.ToolZoomScreen, 0, 10, params))
	withCam.WebcamRegion = &edl.WebcamRegion{X: 1440, Y: 810, Width: 480, Height: 270}
	got := Compile(withCam).Stats.ZoomTable[0].Crop
	if !rectNear(got, edl.Rect{X: 0.1875, Y: 0.25, Width: 0.375, Height: 0.5}) {
		t.Fatalf("screen-area zoom crop = %+v", got)
	}
}

func TestTextOverlayEscapingAndAnimation(t *testing.T) {
	list := newList(10,
		layout("layout-1", edl.ToolOnlyScreen, 0, 10, nil),
		effect("effect-2", edl.ToolTextOverlay, 1, 4, edl.Params{"text": "it's 10:30", "animation": "fade-in", "position": "top"}),
		effect("effect-3", edl.ToolTextOverlay, 5, 6, edl.Params{"text": "pop", "animation": "pop", "fontSize": 40}),
	)
	list.Metadata.FontPath = "C:/fonts/a.ttf"

	fc := Compile(list).FilterComplex
	for _, want := range []string{
		`fontfile=C\:/fonts/a.ttf`,
		`text=it\\\'s 10\\:30`,
		"alpha='if(lt(t,1.000+0.5),max(0,(t-1.000)/0.5),1)'",
		"y=h*0.08",
		"enable='between(t,1.000,4.000)'",
		"fontsize=50",
	} {
		if !strings.Contains(fc, want) {
			t.Fatalf("expected %q in %s", want, fc)
		}
	}
}

func TestSlowMotionAndSingleFade(t *testing.T) {
	prog := Compile(newList(10,
		layout("layout-1", edl.ToolOnlyScreen, 0, 10, nil),
		effect("effect-2", edl.ToolSlowMotion, 2, 4, edl.Params{"factor": 0.5}),
		effect("effect-3", edl.ToolFadeToBlack, 8, 10, nil),
		effect("effect-4", edl.ToolFadeToBlack, 9, 10, edl.Params{"duration": 1}),
	))
	fc := prog.FilterComplex

	if !strings.Contains(fc, "setpts='if(lt(T,2.000),T,if(lt(T,4.000),2.000+(T-2.000)*2,T+(4.000-2.000)*(2-1)))/TB'") {
		t.Fatalf("expected slow motion setpts, got %s", fc)
	}
	if got := strings.Count(fc, "]fade=t=out"); got != 1 {
		t.Fatalf("expected one video fade, got %d", got)
	}
	if !strings.Contains(fc, "afade=t=out:st=8.000:d=2.000") {
		t.Fatalf("expected matching audio fade, got %s", fc)
	}
	if prog.Stats.VideoDuration != 12 {
		t.Fatalf("slow motion should extend video to 12s, got %v", prog.Stats.VideoDuration)
	}
}

func TestEffectTimesUseOutputTimeline(t *testing.T) {
	fc := Compile(newList(20,
		layout("layout-1", edl.ToolOnlyScreen, 0, 10, nil),
		transition("transition-2", edl.ToolFade, 10, edl.Params{"duration": 2}),
		layout("layout-3", edl.ToolOnlyWebcam, 10, 20, nil),
		effect("effect-4", edl.ToolFadeToBlack, 16, 18, nil),
	)).FilterComplex

	for _, want := range []string{"]fade=t=out:st=16.000:d=2.000", "afade=t=out:st=16.000:d=2.000"} {
		if !strings.Contains(fc, want) {
			t.Fatalf("expected %q unshifted by the crossfade, got %s", want, fc)
		}
	}
}

func TestBRollInputs(t *testing.T) {
	list := newList(10,
		layout("layout-1", edl.ToolOnlyScreen, 0, 10, nil),
		effect("effect-2", edl.ToolBRoll, 2, 5, edl.Params{"asset": "clip.mp4", "mode": "pip"}),
		effect("effect-3", edl.ToolBRoll, 6, 8, edl.Params{"asset": "b.mp4"}),
		effect("effect-4", edl.ToolBRoll, 8, 9, nil),
	)

	prog := Compile(list)
	if want := []string{"-i", "clip.mp4", "-i", "b.mp4"}; !slices.Equal(prog.InputArgs, want) {
		t.Fatalf("input args = %v, want %v", prog.InputArgs, want)
	}
	fc := prog.FilterComplex
	for _, want := range []string{
		"[1:v]setpts=PTS-STARTPTS+2.000/TB,scale=576:-2",
		"overlay=x=main_w-overlay_w-32:y=main_h-overlay_h-32:enable='between(t,2.000,5.000)':eof_action=pass",
		"[2:v]setpts=PTS-STARTPTS+6.000/TB,scale=1920:1080:force_original_aspect_ratio=increase",
	} {
		if !strings.Contains(fc, want) {
			t.Fatalf("expected %q in %s", want, fc)
		}
	}
	if prog.Stats.BRolls != 2 || prog.Stats.DroppedEffect != 1 {
		t.Fatalf("unexpected stats: %+v", prog.Stats)
	}

	args := prog.CommandArgs("in.mp4", "out.mp4")
	if args[0] != "-hide_banner" || args[3] != "in.mp4" || args[5] != "clip.mp4" || args[len(args)-1] != "out.mp4" {
		t.Fatalf("unexpected command args: %v", args)
	}
}

var outputLabels = regexp.MustCompile(`(?:\[[a-z]+[0-9]+\])+$`)

func TestLabelsAreDefinedOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "layouts")
		tools := edl.Tools(edl.KindLayout)
		var decisions []edl.Decision
		at := 0.0
		for i := 0; i < n; i++ {
			length := float64(rapid.IntRange(1, 10).Draw(t, "length"))
			decisions = append(decisions, layout("", rapid.SampledFrom(tools).Draw(t, "tool"), at, at+length, nil))
			if i > 0 && rapid.Bool().Draw(t, "transition") {
				tr := rapid.SampledFrom(edl.Tools(edl.KindTransition)).Draw(t, "transitionTool")
				decisions = append(decisions, transition("", tr, at, edl.Params{"duration": 0.5}))
			}
			at += length
		}
		if rapid.Bool().Draw(t, "text") {
			decisions = append(decisions, effect("", edl.ToolTextOverlay, 0, at, edl.Params{"text": "x"}))
		}

		prog := Compile(newList(at, decisions...))
		seen := map[string]bool{}
		for _, stmt := range strings.Split(prog.FilterComplex, ";") {
			for _, label := range strings.Split(strings.Trim(outputLabels.FindString(stmt), "[]"), "][") {
				if seen[label] {
					t.Fatalf("label %q defined twice in %s", label, prog.FilterComplex)
				}
				seen[label] = true
			}
		}
		if math.Abs(prog.Stats.VideoDuration-prog.Stats.AudioDuration) > 0.001 {
			t.Fatalf("video %v and audio %v diverged", prog.Stats.VideoDuration, prog.Stats.AudioDuration)
		}
	})
}

func rectNear(a, b edl.Rect) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}
