package edl

import (
	"encoding/json"
	"testing"
)

func TestParamsEqualIgnoresNumericType(t *testing.T) {
	a := Params{"scale": 2, "region": map[string]any{"x": 0.5}}
	b := Params{"scale": 2.0, "region": map[string]any{"x": json.Number("0.5")}}
	if !ParamsEqual(a, b) {
		t.Fatal("expected numeric values to compare by value")
	}
	if !ParamsEqual(nil, Params{}) {
		t.Fatal("expected nil and empty params to be equal")
	}
	if ParamsEqual(Params{"text": "a"}, Params{"text": "b"}) {
		t.Fatal("expected differing strings to be unequal")
	}
}

func TestTypedViewsApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T)
	}{
		{"zoom", func(t *testing.T) {
			z := Decision{Tool: ToolZoomScreen}.Zoom()
			if z.Scale != DefaultZoomScale || z.CenterX != 0.5 || z.CenterY != 0.5 || z.Region != nil {
				t.Fatalf("unexpected zoom defaults: %+v", z)
			}
		}},
		{"zoom region", func(t *testing.T) {
			z := Decision{Params: Params{"region": map[string]any{"x": 0.5, "y": 0, "w": 0.5, "h": 1}}}.Zoom()
			if z.Region == nil || *z.Region != (Rect{X: 0.5, Y: 0, Width: 0.5, Height: 1}) {
				t.Fatalf("unexpected region: %+v", z.Region)
			}
		}},
		{"transition", func(t *testing.T) {
			tp := Decision{Params: Params{"duration": "bad", "direction": "UP"}}.Transition()
			if tp.Duration != DefaultTransitionDuration || tp.Direction != "up" {
				t.Fatalf("unexpected transition params: %+v", tp)
			}
		}},
		{"text", func(t *testing.T) {
			tp := Decision{Params: Params{"text": " hi ", "animation": "sparkle"}}.Text()
			if tp.Text != "hi" || tp.Animation != AnimationNone || tp.FontSize != DefaultTextSize {
				t.Fatalf("unexpected text params: %+v", tp)
			}
		}},
		{"highlight flat keys", func(t *testing.T) {
			h, ok := Decision{Params: Params{"x": 0.6, "y": 0.1, "width": 0.1, "height": 0.1}}.Highlight()
			if !ok || h.Region.X != 0.6 || h.Thickness != DefaultHighlightThickness {
				t.Fatalf("unexpected highlight params: %+v ok=%v", h, ok)
			}
		}},
		{"highlight missing", func(t *testing.T) {
			if _, ok := (Decision{}).Highlight(); ok {
				t.Fatal("expected highlight without region to be rejected")
			}
		}},
		{"b_roll", func(t *testing.T) {
			b := Decision{Params: Params{"asset": "clip.mp4", "mode": "pip", "size": 250}}.BRoll()
			if b.Mode != BRollPiP || b.Size != DefaultBRollPiPSize || b.Corner != "bottom-right" {
				t.Fatalf("unexpected b_roll params: %+v", b)
			}
		}},
		{"slow motion", func(t *testing.T) {
			if f := (Decision{Params: Params{"factor": 4}}).SlowMotion(); f != DefaultSlowMotionFactor {
				t.Fatalf("expected out-of-range factor to default, got %v", f)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.check)
	}
}

func TestToolMetadata(t *testing.T) {
	if ToolZoomScreen.Kind() != KindLayout || ToolSwipe.Kind() != KindTransition || ToolBRoll.Kind() != KindEffect {
		t.Fatal("unexpected tool kinds")
	}
	if Tool("wobble").Valid() {
		t.Fatal("expected unknown tool to be invalid")
	}
	if got := ToolHighlightRegion.DisplayName(); got != "Highlight Region" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := len(Tools(KindLayout)); got != 5 {
		t.Fatalf("expected 5 layout tools, got %d", got)
	}
}

func TestMetadataDefaults(t *testing.T) {
	m := Metadata{}.WithDefaults()
	if m.OutputWidth != 1920 || m.OutputHeight != 1080 || m.SourceWidth != 1920 {
		t.Fatalf("unexpected defaults: %+v", m)
	}
	if !m.IsWidescreen() {
		t.Fatal("expected 1920x1080 to be widescreen")
	}
	vertical := Metadata{OutputWidth: 1080, OutputHeight: 1920}.WithDefaults()
	if vertical.TargetAspectRatio != "9:16" || vertical.IsWidescreen() {
		t.Fatalf("unexpected vertical metadata: %+v", vertical)
	}
}
