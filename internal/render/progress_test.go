package render

import (
	"testing"
	"time"

	"montage/internal/compiler"
)

func TestProgressParserBlocks(t *testing.T) {
	var parser progressParser
	lines := []string{
		"frame=120",
		"out_time_us=4000000",
		"out_time=00:00:04.000000",
		"speed=1.50x",
		"progress=continue",
		"out_time_ms=8000000",
		"progress=end",
	}
	var blocks []Progress
	for _, line := range lines {
		if block, ok := parser.feed(line); ok {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	first := blocks[0]
	if first.OutTime != 4*time.Second || first.Frame != 120 || first.Speed != "1.50x" || first.Done {
		t.Fatalf("unexpected first block: %+v", first)
	}
	if got := first.Percent(8); got != 50 {
		t.Fatalf("percent = %v, want 50", got)
	}
	if got := first.Message(); got != "Rendering 00:00:04 at 1.50x" {
		t.Fatalf("message = %q", got)
	}
	if !blocks[1].Done || blocks[1].Percent(8) != 100 {
		t.Fatalf("expected final block done at 100%%, got %+v", blocks[1])
	}
}

func TestProgressPercentBounds(t *testing.T) {
	p := Progress{OutTime: 20 * time.Second}
	if got := p.Percent(10); got != 99.9 {
		t.Fatalf("expected cap below 100 until end, got %v", got)
	}
	if got := p.Percent(0); got != -1 {
		t.Fatalf("expected unknown percent without duration, got %v", got)
	}
	if got := formatClock(3725 * time.Second); got != "01:02:05" {
		t.Fatalf("formatClock = %q", got)
	}
}

func TestArgsInsertsProgressFlags(t *testing.T) {
	program := compiler.Program{
		FilterComplex: "[0:v]null[v0]",
		OutputArgs:    []string{"-map", "[v0]"},
		InputArgs:     []string{"-i", "broll.mp4"},
	}
	args := Args(program, "in.mp4", "out.mp4")
	want := []string{
		"-hide_banner", "-nostats", "-loglevel", "error", "-progress", "pipe:1",
		"-y", "-i", "in.mp4", "-i", "broll.mp4",
		"-filter_complex", "[0:v]null[v0]", "-map", "[v0]", "out.mp4",
	}
	if len(args) != len(want) {
		t.Fatalf("args = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q (all: %v)", i, args[i], want[i], args)
		}
	}
}
