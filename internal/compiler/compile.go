package compiler

import (
	"strconv"

	"montage/internal/edl"
)

// Program is the compiled output handed to an ffmpeg invocation.
type Program struct {
	FilterComplex string   `json:"filterComplex"`
	OutputArgs    []string `json:"outputArgs"`
	InputArgs     []string `json:"inputArgs"`
	Passes        int      `json:"passes"`
	Stats         Stats    `json:"stats"`
}

// Stats summarizes what lowering produced.
type Stats struct {
	Segments      int           `json:"segments"`
	Crossfades    int           `json:"crossfades"`
	Concats       int           `json:"concats"`
	Effects       int           `json:"effects"`
	DroppedEffect int           `json:"droppedEffects"`
	BRolls        int           `json:"bRolls"`
	VideoDuration float64       `json:"videoDuration"`
	AudioDuration float64       `json:"audioDuration"`
	ZoomTable     []ZoomSegment `json:"zoomTable,omitempty"`
}

// CommandArgs assembles the complete ffmpeg argument vector.
func (p Program) CommandArgs(sourceVideo, outputPath string) []string {
	args := make([]string, 0, 8+len(p.InputArgs)+len(p.OutputArgs))
	args = append(args, "-hide_banner", "-y", "-i", sourceVideo)
	args = append(args, p.InputArgs...)
	args = append(args, "-filter_complex", p.FilterComplex)
	args = append(args, p.OutputArgs...)
	args = append(args, outputPath)
	return args
}

// Compiler lowers lists using a fixed set of options. A Compiler holds no
// per-compilation state and may be shared between goroutines.
type Compiler struct {
	opts Options
}

// New returns a compiler. Zero option fields take their defaults.
func New(opts Options) *Compiler {
	return &Compiler{opts: opts.normalized()}
}

// Compile lowers list using DefaultOptions.
func Compile(list edl.List) Program {
	return New(DefaultOptions()).Compile(list)
}

// Options returns the effective options.
func (c *Compiler) Options() Options {
	return c.opts
}

// Compile lowers list into a filter graph program.
func (c *Compiler) Compile(list edl.List) Program {
	l := newLowering(list, c.opts)
	return l.run()
}

// lowering carries the state of a single compilation.
type lowering struct {
	list    edl.List
	meta    edl.Metadata
	opts    Options
	region  *edl.WebcamRegion
	spans   []edl.Span
	labels  *LabelAllocator
	graph   graph
	escape  Escaper
	stats   Stats
	inputs  []string
	zoom    zoomTable
	videoID string
	audioID string
}

func newLowering(list edl.List, opts Options) *lowering {
	meta := list.Metadata.WithDefaults()
	region := list.WebcamRegion
	if !region.Usable() {
		region = nil
	}
	return &lowering{
		list:   list,
		meta:   meta,
		opts:   opts,
		region: region,
		spans:  edl.Resolve(list.Decisions, meta.SourceDuration),
		labels: NewLabelAllocator(),
	}
}

func (l *lowering) run() Program {
	layouts := edl.Filter(l.spans, edl.KindLayout)
	if len(layouts) == 0 {
		return l.passthrough()
	}

	segments := make([]segment, 0, len(layouts))
	for _, span := range layouts {
		segments = append(segments, l.lowerSegment(span))
	}
	l.stats.Segments = len(segments)

	l.chain(segments, edl.Filter(l.spans, edl.KindTransition))
	l.applyEffects(edl.Filter(l.spans, edl.KindEffect))
	l.applyBRoll(edl.Filter(l.spans, edl.KindEffect))

	return Program{
		FilterComplex: l.graph.String(),
		OutputArgs:    l.outputArgs("["+l.videoID+"]", "["+l.audioID+"]"),
		InputArgs:     l.inputArgs(),
		Passes:        1,
		Stats:         l.finalStats(),
	}
}

// passthrough emits a single no-op video filter and maps source audio as-is.
func (l *lowering) passthrough() Program {
	out := l.labels.Next("v")
	l.graph.emit(in("0:v"), []string{"null"}, out)
	l.stats.VideoDuration = l.meta.SourceDuration
	l.stats.AudioDuration = l.meta.SourceDuration
	return Program{
		FilterComplex: l.graph.String(),
		OutputArgs:    l.outputArgs("["+out+"]", "0:a?"),
		InputArgs:     []string{},
		Passes:        1,
		Stats:         l.finalStats(),
	}
}

func (l *lowering) outputArgs(video, audio string) []string {
	return []string{
		"-map", video,
		"-map", audio,
		"-c:v", l.opts.VideoCodec,
		"-preset", l.opts.VideoPreset,
		"-crf", strconv.Itoa(l.opts.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", l.opts.AudioCodec,
		"-b:a", l.opts.AudioBitrate,
		"-movflags", "+faststart",
	}
}

func (l *lowering) inputArgs() []string {
	args := make([]string, 0, 2*len(l.inputs))
	for _, asset := range l.inputs {
		args = append(args, "-i", asset)
	}
	return args
}

func (l *lowering) finalStats() Stats {
	s := l.stats
	if len(l.zoom) > 0 {
		s.ZoomTable = append([]ZoomSegment(nil), l.zoom...)
	}
	return s
}
