package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"montage/internal/accumulator"
	"montage/internal/compiler"
	"montage/internal/config"
	"montage/internal/edl"
	"montage/internal/logging"
	"montage/internal/media/ffprobe"
	"montage/internal/optimizer"
	"montage/internal/services"
)

const stageName = "prepare"

// Options controls a Prepare run.
type Options struct {
	Optimize      bool
	Probe         bool
	FFprobeBinary string
	OutputDir     string
	Defaults      edl.Metadata
	Compiler      compiler.Options
	Logger        *slog.Logger
}

// OptionsFromConfig maps the [output], [encoding] and [paths] sections onto
// pipeline defaults.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		FFprobeBinary: cfg.Encoding.FFprobeBinary,
		OutputDir:     cfg.Paths.OutputDir,
		Defaults: edl.Metadata{
			OutputWidth:       cfg.Output.Width,
			OutputHeight:      cfg.Output.Height,
			TargetAspectRatio: cfg.Output.TargetAspectRatio,
			FontPath:          cfg.Output.FontPath,
		},
		Compiler: compiler.Options{
			SplitRatio:   cfg.Output.SplitRatio,
			FrameRate:    cfg.Output.FrameRate,
			VideoPreset:  cfg.Encoding.VideoPreset,
			CRF:          cfg.Encoding.CRF,
			AudioBitrate: cfg.Encoding.AudioBitrate,
		},
	}
	return opts
}

// Result is everything a Prepare run produced. Validation is populated even
// when Prepare returns a validation error.
type Result struct {
	List       edl.List           `json:"edl"`
	Validation accumulator.Result `json:"validation"`
	Optimized  *optimizer.Report  `json:"optimized,omitempty"`
	Program    compiler.Program   `json:"program"`
}

// Prepare turns list into a compiled program. The input list is not modified.
func Prepare(ctx context.Context, list edl.List, opts Options) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "pipeline"))

	working := list.Clone()
	working.Metadata = mergeMetadata(working.Metadata, opts.Defaults)
	if strings.TrimSpace(working.OutputPath) == "" {
		working.OutputPath = DefaultOutputPath(working.SourceVideo, opts.OutputDir)
	}

	if opts.Probe && needsProbe(working.Metadata) {
		if err := probeSource(ctx, &working, opts.FFprobeBinary); err != nil {
			if errors.Is(err, context.Canceled) {
				return Result{List: working}, err
			}
			logging.WarnWithContext(logger, "source probe failed; using metadata defaults", "probe_failed",
				logging.String("source_video", working.SourceVideo),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check encoding.ffprobe_binary and the source path"),
				logging.String(logging.FieldImpact, "open-ended decisions may lack an end time"),
			)
		}
	}

	result := Result{List: working}
	result.Validation = accumulator.ValidateDecisions(working.Decisions)
	if !result.Validation.Valid {
		return result, services.Wrap(
			services.ErrValidation, stageName, "validate",
			fmt.Sprintf("%d problem(s)", len(result.Validation.Errors)),
			errors.New(strings.Join(result.Validation.Errors, "; ")),
		)
	}

	if opts.Optimize {
		optimized, report := optimizer.OptimizeWithReport(working)
		result.List = optimized
		result.Optimized = &report
		logger.Debug("edit list optimized",
			logging.Int("removed", report.Removed()),
			logging.Int("merged_layouts", report.MergedLayouts),
			logging.Int("dropped_transitions", report.DroppedTransitions),
			logging.Int("merged_effects", report.MergedEffects),
		)
	}

	result.Program = compiler.New(opts.Compiler).Compile(result.List)
	stats := result.Program.Stats
	logger.Info("edit list compiled",
		logging.String(logging.FieldEventType, "compiled"),
		logging.String("source_video", result.List.SourceVideo),
		logging.Int("segments", stats.Segments),
		logging.Int("crossfades", stats.Crossfades),
		logging.Int("effects", stats.Effects),
		logging.Int("dropped_effects", stats.DroppedEffect),
		logging.Float64("video_duration", stats.VideoDuration),
	)
	return result, nil
}

// DefaultOutputPath derives "<dir>/<stem>-edit.mp4" from the source video.
func DefaultOutputPath(sourceVideo, outputDir string) string {
	sourceVideo = strings.TrimSpace(sourceVideo)
	if sourceVideo == "" {
		return ""
	}
	base := filepath.Base(sourceVideo)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := strings.TrimSpace(outputDir)
	if dir == "" {
		dir = filepath.Dir(sourceVideo)
	}
	return filepath.Join(dir, stem+"-edit.mp4")
}

// mergeMetadata keeps every value the list set and fills the rest from defaults.
func mergeMetadata(meta, defaults edl.Metadata) edl.Metadata {
	if meta.OutputWidth <= 0 && meta.OutputHeight <= 0 {
		meta.OutputWidth = defaults.OutputWidth
		meta.OutputHeight = defaults.OutputHeight
	}
	if strings.TrimSpace(meta.TargetAspectRatio) == "" {
		meta.TargetAspectRatio = defaults.TargetAspectRatio
	}
	if strings.TrimSpace(meta.FontPath) == "" {
		meta.FontPath = defaults.FontPath
	}
	if meta.SourceDuration <= 0 {
		meta.SourceDuration = defaults.SourceDuration
	}
	if meta.SourceWidth <= 0 {
		meta.SourceWidth = defaults.SourceWidth
		meta.SourceHeight = defaults.SourceHeight
	}
	return meta
}

func needsProbe(meta edl.Metadata) bool {
	return meta.SourceDuration <= 0 || meta.SourceWidth <= 0
}

func probeSource(ctx context.Context, list *edl.List, binary string) error {
	if strings.TrimSpace(list.SourceVideo) == "" {
		return errors.New("source video not set")
	}
	probe, err := ffprobe.Inspect(ctx, binary, list.SourceVideo)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "probe source", list.SourceVideo, err)
	}
	if list.Metadata.SourceDuration <= 0 {
		list.Metadata.SourceDuration = probe.DurationSeconds()
	}
	if list.Metadata.SourceWidth <= 0 {
		if video, ok := probe.PrimaryVideo(); ok && video.Width > 0 {
			list.Metadata.SourceWidth = video.Width
			list.Metadata.SourceHeight = video.Height
		}
	}
	return nil
}
