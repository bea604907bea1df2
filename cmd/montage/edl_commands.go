package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"montage/internal/accumulator"
	"montage/internal/edl"
	"montage/internal/media/ffprobe"
	"montage/internal/optimizer"
	"montage/internal/pipeline"
	"montage/internal/services"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <edl.json>",
		Short: "Check an edit list for overlapping layouts and stray transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := edl.Load(args[0])
			if err != nil {
				return err
			}
			result := accumulator.ValidateDecisions(list.Decisions)
			if asJSON {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if result.Valid {
					fmt.Fprintf(out, "Valid: %d decision(s)\n", len(list.Decisions))
				}
				for _, msg := range result.Errors {
					fmt.Fprintf(out, "  - %s\n", msg)
				}
			}
			if !result.Valid {
				return services.Wrap(services.ErrValidation, "validate", "", fmt.Sprintf("%d problem(s) in %s", len(result.Errors), args[0]), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the validation result as JSON")
	return cmd
}

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "optimize <edl.json>",
		Short: "Merge redundant decisions and drop transitions that change nothing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := edl.Load(args[0])
			if err != nil {
				return err
			}
			optimized, report := optimizer.OptimizeWithReport(list)
			target := strings.TrimSpace(outPath)
			if target == "" {
				return writeJSON(cmd, optimized)
			}
			if err := edl.Save(target, optimized); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d decision(s): %d merged layout(s), %d dropped transition(s), %d merged effect(s)\n",
				report.Removed(), report.MergedLayouts, report.DroppedTransitions, report.MergedEffects)
			fmt.Fprintf(out, "Wrote %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the optimized list here instead of stdout")
	return cmd
}

type compileFlags struct {
	optimize bool
	probe    bool
	output   string
}

func (f *compileFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.optimize, "optimize", false, "Run the optimizer before compiling")
	cmd.Flags().BoolVar(&f.probe, "probe", false, "Read source duration and size with ffprobe when missing")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Override the list's outputPath")
}

func (f *compileFlags) prepare(cmdCtx context.Context, ctx *commandContext, path string) (pipeline.Result, error) {
	list, err := edl.Load(path)
	if err != nil {
		return pipeline.Result{}, err
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return pipeline.Result{}, err
	}
	if output := strings.TrimSpace(f.output); output != "" {
		list.OutputPath = cfg.ResolveOutputPath(output)
	}
	opts, err := ctx.pipelineOptions()
	if err != nil {
		return pipeline.Result{}, err
	}
	opts.Optimize = f.optimize
	opts.Probe = f.probe
	return pipeline.Prepare(cmdCtx, list, opts)
}

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var flags compileFlags
	var asJSON bool
	var showCommand bool

	cmd := &cobra.Command{
		Use:   "compile <edl.json>",
		Short: "Compile an edit list into an ffmpeg filter graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := flags.prepare(cmd.Context(), ctx, args[0])
			if err != nil {
				printValidationErrors(cmd, result.Validation)
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			if showCommand {
				cfg, _ := ctx.ensureConfig()
				argv := append([]string{cfg.Encoding.FFmpegBinary},
					result.Program.CommandArgs(result.List.SourceVideo, result.List.OutputPath)...)
				fmt.Fprintln(out, shellJoin(argv))
				return nil
			}
			fmt.Fprintln(out, result.Program.FilterComplex)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the prepared list, report and program as JSON")
	cmd.Flags().BoolVar(&showCommand, "command", false, "Print the complete ffmpeg command line")
	return cmd
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "inspect <edl.json>",
		Short: "Show resolved decision timing as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := edl.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if probe && strings.TrimSpace(list.SourceVideo) != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				info, err := ffprobe.Inspect(cmd.Context(), cfg.Encoding.FFprobeBinary, list.SourceVideo)
				if err != nil {
					return err
				}
				if list.Metadata.SourceDuration <= 0 {
					list.Metadata.SourceDuration = info.DurationSeconds()
				}
				fmt.Fprint(out, renderTable([]string{"Source", "Value"}, sourceRows(list.SourceVideo, info), nil))
			}

			spans := edl.Resolve(list.Decisions, list.Metadata.SourceDuration)
			if len(spans) == 0 {
				fmt.Fprintln(out, "No decisions")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"#", "ID", "Kind", "Tool", "Start", "End", "Duration", "Params"},
				buildSpanRows(spans),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d layout(s), %d transition(s), %d effect(s)\n",
				list.Count(edl.KindLayout), list.Count(edl.KindTransition), list.Count(edl.KindEffect))
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Probe the source video with ffprobe")
	return cmd
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags compileFlags

	cmd := &cobra.Command{
		Use:   "render <edl.json>",
		Short: "Compile an edit list and render it with ffmpeg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			result, err := flags.prepare(signalCtx, ctx, args[0])
			if err != nil {
				printValidationErrors(cmd, result.Validation)
				return err
			}
			return renderPrepared(signalCtx, cmd, ctx, result)
		},
	}

	flags.register(cmd)
	return cmd
}

func printValidationErrors(cmd *cobra.Command, result accumulator.Result) {
	if result.Valid {
		return
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", msg)
	}
}

func buildSpanRows(spans []edl.Span) [][]string {
	rows := make([][]string, 0, len(spans))
	for i, span := range spans {
		d := span.Decision
		end, duration := formatSeconds(span.End), formatSeconds(span.Duration())
		if span.Open {
			end, duration = "open", "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fallback(d.ID, "-"),
			string(d.Type),
			d.Tool.DisplayName(),
			formatSeconds(span.Start),
			end,
			duration,
			summarizeParams(d.Params),
		})
	}
	return rows
}

func sourceRows(path string, info ffprobe.Result) [][]string {
	rows := [][]string{
		{"Path", path},
		{"Duration", formatSeconds(info.DurationSeconds())},
		{"Video streams", fmt.Sprintf("%d", info.VideoStreamCount())},
		{"Audio streams", fmt.Sprintf("%d", info.AudioStreamCount())},
	}
	if video, ok := info.PrimaryVideo(); ok {
		rows = append(rows,
			[]string{"Frame size", fmt.Sprintf("%dx%d", video.Width, video.Height)},
			[]string{"Frame rate", fmt.Sprintf("%.3g fps", video.FrameRate())},
		)
	}
	return rows
}

func summarizeParams(params edl.Params) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return truncate(strings.Join(parts, " "), 48)
}

var errNoSource = errors.New("edit list has no sourceVideo")
