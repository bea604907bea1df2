package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"montage/internal/config"
	"montage/internal/deps"
	"montage/internal/queue"
)

type statusLine struct {
	label   string
	kind    statusKind
	message string
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, configuration and the job store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			checkCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			sections := []struct {
				title string
				lines []statusLine
			}{
				{"Dependencies", dependencyLines(checkCtx, cfg)},
				{"Configuration", configLines(cfg)},
				{"Jobs", jobLines(checkCtx, ctx)},
			}
			for i, section := range sections {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, renderSectionHeader(section.title, colorize))
				for _, line := range section.lines {
					fmt.Fprintln(out, renderStatusLine(line.label, line.kind, line.message, colorize))
				}
			}
			return nil
		},
	}
}

func dependencyLines(ctx context.Context, cfg *config.Config) []statusLine {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	lines := make([]statusLine, 0, len(statuses)+1)
	var ffmpeg *deps.Status
	for i, status := range statuses {
		switch {
		case status.Available:
			lines = append(lines, statusLine{status.Name, statusOK, status.Command})
			if status.Name == "FFmpeg" {
				ffmpeg = &statuses[i]
			}
		case status.Optional:
			lines = append(lines, statusLine{status.Name, statusWarn, status.Detail})
		default:
			lines = append(lines, statusLine{status.Name, statusError, status.Detail})
		}
	}
	if ffmpeg == nil {
		return lines
	}
	if version, err := deps.FFmpegVersion(ctx, ffmpeg.Command); err == nil && version != "" {
		lines = append(lines, statusLine{"Version", statusInfo, version})
	}
	missing, err := deps.MissingFilters(ctx, ffmpeg.Command)
	switch {
	case err != nil:
		lines = append(lines, statusLine{"Filters", statusWarn, err.Error()})
	case len(missing) > 0:
		lines = append(lines, statusLine{"Filters", statusError, "missing " + strings.Join(missing, ", ")})
	default:
		lines = append(lines, statusLine{"Filters", statusOK, fmt.Sprintf("%d required filters present", len(deps.RequiredFilters))})
	}
	return lines
}

func configLines(cfg *config.Config) []statusLine {
	lines := []statusLine{
		{"State dir", statusInfo, cfg.Paths.StateDir},
		{"Output dir", statusInfo, fallback(cfg.Paths.OutputDir, "next to source")},
		{"Output", statusInfo, fmt.Sprintf("%dx%d @ %d fps", cfg.Output.Width, cfg.Output.Height, cfg.Output.FrameRate)},
		{"API bind", statusInfo, cfg.Paths.APIBind},
	}
	if font := strings.TrimSpace(cfg.Output.FontPath); font == "" {
		lines = append(lines, statusLine{"Font", statusWarn, "not set; text overlays use the ffmpeg default"})
	} else {
		lines = append(lines, statusLine{"Font", fileStatus(font), font})
	}
	return lines
}

func jobLines(ctx context.Context, cctx *commandContext) []statusLine {
	cfg, _ := cctx.ensureConfig()
	var lines []statusLine
	lock := flock.New(filepath.Join(cfg.Paths.StateDir, "montage.lock"))
	if ok, err := lock.TryLock(); err == nil && ok {
		_ = lock.Unlock()
		lines = append(lines, statusLine{"Server", statusInfo, "not running"})
	} else if err == nil {
		lines = append(lines, statusLine{"Server", statusOK, "running"})
	}

	err := cctx.withStore(func(store *queue.Store) error {
		summary, err := store.Health(ctx)
		if err != nil {
			return err
		}
		kind := statusOK
		if summary.Failed > 0 {
			kind = statusWarn
		}
		lines = append(lines, statusLine{"Store", kind, fmt.Sprintf(
			"%d total, %d pending, %d running, %d completed, %d failed, %d canceled",
			summary.Total, summary.Pending, summary.Running, summary.Completed, summary.Failed, summary.Canceled,
		)})
		return nil
	})
	if err != nil {
		lines = append(lines, statusLine{"Store", statusError, err.Error()})
	}
	return lines
}
