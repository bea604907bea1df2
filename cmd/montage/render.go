package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"montage/internal/pipeline"
	"montage/internal/queue"
	"montage/internal/render"
)

// renderPrepared records result as a job and renders it in the foreground.
// The job row lets `montage jobs` and a running server see CLI renders.
func renderPrepared(ctx context.Context, cmd *cobra.Command, cctx *commandContext, result pipeline.Result) error {
	if strings.TrimSpace(result.List.SourceVideo) == "" {
		return errNoSource
	}
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}
	data, err := json.Marshal(result.List)
	if err != nil {
		return fmt.Errorf("encode edit list: %w", err)
	}
	return cctx.withStore(func(store *queue.Store) error {
		job, err := store.NewJob(ctx, result.List.SourceVideo, result.List.OutputPath, string(data), result.Program.FilterComplex)
		if err != nil {
			return err
		}
		runner := render.NewRunner(cfg, store, logger)
		if err := runner.Run(ctx, job, result.Program); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s (job %s)\n", job.OutputPath, shortID(job.ID))
		return nil
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
