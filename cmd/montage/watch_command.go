package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"montage/internal/services"
	"montage/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags compileFlags
	var renderOnSave bool
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <edl.json>",
		Short: "Recompile an edit list every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			onChange := func(runCtx context.Context) error {
				result, err := flags.prepare(runCtx, ctx, args[0])
				if err != nil {
					if errors.Is(err, services.ErrValidation) {
						fmt.Fprintf(out, "%s: invalid\n", args[0])
						for _, msg := range result.Validation.Errors {
							fmt.Fprintf(out, "  - %s\n", msg)
						}
						return nil
					}
					return err
				}
				stats := result.Program.Stats
				fmt.Fprintf(out, "%s: compiled %d segment(s), %d effect(s), %.2fs\n",
					args[0], stats.Segments, stats.Effects, stats.VideoDuration)
				if renderOnSave {
					return renderPrepared(runCtx, cmd, ctx, result)
				}
				return nil
			}

			return watch.Watch(signalCtx, args[0], onChange, watch.Options{
				Debounce: debounce,
				Initial:  true,
				Logger:   logger,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&renderOnSave, "render", false, "Render after every successful compile")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before recompiling")
	return cmd
}
