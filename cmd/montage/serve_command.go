package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"montage/internal/api"
	"montage/internal/deps"
	"montage/internal/logging"
	"montage/internal/queue"
	"montage/internal/render"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string
	var noWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background render worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runServer(signalCtx, cmd, ctx, strings.TrimSpace(bindFlag), !noWorker)
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Override paths.api_bind")
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "Serve the API without rendering queued jobs")
	return cmd
}

// runServer blocks until ctx is done. Only one server may use a state
// directory at a time.
func runServer(ctx context.Context, cmd *cobra.Command, cctx *commandContext, bind string, withWorker bool) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}
	if bind == "" {
		bind = cfg.Paths.APIBind
	}

	lock := flock.New(filepath.Join(cfg.Paths.StateDir, "montage.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire server lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another montage server is using %s", cfg.Paths.StateDir)
	}
	defer func() { _ = lock.Unlock() }()

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "montage*.log", cfg.LogFilePath())

	if withWorker {
		if missing := deps.Missing(deps.CheckBinaries(deps.Requirements(cfg))); len(missing) > 0 {
			for _, dep := range missing {
				logging.WarnWithContext(logger, "render dependency unavailable", "dependency_missing",
					logging.String("dependency", dep.Name),
					logging.String("detail", dep.Detail),
					logging.String(logging.FieldImpact, "queued renders will fail"),
					logging.String(logging.FieldErrorHint, "install ffmpeg or set encoding.ffmpeg_binary"),
				)
			}
		}
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	serverCfg := api.ServerConfig{
		Logger:    logger,
		Jobs:      api.NewJobService(store),
		StartTime: time.Now(),
	}
	serverCfg.Pipeline, err = cctx.pipelineOptions()
	if err != nil {
		return err
	}

	var worker *render.Worker
	if withWorker {
		worker = render.NewWorker(cfg, store, logger)
		if err := worker.Start(ctx); err != nil {
			return fmt.Errorf("start render worker: %w", err)
		}
		defer worker.Stop()
		serverCfg.Worker = worker
	}

	server, err := api.NewServer(bind, serverCfg)
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", server.Addr())
	<-ctx.Done()
	logger.Info("montage server shutting down")
	return nil
}
