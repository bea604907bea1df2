package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"montage/internal/compiler"
	"montage/internal/config"
	"montage/internal/logging"
	"montage/internal/queue"
	"montage/internal/services"
)

const (
	stageName     = "render"
	stderrTailLen = 12
)

// JobStore is the subset of queue.Store the runner writes to.
type JobStore interface {
	MarkRunning(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, job *queue.Job) error
	UpdateProgress(ctx context.Context, id string, percent float64, message string) error
}

// Runner renders one job at a time with ffmpeg.
type Runner struct {
	binary  string
	timeout time.Duration
	store   JobStore
	logger  *slog.Logger
}

// NewRunner builds a runner from the [encoding] section.
func NewRunner(cfg *config.Config, store JobStore, logger *slog.Logger) *Runner {
	return &Runner{
		binary:  cfg.Encoding.FFmpegBinary,
		timeout: cfg.RenderTimeout(),
		store:   store,
		logger:  logging.NewComponentLogger(logger, "render"),
	}
}

// Args returns the ffmpeg argv the runner executes for program.
func Args(program compiler.Program, sourceVideo, outputPath string) []string {
	base := program.CommandArgs(sourceVideo, outputPath)
	args := make([]string, 0, len(base)+6)
	args = append(args, base[0])
	args = append(args, "-nostats", "-loglevel", "error", "-progress", "pipe:1")
	args = append(args, base[1:]...)
	return args
}

// Run renders job with program and persists the terminal state. A job still
// pending is moved to running first; a job in any other non-running state is
// rejected.
func (r *Runner) Run(ctx context.Context, job *queue.Job, program compiler.Program) error {
	if job == nil {
		return services.Wrap(services.ErrValidation, stageName, "run", "job is nil", nil)
	}
	ctx = services.WithStage(services.WithJobID(ctx, job.ID), stageName)
	logger := logging.WithContext(ctx, r.logger)

	switch job.Status {
	case queue.StatusPending:
		ok, err := r.store.MarkRunning(ctx, job.ID)
		if err != nil {
			return services.Wrap(services.ErrTransient, stageName, "mark running", job.ID, err)
		}
		if !ok {
			return services.Wrap(services.ErrValidation, stageName, "mark running", "job was claimed by another worker", nil)
		}
		job.SetRunning(time.Now().UTC())
	case queue.StatusRunning:
	default:
		return services.Wrap(services.ErrValidation, stageName, "run", fmt.Sprintf("job is %s", job.Status), nil)
	}

	started := time.Now()
	logger.Info("render started",
		logging.String(logging.FieldEventType, "render_started"),
		logging.String("source_video", job.SourceVideo),
		logging.String("output_path", job.OutputPath),
		logging.Float64("video_duration", program.Stats.VideoDuration),
	)

	runErr := r.execute(ctx, logger, job, program)
	finalCtx := context.WithoutCancel(ctx)
	now := time.Now().UTC()
	if runErr == nil {
		job.SetCompleted(now)
		if err := r.store.Update(finalCtx, job); err != nil {
			return services.Wrap(services.ErrTransient, stageName, "record completion", job.ID, err)
		}
		logger.Info("render completed",
			logging.String(logging.FieldEventType, "render_completed"),
			logging.String("output_path", job.OutputPath),
			logging.Duration("elapsed", time.Since(started)),
		)
		return nil
	}

	job.SetFailed(services.FailureStatus(runErr), runErr.Error(), now)
	if err := r.store.Update(finalCtx, job); err != nil {
		logger.Error("failed to record render failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_update_failed"),
			logging.String(logging.FieldErrorHint, "check job database access"),
		)
	}
	if job.Status == queue.StatusCanceled {
		logger.Info("render canceled", logging.String(logging.FieldEventType, "render_canceled"))
	} else {
		logging.ErrorWithContext(logger, "render failed", "render_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorCode, services.Code(runErr)),
			logging.String(logging.FieldErrorHint, "inspect the filter graph with montage compile --json"),
		)
	}
	return runErr
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, job *queue.Job, program compiler.Program) error {
	output := strings.TrimSpace(job.OutputPath)
	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, stageName, "create output directory", dir, err)
		}
	}

	lockPath := output + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "lock output", lockPath, err)
	}
	if !locked {
		return services.Wrap(services.ErrValidation, stageName, "lock output", "another render is writing "+output, nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	total := program.Stats.VideoDuration
	logSampler := logging.NewProgressSampler(10)
	storeSampler := logging.NewProgressSampler(1)
	onProgress := func(p Progress) {
		pct := p.Percent(total)
		if storeSampler.ShouldLog(pct) || p.Done {
			if err := r.store.UpdateProgress(ctx, job.ID, pct, p.Message()); err != nil {
				logger.Debug("progress update failed", logging.Error(err))
			}
			job.SetProgress(pct, p.Message())
		}
		if logSampler.ShouldLog(pct) {
			logger.Info("render progress",
				logging.Float64(logging.FieldProgressPercent, pct),
				logging.String(logging.FieldProgressMessage, p.Message()),
			)
		}
	}

	args := Args(program, job.SourceVideo, output)
	logger.Debug("ffmpeg command", logging.String("command", r.binary), logging.Any("args", args))

	stderrTail, err := runFFmpeg(runCtx, r.binary, args, onProgress)
	if err == nil {
		return nil
	}
	_ = os.Remove(output)

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%s: ffmpeg: %w", stageName, context.Canceled)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stageName, "ffmpeg", fmt.Sprintf("exceeded %s", r.timeout), err)
	}
	detail := strings.Join(stderrTail, " | ")
	if detail == "" {
		detail = "exited without output"
	}
	return services.Wrap(services.ErrExternalTool, stageName, "ffmpeg", detail, err)
}

// runFFmpeg streams stdout through the progress parser and keeps the last
// stderr lines for error reporting.
func runFFmpeg(ctx context.Context, binary string, args []string, onProgress func(Progress)) ([]string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	tail := newLineTail(stderrTailLen)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var parser progressParser
		scanLines(stdout, func(line string) {
			if block, ok := parser.feed(line); ok && onProgress != nil {
				onProgress(block)
			}
		})
	}()
	go func() {
		defer wg.Done()
		scanLines(stderr, tail.add)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return tail.lines(), fmt.Errorf("wait ffmpeg: %w", err)
	}
	return tail.lines(), nil
}

func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}
}

type lineTail struct {
	max  int
	buf  []string
	lock sync.Mutex
}

func newLineTail(max int) *lineTail {
	return &lineTail{max: max}
}

func (t *lineTail) add(line string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.buf = append(t.buf, line)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
}

func (t *lineTail) lines() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string(nil), t.buf...)
}
