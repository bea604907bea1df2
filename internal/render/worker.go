package render

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"montage/internal/compiler"
	"montage/internal/config"
	"montage/internal/edl"
	"montage/internal/logging"
	"montage/internal/pipeline"
	"montage/internal/queue"
	"montage/internal/services"
)

const (
	defaultPollInterval = 2 * time.Second
	errorRetryInterval  = 5 * time.Second
)

// Worker claims pending jobs and renders them sequentially.
type Worker struct {
	cfg          *config.Config
	store        *queue.Store
	runner       *Runner
	logger       *slog.Logger
	pollInterval time.Duration
	wake         chan struct{}

	mu      sync.Mutex
	running bool
	active  string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithPollInterval overrides how often the worker checks for pending jobs
// when it has not been notified.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// NewWorker constructs a worker bound to store.
func NewWorker(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		cfg:          cfg,
		store:        store,
		runner:       NewRunner(cfg, store, logger),
		logger:       logging.NewComponentLogger(logger, "worker"),
		pollInterval: defaultPollInterval,
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start fails any job left running by a previous process and begins
// claiming pending jobs in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("render worker already running")
	}
	w.mu.Unlock()

	reset, err := w.store.ResetRunning(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		logging.WarnWithContext(w.logger, "interrupted renders marked failed", "jobs_reset",
			logging.Int64("count", reset),
			logging.String(logging.FieldImpact, "interrupted renders will not resume on their own"),
			logging.String(logging.FieldErrorHint, "run montage jobs retry to queue them again"),
		)
	}

	w.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.loop(runCtx)
	return nil
}

// Stop cancels the active render and waits for the loop to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// Notify wakes the worker after a job is enqueued.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// ActiveJob returns the ID of the job being rendered, if any.
func (w *Worker) ActiveJob() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, w.active != ""
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.store.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_claim_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"),
			)
			w.sleep(ctx, errorRetryInterval)
			continue
		}
		if job == nil {
			w.sleep(ctx, w.pollInterval)
			continue
		}

		w.setActive(job.ID)
		err = w.process(ctx, job)
		w.setActive("")
		if errors.Is(err, context.Canceled) {
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, job *queue.Job) error {
	program, err := w.compile(ctx, job)
	if err != nil {
		job.SetFailed(queue.StatusFailed, err.Error(), time.Now().UTC())
		if updateErr := w.store.Update(context.WithoutCancel(ctx), job); updateErr != nil {
			w.logger.Error("failed to record compile failure", logging.Error(updateErr))
		}
		logging.ErrorWithContext(logging.WithContext(services.WithJobID(ctx, job.ID), w.logger),
			"stored edit list no longer compiles", "job_compile_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorCode, services.Code(err)),
		)
		return err
	}
	return w.runner.Run(ctx, job, program)
}

// compile rebuilds the program from the stored edit list so a job always
// renders with the encoder settings of the running server.
func (w *Worker) compile(ctx context.Context, job *queue.Job) (compiler.Program, error) {
	list, err := edl.Decode(strings.NewReader(job.EDLJSON))
	if err != nil {
		return compiler.Program{}, services.Wrap(services.ErrValidation, stageName, "decode stored edit list", job.ID, err)
	}
	list.SourceVideo = job.SourceVideo
	list.OutputPath = job.OutputPath
	opts := pipeline.OptionsFromConfig(w.cfg)
	opts.Logger = w.logger
	result, err := pipeline.Prepare(ctx, list, opts)
	if err != nil {
		return compiler.Program{}, err
	}
	return result.Program, nil
}

func (w *Worker) setActive(id string) {
	w.mu.Lock()
	w.active = id
	w.mu.Unlock()
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-w.wake:
	case <-time.After(d):
	}
}
