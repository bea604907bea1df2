package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"montage/internal/accumulator"
	"montage/internal/edl"
	"montage/internal/logging"
	"montage/internal/optimizer"
	"montage/internal/pipeline"
	"montage/internal/queue"
)

// maxBodyBytes bounds posted edit lists.
const maxBodyBytes = 8 << 20

// Worker is the render worker surface the API reports on and wakes.
type Worker interface {
	Notify()
	ActiveJob() (string, bool)
}

// ServerConfig carries the dependencies shared by all handlers.
type ServerConfig struct {
	Logger    *slog.Logger
	Jobs      *JobService
	Pipeline  pipeline.Options
	Worker    Worker
	StartTime time.Time
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(cfg))
		r.Post("/validate", validateHandler(cfg))
		r.Post("/optimize", optimizeHandler(cfg))
		r.Post("/compile", compileHandler(cfg))

		r.Get("/jobs", listJobsHandler(cfg))
		r.Post("/jobs", createJobHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		}
		if cfg.Jobs != nil {
			summary, err := cfg.Jobs.Health(r.Context())
			if err != nil {
				resp.Status = "degraded"
			}
			resp.Jobs = summary
		}
		if cfg.Worker != nil {
			if id, ok := cfg.Worker.ActiveJob(); ok {
				resp.ActiveJob = id
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func validateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, ok := decodeList(w, r)
		if !ok {
			return
		}
		var resp ValidateResponse = accumulator.ValidateDecisions(list.Decisions)
		WriteJSON(w, http.StatusOK, resp)
	}
}

func optimizeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, ok := decodeList(w, r)
		if !ok {
			return
		}
		optimized, report := optimizer.OptimizeWithReport(list)
		WriteJSON(w, http.StatusOK, OptimizeResponse{EDL: optimized, Report: report})
	}
}

func compileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, ok := decodeList(w, r)
		if !ok {
			return
		}
		result, err := prepare(r, cfg, list)
		if err != nil {
			WriteServiceError(w, err, result.Validation.Errors...)
			return
		}
		WriteJSON(w, http.StatusOK, CompileResponse{
			EDL:       result.List,
			Optimized: result.Optimized,
			Program:   result.Program,
			Command:   result.Program.CommandArgs(result.List.SourceVideo, result.List.OutputPath),
		})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Jobs == nil {
			WriteError(w, http.StatusServiceUnavailable, "job store unavailable", "configuration_error")
			return
		}
		var statuses []queue.Status
		for _, raw := range r.URL.Query()["status"] {
			for _, part := range strings.Split(raw, ",") {
				if strings.TrimSpace(part) == "" {
					continue
				}
				status, ok := queue.ParseStatus(part)
				if !ok {
					WriteError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(part), "validation_error")
					return
				}
				statuses = append(statuses, status)
			}
		}
		jobs, err := cfg.Jobs.List(r.Context(), statuses...)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, jobs)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Jobs == nil {
			WriteError(w, http.StatusServiceUnavailable, "job store unavailable", "configuration_error")
			return
		}
		job, err := cfg.Jobs.Describe(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, job)
	}
}

func createJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Jobs == nil {
			WriteError(w, http.StatusServiceUnavailable, "job store unavailable", "configuration_error")
			return
		}
		list, ok := decodeList(w, r)
		if !ok {
			return
		}
		if strings.TrimSpace(list.SourceVideo) == "" {
			WriteError(w, http.StatusBadRequest, "sourceVideo is required", "validation_error")
			return
		}
		result, err := prepare(r, cfg, list)
		if err != nil {
			WriteServiceError(w, err, result.Validation.Errors...)
			return
		}
		job, err := cfg.Jobs.Enqueue(r.Context(), result)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if cfg.Worker != nil {
			cfg.Worker.Notify()
		}
		WriteJSON(w, http.StatusAccepted, job)
	}
}

// prepare runs the pipeline with ?optimize= and ?probe= overrides applied.
func prepare(r *http.Request, cfg ServerConfig, list edl.List) (pipeline.Result, error) {
	opts := cfg.Pipeline
	opts.Logger = cfg.Logger
	query := r.URL.Query()
	if v, ok := queryBool(query.Get("optimize")); ok {
		opts.Optimize = v
	}
	if v, ok := queryBool(query.Get("probe")); ok {
		opts.Probe = v
	}
	return pipeline.Prepare(r.Context(), list, opts)
}

func queryBool(raw string) (bool, bool) {
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func decodeList(w http.ResponseWriter, r *http.Request) (edl.List, bool) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	list, err := edl.Decode(body)
	if err != nil {
		status := StatusForError(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		WriteError(w, status, err.Error(), "validation_error")
		return edl.List{}, false
	}
	return list, true
}
