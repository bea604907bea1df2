package api

import (
	"encoding/json"
	"time"

	"montage/internal/accumulator"
	"montage/internal/compiler"
	"montage/internal/edl"
	"montage/internal/optimizer"
	"montage/internal/queue"
)

// Job is the transport representation of a render job.
type Job struct {
	ID              string          `json:"id"`
	SourceVideo     string          `json:"sourceVideo"`
	OutputPath      string          `json:"outputPath"`
	Status          string          `json:"status"`
	ProgressPercent float64         `json:"progressPercent"`
	ProgressMessage string          `json:"progressMessage,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
	StartedAt       string          `json:"startedAt,omitempty"`
	FinishedAt      string          `json:"finishedAt,omitempty"`
	ElapsedSeconds  float64         `json:"elapsedSeconds,omitempty"`
	EDL             json.RawMessage `json:"edl,omitempty"`
	FilterComplex   string          `json:"filterComplex,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string              `json:"status"`
	UptimeS   int64               `json:"uptimeSeconds"`
	Jobs      queue.HealthSummary `json:"jobs"`
	ActiveJob string              `json:"activeJob,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// ValidateResponse is returned by POST /api/validate.
type ValidateResponse = accumulator.Result

// OptimizeResponse is returned by POST /api/optimize.
type OptimizeResponse struct {
	EDL    edl.List         `json:"edl"`
	Report optimizer.Report `json:"report"`
}

// CompileResponse is returned by POST /api/compile.
type CompileResponse struct {
	EDL       edl.List          `json:"edl"`
	Optimized *optimizer.Report `json:"optimized,omitempty"`
	Program   compiler.Program  `json:"program"`
	Command   []string          `json:"command"`
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// FromJob converts a queue job. The stored edit list and filter graph are
// included only when detail is true.
func FromJob(job *queue.Job, detail bool, now time.Time) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:              job.ID,
		SourceVideo:     job.SourceVideo,
		OutputPath:      job.OutputPath,
		Status:          string(job.Status),
		ProgressPercent: job.ProgressPercent,
		ProgressMessage: job.ProgressMessage,
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       formatTime(job.CreatedAt),
		UpdatedAt:       formatTime(job.UpdatedAt),
		ElapsedSeconds:  job.Elapsed(now).Seconds(),
	}
	if job.StartedAt != nil {
		dto.StartedAt = formatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = formatTime(*job.FinishedAt)
	}
	if detail {
		if json.Valid([]byte(job.EDLJSON)) {
			dto.EDL = json.RawMessage(job.EDLJSON)
		}
		dto.FilterComplex = job.FilterComplex
	}
	return dto
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
