package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a render job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// InterruptedReason is the error message set on jobs found running at startup.
const InterruptedReason = "Render interrupted before completion"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCanceled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Canceled  int `json:"canceled"`
}

// Job represents a render job persisted in SQLite.
type Job struct {
	ID              string     `json:"id"`
	SourceVideo     string     `json:"sourceVideo"`
	OutputPath      string     `json:"outputPath"`
	Status          Status     `json:"status"`
	EDLJSON         string     `json:"edl,omitempty"`
	FilterComplex   string     `json:"filterComplex,omitempty"`
	ProgressPercent float64    `json:"progressPercent"`
	ProgressMessage string     `json:"progressMessage,omitempty"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// SetProgress updates the progress fields together.
func (j *Job) SetProgress(percent float64, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	j.ProgressPercent = percent
	j.ProgressMessage = message
}

// SetRunning marks the job as started.
func (j *Job) SetRunning(now time.Time) {
	j.Status = StatusRunning
	j.StartedAt = &now
	j.FinishedAt = nil
	j.ErrorMessage = ""
	j.SetProgress(0, "Rendering")
}

// SetCompleted marks the job as finished successfully.
func (j *Job) SetCompleted(now time.Time) {
	j.Status = StatusCompleted
	j.FinishedAt = &now
	j.ErrorMessage = ""
	j.SetProgress(100, "Completed")
}

// SetFailed marks the job with a terminal failure status and message.
func (j *Job) SetFailed(status Status, message string, now time.Time) {
	if !status.IsTerminal() || status == StatusCompleted {
		status = StatusFailed
	}
	j.Status = status
	j.ErrorMessage = message
	j.FinishedAt = &now
	j.ProgressMessage = message
}

// Elapsed returns how long the job has run, or ran.
func (j Job) Elapsed(now time.Time) time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	end := now
	if j.FinishedAt != nil {
		end = *j.FinishedAt
	}
	if end.Before(*j.StartedAt) {
		return 0
	}
	return end.Sub(*j.StartedAt)
}
