package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"montage/internal/pipeline"
	"montage/internal/queue"
	"montage/internal/services"
)

// JobStore abstracts the store operations the job views need.
type JobStore interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	GetByID(ctx context.Context, id string) (*queue.Job, error)
	FindByPrefix(ctx context.Context, prefix string) (*queue.Job, error)
	NewJob(ctx context.Context, sourceVideo, outputPath, edlJSON, filterComplex string) (*queue.Job, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// JobService exposes job operations returning API DTOs.
type JobService struct {
	store JobStore
	now   func() time.Time
}

// NewJobService constructs a JobService around store.
func NewJobService(store JobStore) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store, now: time.Now}
}

// List returns jobs filtered by status, oldest first.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]Job, error) {
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job, false, now))
	}
	return out, nil
}

// Describe resolves a job by full ID or unique prefix.
func (s *JobService) Describe(ctx context.Context, id string) (*Job, error) {
	job, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromJob(job, true, s.now())
	return &dto, nil
}

// Resolve finds the stored job for id, accepting unique prefixes.
func (s *JobService) Resolve(ctx context.Context, id string) (*queue.Job, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		job, err = s.store.FindByPrefix(ctx, id)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "jobs", "resolve", "", err)
		}
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "jobs", "resolve", fmt.Sprintf("job %s", id), nil)
	}
	return job, nil
}

// Enqueue stores a prepared list as a pending render job.
func (s *JobService) Enqueue(ctx context.Context, result pipeline.Result) (*Job, error) {
	data, err := json.Marshal(result.List)
	if err != nil {
		return nil, fmt.Errorf("encode edit list: %w", err)
	}
	job, err := s.store.NewJob(ctx, result.List.SourceVideo, result.List.OutputPath, string(data), result.Program.FilterComplex)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "jobs", "enqueue", "", err)
	}
	dto := FromJob(job, false, s.now())
	return &dto, nil
}

// Health returns aggregated job counts.
func (s *JobService) Health(ctx context.Context) (queue.HealthSummary, error) {
	return s.store.Health(ctx)
}
