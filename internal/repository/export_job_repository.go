package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/course-planner-api/internal/models"
)

// ErrExportJobNotFound is returned for unknown job ids.
var ErrExportJobNotFound = errors.New("export job not found")

// ExportJobRepository keeps export job metadata in process memory.
type ExportJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
	now  func() time.Time
}

// NewExportJobRepository constructs an empty store.
func NewExportJobRepository() *ExportJobRepository {
	return &ExportJobRepository{
		jobs: make(map[string]*models.ExportJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new job, filling id, status and creation time when empty.
func (r *ExportJobRepository) Create(_ context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = r.now()
	}
	stored := cloneExportJob(*job)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = &stored
	return nil
}

// GetByID returns a copy of the job.
func (r *ExportJobRepository) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrExportJobNotFound
	}
	out := cloneExportJob(*job)
	return &out, nil
}

// UpdateExportJobParams lists the mutable fields; nil fields are left alone.
type UpdateExportJobParams struct {
	Status       *models.ExportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update applies params to the stored job.
func (r *ExportJobRepository) Update(_ context.Context, id string, params UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrExportJobNotFound
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		url := *params.ResultURL
		job.ResultURL = &url
	}
	if params.ErrorMessage != nil {
		if *params.ErrorMessage == "" {
			job.ErrorMessage = nil
		} else {
			msg := *params.ErrorMessage
			job.ErrorMessage = &msg
		}
	}
	if params.FinishedAt != nil {
		at := *params.FinishedAt
		job.FinishedAt = &at
	}
	return nil
}

// ListFinishedBefore returns finished jobs older than cutoff, oldest first.
func (r *ExportJobRepository) ListFinishedBefore(_ context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	out := make([]models.ExportJob, 0)
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, cloneExportJob(*job))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.Before(*out[j].FinishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete forgets a job.
func (r *ExportJobRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func cloneExportJob(job models.ExportJob) models.ExportJob {
	out := job
	out.Snapshot = job.Snapshot.Clone()
	if job.ResultURL != nil {
		url := *job.ResultURL
		out.ResultURL = &url
	}
	if job.ErrorMessage != nil {
		msg := *job.ErrorMessage
		out.ErrorMessage = &msg
	}
	if job.FinishedAt != nil {
		at := *job.FinishedAt
		out.FinishedAt = &at
	}
	return out
}
