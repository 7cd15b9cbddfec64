package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-planner-api/internal/models"
)

func TestExportJobRepositoryCreateAndUpdate(t *testing.T) {
	repo := NewExportJobRepository()
	ctx := context.Background()

	job := &models.ExportJob{
		ScheduleID: "generated-1",
		Format:     models.ExportFormatCSV,
		Snapshot:   models.Schedule{ID: "generated-1", Sections: []models.Section{{ID: "CS101-01", CourseID: "CS101"}}},
	}
	require.NoError(t, repo.Create(ctx, job))
	require.NotEmpty(t, job.ID)
	assert.Equal(t, models.ExportStatusQueued, job.Status)

	job.Snapshot.Sections[0].ID = "mutated"
	stored, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS101-01", stored.Snapshot.Sections[0].ID)

	status := models.ExportStatusFinished
	progress := 100
	url := "/api/v1/exports/download/token"
	now := time.Now().UTC()
	msg := "transient"
	require.NoError(t, repo.Update(ctx, job.ID, UpdateExportJobParams{ErrorMessage: &msg}))
	clear := ""
	require.NoError(t, repo.Update(ctx, job.ID, UpdateExportJobParams{
		Status:       &status,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}))

	stored, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, status, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	assert.Equal(t, url, *stored.ResultURL)
	assert.Nil(t, stored.ErrorMessage)
}

func TestExportJobRepositoryMissing(t *testing.T) {
	repo := NewExportJobRepository()
	_, err := repo.GetByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrExportJobNotFound))
	assert.True(t, errors.Is(repo.Update(context.Background(), "nope", UpdateExportJobParams{}), ErrExportJobNotFound))
}

func TestExportJobRepositoryListFinishedBefore(t *testing.T) {
	repo := NewExportJobRepository()
	ctx := context.Background()
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	finished := models.ExportStatusFinished

	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Create(ctx, &models.ExportJob{ID: id}))
		at := base.Add(time.Duration(i) * time.Hour)
		if id == "a" {
			at = base.Add(-time.Hour)
		}
		require.NoError(t, repo.Update(ctx, id, UpdateExportJobParams{Status: &finished, FinishedAt: &at}))
	}
	require.NoError(t, repo.Create(ctx, &models.ExportJob{ID: "queued"}))

	jobs, err := repo.ListFinishedBefore(ctx, base.Add(90*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].ID)
	assert.Equal(t, "c", jobs[1].ID)

	require.NoError(t, repo.Delete(ctx, "a"))
	jobs, err = repo.ListFinishedBefore(ctx, base.Add(90*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "c", jobs[0].ID)
}
