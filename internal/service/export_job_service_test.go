package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-planner-api/internal/dto"
	"github.com/noah-isme/course-planner-api/internal/models"
	"github.com/noah-isme/course-planner-api/internal/repository"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
	"github.com/noah-isme/course-planner-api/pkg/jobs"
	"github.com/noah-isme/course-planner-api/pkg/storage"
)

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type exportMetricsStub struct {
	records []string
}

func (m *exportMetricsStub) RecordExportJob(format models.ExportFormat, status models.ExportStatus) {
	m.records = append(m.records, string(format)+":"+string(status))
}

type failingGenerator struct {
	calls int
}

func (g *failingGenerator) Generate(context.Context, *models.ExportJob) (*ExportResult, error) {
	g.calls++
	return nil, errors.New("disk full")
}

type exportJobHarness struct {
	svc        *ExportJobService
	worker     *ExportWorker
	repo       *repository.ExportJobRepository
	exporter   *ExportService
	queue      *dispatcherStub
	metrics    *exportMetricsStub
	scheduleID string
}

func newExportJobFixture(t *testing.T) *exportJobHarness {
	t.Helper()
	planner, catalog, scheduleID := newPlannerFixture(t, "CS101-01", "MATH101-01")
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	exporter := NewExportService(catalog, store, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop())

	fx := &exportJobHarness{
		repo:       repository.NewExportJobRepository(),
		exporter:   exporter,
		queue:      &dispatcherStub{},
		metrics:    &exportMetricsStub{},
		scheduleID: scheduleID,
	}
	fx.svc = NewExportJobService(fx.repo, planner, fx.queue, exporter, nil, nil, ExportJobConfig{ResultTTL: time.Hour})
	fx.worker = NewExportWorker(fx.repo, exporter, fx.metrics, 2, nil)
	return fx
}

func (fx *exportJobHarness) runQueued(t *testing.T) {
	t.Helper()
	for _, job := range fx.queue.jobs {
		require.NoError(t, fx.worker.Handle(context.Background(), job))
	}
}

func TestExportJobServiceLifecycle(t *testing.T) {
	fx := newExportJobFixture(t)
	ctx := context.Background()

	created, err := fx.svc.CreateJob(ctx, fx.scheduleID, dto.ExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, created.Status)
	require.Len(t, fx.queue.jobs, 1)
	assert.Equal(t, created.ID, fx.queue.jobs[0].ID)
	assert.Equal(t, "csv", fx.queue.jobs[0].Type)

	status, err := fx.svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.scheduleID, status.ScheduleID)
	assert.Nil(t, status.ResultURL)

	fx.runQueued(t)

	status, err = fx.svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)
	assert.Nil(t, status.Error)
	assert.True(t, strings.HasPrefix(*status.ResultURL, "/api/v1/exports/download/"))
	assert.Equal(t, []string{"csv:finished"}, fx.metrics.records)

	download, err := fx.svc.ResolveDownload(ctx, extractToken(*status.ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "text/csv", download.ContentType)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "CS 101")
}

func TestExportJobServiceSnapshotsSchedule(t *testing.T) {
	fx := newExportJobFixture(t)
	ctx := context.Background()

	created, err := fx.svc.CreateJob(ctx, fx.scheduleID, dto.ExportRequest{Format: models.ExportFormatICS})
	require.NoError(t, err)

	job, err := fx.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, job.Snapshot.Sections, 2)
	assert.Equal(t, "fall-2024", job.Snapshot.TermID)
}

func TestExportJobServiceCreateRejects(t *testing.T) {
	fx := newExportJobFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateJob(ctx, fx.scheduleID, dto.ExportRequest{Format: "xlsx"})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	_, err = fx.svc.CreateJob(ctx, "missing", dto.ExportRequest{Format: models.ExportFormatPDF})
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(err))
	assert.Empty(t, fx.queue.jobs)

	_, err = fx.svc.GetStatus(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(err))
}

func TestExportJobServiceEnqueueFailureMarksJobFailed(t *testing.T) {
	fx := newExportJobFixture(t)
	fx.queue.err = jobs.ErrQueueClosed
	ctx := context.Background()

	_, err := fx.svc.CreateJob(ctx, fx.scheduleID, dto.ExportRequest{Format: models.ExportFormatCSV})
	assert.Equal(t, appErrors.ErrInternal.Code, errCode(err))

	expired, err := fx.repo.ListFinishedBefore(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	fx := newExportJobFixture(t)
	ctx := context.Background()
	created, err := fx.svc.CreateJob(ctx, fx.scheduleID, dto.ExportRequest{Format: models.ExportFormatPDF})
	require.NoError(t, err)

	generator := &failingGenerator{}
	worker := NewExportWorker(fx.repo, generator, fx.metrics, 1, nil)
	job := fx.queue.jobs[0]

	require.Error(t, worker.Handle(ctx, job))
	status, err := fx.svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, status.Status)
	assert.Equal(t, 0, status.Progress)
	require.NotNil(t, status.Error)
	assert.Equal(t, "disk full", *status.Error)
	assert.Empty(t, fx.metrics.records)

	job.Attempt = 1
	require.Error(t, worker.Handle(ctx, job))
	status, err = fx.svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, status.Status)
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, 2, generator.calls)
	assert.Equal(t, []string{"pdf:failed"}, fx.metrics.records)
}

func TestExportJobServiceResolveDownloadRejects(t *testing.T) {
	fx := newExportJobFixture(t)
	ctx := context.Background()

	_, err := fx.svc.ResolveDownload(ctx, "garbage")
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	created, err := fx.svc.CreateJob(ctx, fx.scheduleID, dto.ExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	job, err := fx.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	// A validly signed token for a job that has not finished.
	result, err := fx.exporter.Generate(ctx, job)
	require.NoError(t, err)
	_, err = fx.svc.ResolveDownload(ctx, result.Token)
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	fx.runQueued(t)
	status, err := fx.svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	tampered := strings.Replace(extractToken(*status.ResultURL), created.ID, "other-job", 1)
	_, err = fx.svc.ResolveDownload(ctx, tampered)
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))
}

func TestExportJobServiceCleanupExpired(t *testing.T) {
	fx := newExportJobFixture(t)
	ctx := context.Background()
	created, err := fx.svc.CreateJob(ctx, fx.scheduleID, dto.ExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	fx.runQueued(t)

	status, err := fx.svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	_, relPath, _, err := fx.exporter.ParseToken(extractToken(*status.ResultURL), false)
	require.NoError(t, err)

	fx.svc.CleanupExpired(ctx)
	_, err = fx.svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, fx.repo.Update(ctx, created.ID, repository.UpdateExportJobParams{FinishedAt: &past}))
	fx.svc.CleanupExpired(ctx)

	_, err = fx.svc.GetStatus(ctx, created.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(err))
	_, err = fx.exporter.Open(relPath)
	assert.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor(models.ExportFormatPDF))
	assert.Equal(t, "text/calendar", ContentTypeFor(models.ExportFormatICS))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("xlsx"))
	assert.Equal(t, "abc", extractToken("/api/v1/exports/download/abc"))
	assert.Equal(t, "", extractToken(""))
}
