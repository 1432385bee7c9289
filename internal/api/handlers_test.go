package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/job"
	"github.com/schedcu/v2/internal/orchestrator"
	"github.com/schedcu/v2/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlers() (*Handlers, *echo.Echo, *memory.JobRepository) {
	repo := memory.NewJobRepository()
	e := echo.New()
	h := NewHandlers(nil, repo, job.NewCancelRegistry(), entity.Options{})
	return h, e, repo
}

func TestGetScheduleJobReturnsNotFoundForUnknownID(t *testing.T) {
	h, e, _ := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/scheduler/jobs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	require.NoError(t, h.GetScheduleJob(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetScheduleJobRejectsMalformedID(t *testing.T) {
	h, e, _ := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/scheduler/jobs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	require.NoError(t, h.GetScheduleJob(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetScheduleJobReturnsStoredStatus(t *testing.T) {
	h, e, repo := newTestHandlers()
	id := uuid.New()
	record := &entity.ScheduleJob{ID: entity.JobID(id), Status: entity.JobStatusCompleted, CreatedAt: entity.Now(), UpdatedAt: entity.Now()}
	require.NoError(t, repo.Create(context.Background(), record))

	req := httptest.NewRequest(http.MethodGet, "/scheduler/jobs/"+id.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(t, h.GetScheduleJob(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"completed"`))
}

func TestCancelScheduleJobCancelsQueuedJobImmediately(t *testing.T) {
	h, e, repo := newTestHandlers()
	id := uuid.New()
	record := &entity.ScheduleJob{ID: entity.JobID(id), Status: entity.JobStatusQueued, CreatedAt: entity.Now(), UpdatedAt: entity.Now()}
	require.NoError(t, repo.Create(context.Background(), record))

	req := httptest.NewRequest(http.MethodPost, "/scheduler/jobs/"+id.String()+"/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(t, h.CancelScheduleJob(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	fetched, err := repo.GetByID(context.Background(), entity.JobID(id))
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCancelled, fetched.Status)
}

func TestCancelScheduleJobRequestsCooperativeCancellationForProcessingJob(t *testing.T) {
	repo := memory.NewJobRepository()
	cancels := job.NewCancelRegistry()
	e := echo.New()
	h := NewHandlers(nil, repo, cancels, entity.Options{})

	id := uuid.New()
	record := &entity.ScheduleJob{ID: entity.JobID(id), Status: entity.JobStatusProcessing, CreatedAt: entity.Now(), UpdatedAt: entity.Now()}
	require.NoError(t, repo.Create(context.Background(), record))

	token := &orchestrator.CancelToken{}
	cancels.Register(entity.JobID(id), token)

	req := httptest.NewRequest(http.MethodPost, "/scheduler/jobs/"+id.String()+"/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(t, h.CancelScheduleJob(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, token.IsCancelled())

	fetched, err := repo.GetByID(context.Background(), entity.JobID(id))
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusProcessing, fetched.Status, "processing jobs stay processing until the worker itself observes cancellation")
}

func TestCreateScheduleJobIntegration(t *testing.T) {
	scheduler, err := job.NewScheduler("localhost:6379")
	if err != nil {
		t.Skip("redis not reachable, skipping scheduler-backed integration test")
	}
	defer scheduler.Close()

	repo := memory.NewJobRepository()
	e := echo.New()
	h := NewHandlers(scheduler, repo, job.NewCancelRegistry(), entity.Options{Solver: "cpsat"})

	body := strings.NewReader(`{"milpInput":{"departmentId":"dept-1"},"solver":"cpsat"}`)
	req := httptest.NewRequest(http.MethodPost, "/scheduler/jobs", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreateScheduleJob(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "jobId")
}
