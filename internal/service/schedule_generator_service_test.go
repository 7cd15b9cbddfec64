package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-planner-api/internal/dto"
	"github.com/noah-isme/course-planner-api/internal/models"
	"github.com/noah-isme/course-planner-api/internal/scheduler"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
)

type generationCacheStub struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
	sets    int
}

func newGenerationCacheStub() *generationCacheStub {
	return &generationCacheStub{entries: make(map[string][]byte)}
}

func (c *generationCacheStub) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(payload, dest)
}

func (c *generationCacheStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
	c.sets++
	return nil
}

type generationMetricsStub struct {
	statuses []string
}

func (m *generationMetricsStub) ObserveGeneration(status string, _ time.Duration, _, _ int) {
	m.statuses = append(m.statuses, status)
}

type generatorFixture struct {
	svc     *ScheduleGeneratorService
	planner *PlannerService
	metrics *generationMetricsStub
	cache   *generationCacheStub
}

func newGeneratorFixture(t *testing.T, cfg ScheduleGeneratorConfig, withCache bool) generatorFixture {
	t.Helper()
	catalog := loadedCatalog(t)
	planner := NewPlannerService(catalog, nil, nil)
	metrics := &generationMetricsStub{}
	fx := generatorFixture{planner: planner, metrics: metrics}
	var cache generationCache
	if withCache {
		fx.cache = newGenerationCacheStub()
		cache = fx.cache
	}
	fx.svc = NewScheduleGeneratorService(catalog, planner, cache, metrics, nil, zap.NewNop(), cfg)
	return fx
}

func TestScheduleGeneratorServiceGenerate(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)

	resp, err := fx.svc.Generate(context.Background(), dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101", "MATH201"}})
	require.NoError(t, err)
	assert.Equal(t, string(scheduler.StatusOK), resp.Status)
	assert.Len(t, resp.Schedules, 5)
	assert.Empty(t, resp.UnscheduledCourseCodes)
	assert.NotNil(t, resp.DroppedCourseCodes)
	assert.False(t, resp.PreferencesEnforced)
	assert.False(t, resp.Cached)
	assert.Equal(t, "generated 5 schedules", resp.Message)

	for _, schedule := range resp.Schedules {
		assert.Equal(t, 7, schedule.TotalCredits)
		assert.Equal(t, "fall-2024", schedule.TermID)
	}
	assert.Len(t, fx.planner.ListSchedules(context.Background()), 5)
	assert.Equal(t, []string{"OK"}, fx.metrics.statuses)
	assert.False(t, fx.svc.InProgress())
}

func TestScheduleGeneratorServiceFilters(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)
	ctx := context.Background()

	resp, err := fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101", "MATH201"}, ExcludeHonors: true})
	require.NoError(t, err)
	assert.Len(t, resp.Schedules, 3)

	resp, err = fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{
		CourseIDs:      []string{"CS101", "MATH201"},
		SectionFilters: map[string][]string{"CS101": {"CS101-01"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Schedules, 1)
	assert.Equal(t, "CS101-01", resp.Schedules[0].Sections[0].ID)
	assert.Equal(t, "MATH201-02", resp.Schedules[0].Sections[1].ID)

	resp, err = fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{
		CourseIDs:      []string{"CS101"},
		SectionFilters: map[string][]string{"CS101": {"CS101-H1"}},
		ExcludeHonors:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(scheduler.StatusNoCandidatesAfterFiltering), resp.Status)
	assert.Equal(t, []string{"CS 101"}, resp.DroppedCourseCodes)
}

func TestScheduleGeneratorServiceRejectsBadSelections(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)
	ctx := context.Background()

	cases := map[string]dto.GenerateSchedulesRequest{
		"unknown course":     {CourseIDs: []string{"BIO100"}},
		"filter unselected":  {CourseIDs: []string{"CS101"}, SectionFilters: map[string][]string{"MATH201": {"MATH201-01"}}},
		"foreign section":    {CourseIDs: []string{"CS101"}, SectionFilters: map[string][]string{"CS101": {"MATH201-01"}}},
		"max results bounds": {CourseIDs: []string{"CS101"}, MaxResults: 501},
		"blank course id":    {CourseIDs: []string{""}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.svc.Generate(ctx, req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
		})
	}
}

func TestScheduleGeneratorServiceNoCourses(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)
	resp, err := fx.svc.Generate(context.Background(), dto.GenerateSchedulesRequest{})
	require.NoError(t, err)
	assert.Equal(t, string(scheduler.StatusNoCoursesSelected), resp.Status)
	assert.NotNil(t, resp.Schedules)
	assert.Empty(t, resp.Schedules)
}

func TestScheduleGeneratorServiceFailedRunKeepsPreviousBatch(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)
	ctx := context.Background()

	_, err := fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101", "MATH201"}})
	require.NoError(t, err)
	before := fx.planner.ListSchedules(ctx)

	_, err = fx.planner.CreateBusyTime(ctx, dto.BusyTimeRequest{Title: "Lab job", Days: []string{"MWF"}, StartTime: "08:30", EndTime: "11:00"})
	require.NoError(t, err)

	resp, err := fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101", "MATH201"}})
	require.NoError(t, err)
	assert.Equal(t, string(scheduler.StatusNoValidCombinationFound), resp.Status)
	assert.Equal(t, []string{"CS 101", "MATH 201"}, resp.UnscheduledCourseCodes)
	assert.Equal(t, before, fx.planner.ListSchedules(ctx))
}

func TestScheduleGeneratorServicePreferenceToggle(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)
	ctx := context.Background()
	_, err := fx.planner.UpdatePreferences(ctx, models.SchedulePreferences{AvoidFriday: true})
	require.NoError(t, err)

	resp, err := fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101"}})
	require.NoError(t, err)
	assert.Len(t, resp.Schedules, 3)
	assert.False(t, resp.PreferencesEnforced)

	enforce := true
	resp, err = fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101"}, EnforcePreferences: &enforce})
	require.NoError(t, err)
	require.Len(t, resp.Schedules, 1)
	assert.Equal(t, "CS101-02", resp.Schedules[0].Sections[0].ID)
	assert.True(t, resp.PreferencesEnforced)
}

func TestScheduleGeneratorServiceRejectsConcurrentRun(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)
	fx.svc.running.Store(true)

	_, err := fx.svc.Generate(context.Background(), dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(err))
	assert.True(t, fx.svc.InProgress())
}

func TestScheduleGeneratorServiceCachesResults(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{CacheTTL: time.Minute}, true)
	ctx := context.Background()
	req := dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101", "MATH201"}}

	first, err := fx.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, fx.cache.sets)

	fx.planner.ReplaceGenerated(nil)
	second, err := fx.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, fx.cache.hits)
	assert.Len(t, second.Schedules, len(first.Schedules))
	assert.Len(t, fx.planner.ListSchedules(ctx), 5)
	assert.Len(t, fx.metrics.statuses, 1)

	_, err = fx.planner.CreateBusyTime(ctx, dto.BusyTimeRequest{Title: "Gym", Days: []string{"Sa"}, StartTime: "08:00", EndTime: "09:00"})
	require.NoError(t, err)
	third, err := fx.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, fx.cache.sets)
}

func TestScheduleGeneratorServiceSkipsCachingTruncatedRuns(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{MaxNodes: 1}, true)
	resp, err := fx.svc.Generate(context.Background(), dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101", "MATH201"}})
	require.NoError(t, err)
	assert.True(t, resp.Truncated)
	assert.Equal(t, 0, fx.cache.sets)
}

func TestScheduleGeneratorServiceMapsDeadline(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101", "MATH201"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTimeout.Code, errCode(err))
	assert.Equal(t, "schedule generation timed out", appErrors.FromError(err).Message)
	assert.Equal(t, []string{"TIMEOUT"}, fx.metrics.statuses)
	assert.False(t, fx.svc.InProgress())
}

func TestScheduleGeneratorServiceMapsCancellation(t *testing.T) {
	fx := newGeneratorFixture(t, ScheduleGeneratorConfig{}, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.svc.Generate(ctx, dto.GenerateSchedulesRequest{CourseIDs: []string{"CS101"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTimeout.Code, errCode(err))
	assert.Equal(t, "schedule generation cancelled", appErrors.FromError(err).Message)
}

func TestCacheKeyIsStable(t *testing.T) {
	a, err := CacheKey("generation", map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	b, err := CacheKey("generation", map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, len("generation:")+64)

	c, err := CacheKey("generation", map[string]int{"a": 2})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
