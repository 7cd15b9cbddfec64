package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-planner-api/internal/models"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
)

type catalogSourceStub struct {
	records []models.CourseRecord
	err     error
	pingErr error
	calls   int
	termID  string
}

func (s *catalogSourceStub) LoadCourses(_ context.Context, termID string) ([]models.CourseRecord, error) {
	s.calls++
	s.termID = termID
	return s.records, s.err
}

func (s *catalogSourceStub) Ping(context.Context) error {
	return s.pingErr
}

func meetingRecord(days, start, end string) models.MeetingRecord {
	return models.MeetingRecord{Days: days, StartTime: start, EndTime: end, Location: "Hall"}
}

// catalogRecords is a small fall catalog:
//
//	CS101-01   MWF 09:00-09:50
//	CS101-02   TTh 10:00-11:15
//	CS101-H1   MWF 13:00-13:50 (honors)
//	MATH101-01 TTh 08:00-09:15
//	MATH201-01 MWF 09:00-09:50 (full)
//	MATH201-02 MWF 10:00-10:50
func catalogRecords() []models.CourseRecord {
	return []models.CourseRecord{
		{
			ID: "CS101", Code: "CS 101", Name: "Intro to Programming", Credits: 4, Department: "CS",
			Sections: []models.SectionRecord{
				{ID: "CS101-01", Capacity: 30, Enrolled: 10, Meetings: []models.MeetingRecord{meetingRecord("MWF", "09:00", "09:50")}},
				{SectionNumber: "02", Capacity: 30, Meetings: []models.MeetingRecord{meetingRecord("TTh", "10:00", "11:15")}},
				{ID: "CS101-H1", Type: "Honors", Meetings: []models.MeetingRecord{meetingRecord("MWF", "13:00", "13:50")}},
				{ID: "CS101-99", Meetings: []models.MeetingRecord{meetingRecord("MWF", "9:00", "09:50")}},
				{ID: "CS101-98", Meetings: []models.MeetingRecord{meetingRecord("MQ", "09:00", "09:50")}},
				{ID: "OTHER-01", Meetings: []models.MeetingRecord{meetingRecord("M", "09:00", "09:50")}},
			},
		},
		{
			ID: "MATH101", Code: "MATH 101", Name: "Precalculus", Credits: 3, Department: "MATH",
			Sections: []models.SectionRecord{
				{ID: "MATH101-01", Instructors: []string{"Noether"}, Meetings: []models.MeetingRecord{meetingRecord("TTh", "08:00", "09:15")}},
			},
		},
		{
			ID: "MATH201", Code: "MATH 201", Name: "Calculus I", Credits: 3, Department: "MATH",
			Prerequisites: []string{"MATH101"},
			Sections: []models.SectionRecord{
				{ID: "MATH201-01", Capacity: 25, Enrolled: 25, Waitlist: 3, Meetings: []models.MeetingRecord{meetingRecord("MWF", "09:00", "09:50")}},
				{ID: "MATH201-02", Capacity: 25, Meetings: []models.MeetingRecord{meetingRecord("M, W, F", "10:00", "10:50")}},
			},
		},
		{ID: "MATH101", Code: "MATH 101 dup", Credits: 3},
		{ID: "", Code: "", Name: "nameless"},
	}
}

func loadedCatalog(t *testing.T) *CatalogService {
	t.Helper()
	svc := NewCatalogService(&catalogSourceStub{records: catalogRecords()}, "fall-2024", nil, zap.NewNop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	return svc
}

func TestCatalogServiceLoadRejectsBadRecords(t *testing.T) {
	source := &catalogSourceStub{records: catalogRecords()}
	svc := NewCatalogService(source, "fall-2024", nil, nil)

	report, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fall-2024", source.termID)
	assert.Equal(t, 3, report.Courses)
	assert.Equal(t, 6, report.Sections)

	reasons := map[string]string{}
	for _, rejection := range report.Rejected {
		reasons[rejection.CourseID+"/"+rejection.SectionID] = rejection.Reason
	}
	assert.Len(t, report.Rejected, 5)
	assert.Contains(t, reasons, "CS101/CS101-99")
	assert.Contains(t, reasons, "CS101/CS101-98")
	assert.Contains(t, reasons, "CS101/OTHER-01")
	assert.Equal(t, "duplicate course id", reasons["MATH101/"])
	assert.Contains(t, reasons, "/")
}

func TestCatalogServiceNormalisesSections(t *testing.T) {
	svc := loadedCatalog(t)

	course, section, ok := svc.Section("CS101-02")
	require.True(t, ok)
	assert.Equal(t, "CS101", course.ID)
	assert.Equal(t, "02", section.SectionNumber)
	assert.Equal(t, models.SectionTypeLecture, section.Type)
	assert.Equal(t, 4, section.Credits)
	assert.Equal(t, []models.Day{models.DayTuesday, models.DayThursday}, section.Meetings[0].Days)

	_, honors, ok := svc.Section("CS101-H1")
	require.True(t, ok)
	assert.True(t, honors.IsHonors())

	_, spaced, ok := svc.Section("MATH201-02")
	require.True(t, ok)
	assert.Equal(t, []models.Day{models.DayMonday, models.DayWednesday, models.DayFriday}, spaced.Meetings[0].Days)

	_, _, ok = svc.Section("CS101-99")
	assert.False(t, ok)
}

func TestCatalogServiceReturnsCopies(t *testing.T) {
	svc := loadedCatalog(t)

	course, ok := svc.Course("CS101")
	require.True(t, ok)
	course.Sections[0].Meetings[0].Days[0] = models.DaySunday
	course.Prerequisites = append(course.Prerequisites, "X")

	again, _ := svc.Course("CS101")
	assert.Equal(t, models.DayMonday, again.Sections[0].Meetings[0].Days[0])
	assert.Empty(t, again.Prerequisites)
}

func TestCatalogServiceList(t *testing.T) {
	svc := loadedCatalog(t)
	ctx := context.Background()

	all, page, err := svc.List(ctx, models.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, []string{"CS 101", "MATH 101", "MATH 201"}, []string{all[0].Code, all[1].Code, all[2].Code})

	math, page, err := svc.List(ctx, models.CourseFilter{Department: "math", PageSize: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, math, 1)
	assert.Equal(t, "MATH201", math[0].ID)

	found, _, err := svc.List(ctx, models.CourseFilter{Search: "calculus"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "MATH201", found[0].ID)

	empty, _, err := svc.List(ctx, models.CourseFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCatalogServiceGet(t *testing.T) {
	svc := loadedCatalog(t)

	course, err := svc.Get(context.Background(), "MATH201")
	require.NoError(t, err)
	assert.Equal(t, []string{"MATH101"}, course.Prerequisites)

	_, err = svc.Get(context.Background(), "BIO100")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceEnsureLoadedOnce(t *testing.T) {
	source := &catalogSourceStub{records: catalogRecords()}
	svc := NewCatalogService(source, "", nil, nil)
	ctx := context.Background()

	require.Error(t, svc.Ready(ctx))
	require.NoError(t, svc.EnsureLoaded(ctx))
	require.NoError(t, svc.EnsureLoaded(ctx))
	assert.Equal(t, 1, source.calls)
	require.NoError(t, svc.Ready(ctx))

	source.pingErr = errors.New("connection refused")
	assert.Error(t, svc.Ready(ctx))
}

func TestCatalogServiceLoadFailure(t *testing.T) {
	svc := NewCatalogService(&catalogSourceStub{err: errors.New("db down")}, "", nil, nil)
	_, err := svc.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), models.CourseFilter{})
	require.Error(t, err)
}

type invalidatorStub struct {
	patterns []string
}

func (s *invalidatorStub) Invalidate(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func TestCatalogServiceReloadInvalidatesGenerationCache(t *testing.T) {
	source := &catalogSourceStub{records: catalogRecords()}
	svc := NewCatalogService(source, "fall-2024", nil, nil)
	cache := &invalidatorStub{}
	svc.SetCacheInvalidator(cache)
	ctx := context.Background()

	_, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cache.patterns)

	source.records = catalogRecords()[:1]
	report, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Courses)
	assert.Equal(t, []string{"generation:*"}, cache.patterns)

	source.err = errors.New("db down")
	_, err = svc.Reload(ctx)
	require.Error(t, err)
	assert.Len(t, cache.patterns, 1)
	_, ok := svc.Course("CS101")
	assert.True(t, ok)
}
