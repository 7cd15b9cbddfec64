package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-planner-api/internal/models"
)

func meeting(days string, start, end string) models.MeetingPattern {
	parsed, err := ParseDays(days)
	if err != nil {
		panic(err)
	}
	return models.MeetingPattern{Days: parsed, StartTime: start, EndTime: end, Location: "Hall"}
}

func section(courseID, suffix string, meetings ...models.MeetingPattern) models.Section {
	return models.Section{
		ID:            courseID + "-" + suffix,
		CourseID:      courseID,
		SectionNumber: suffix,
		Meetings:      meetings,
		Type:          models.SectionTypeLecture,
		Credits:       3,
	}
}

func busy(id string, days string, start, end string) models.BusyTime {
	m := meeting(days, start, end)
	return models.BusyTime{ID: id, Title: "Job " + id, Type: models.BusyTimeWork, Days: m.Days, StartTime: start, EndTime: end}
}

func TestMeetingsConflictSymmetric(t *testing.T) {
	meetings := []models.MeetingPattern{
		meeting("MW", "09:00", "10:15"),
		meeting("MW", "10:15", "11:30"),
		meeting("W", "10:00", "10:30"),
		meeting("TTh", "09:00", "10:15"),
		meeting("F", "bad", "10:00"),
		{StartTime: "09:00", EndTime: "12:00"},
	}
	for _, a := range meetings {
		for _, b := range meetings {
			assert.Equal(t, MeetingsConflict(a, b), MeetingsConflict(b, a))
		}
	}
}

func TestMeetingsConflict(t *testing.T) {
	assert.True(t, MeetingsConflict(meeting("MW", "09:00", "10:15"), meeting("W", "10:00", "10:30")))
	assert.False(t, MeetingsConflict(meeting("MW", "09:00", "10:15"), meeting("MW", "10:15", "11:30")), "touching boundary")
	assert.False(t, MeetingsConflict(meeting("MW", "09:00", "10:15"), meeting("TTh", "09:00", "10:15")), "different days")
	assert.False(t, MeetingsConflict(meeting("MW", "09:00", "10:15"), meeting("MW", "9:00", "10:15")), "malformed time is inert")
	assert.False(t, MeetingsConflict(models.MeetingPattern{StartTime: "09:00", EndTime: "10:00"}, meeting("M", "09:00", "10:00")), "empty days are inert")
}

func TestSectionConflictsWithSectionsExcludesSelf(t *testing.T) {
	s := section("CS101", "01", meeting("MWF", "09:00", "10:00"))
	assert.False(t, SectionConflictsWithSections(s, []models.Section{s}))

	other := section("MATH201", "01", meeting("F", "09:30", "10:30"))
	assert.True(t, SectionConflictsWithSections(s, []models.Section{s, other}))
}

func TestSectionConflictsAcrossLectureAndLab(t *testing.T) {
	chem := section("CHEM110", "01", meeting("MW", "09:00", "10:00"), meeting("Th", "14:00", "17:00"))
	art := section("ART100", "01", meeting("Th", "16:00", "17:00"))
	assert.True(t, SectionConflictsWithSections(chem, []models.Section{art}))
	assert.True(t, SectionConflictsWithSections(art, []models.Section{chem}))
}

func TestSectionConflictsWithBusyTimes(t *testing.T) {
	s := section("CS101", "01", meeting("MW", "09:00", "10:15"))
	assert.True(t, SectionConflictsWithBusyTimes(s, []models.BusyTime{busy("b1", "W", "10:00", "12:00")}))
	assert.False(t, SectionConflictsWithBusyTimes(s, []models.BusyTime{busy("b2", "W", "10:15", "12:00")}))
	assert.False(t, SectionConflictsWithBusyTimes(s, nil))
}

func TestFindConflicts(t *testing.T) {
	a := section("CS101", "01", meeting("MW", "09:00", "10:15"))
	b := section("MATH201", "02", meeting("W", "10:00", "11:00"))
	c := section("HIST100", "01", meeting("TTh", "13:00", "14:15"))
	job := busy("b1", "Th", "14:00", "18:00")

	conflicts := FindConflicts([]models.Section{a, b, c}, []models.BusyTime{job})
	require.Len(t, conflicts, 2)

	assert.Equal(t, models.ConflictDimensionSection, conflicts[0].Dimension)
	assert.Equal(t, "CS101-01", conflicts[0].SectionID)
	assert.Equal(t, "MATH201-02", conflicts[0].OtherID)
	assert.Equal(t, models.DayWednesday, conflicts[0].Day)

	assert.Equal(t, models.ConflictDimensionBusyTime, conflicts[1].Dimension)
	assert.Equal(t, "HIST100-01", conflicts[1].SectionID)
	assert.Equal(t, "b1", conflicts[1].OtherID)
	assert.Equal(t, models.DayThursday, conflicts[1].Day)
}

func TestFindConflictsCleanSchedule(t *testing.T) {
	a := section("CS101", "01", meeting("MW", "09:00", "10:15"))
	b := section("MATH201", "01", meeting("MW", "10:15", "11:30"))
	conflicts := FindConflicts([]models.Section{a, b}, nil)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}

func TestConflictMemoMatchesDirectCheck(t *testing.T) {
	a := section("CS101", "01", meeting("MW", "09:00", "10:15"))
	b := section("MATH201", "01", meeting("W", "10:00", "11:00"))
	c := section("HIST100", "01", meeting("TTh", "09:00", "10:00"))
	memo := newConflictMemo([]models.BusyTime{busy("b1", "T", "09:30", "10:30")})

	for i := 0; i < 2; i++ {
		assert.True(t, memo.clashesWithAny(b, []models.Section{a}))
		assert.True(t, memo.clashesWithAny(a, []models.Section{b}))
		assert.False(t, memo.clashesWithAny(c, []models.Section{a, b}))
		assert.True(t, memo.hitsBusyTime(c))
		assert.False(t, memo.hitsBusyTime(a))
	}
}
