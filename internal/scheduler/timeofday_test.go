package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-planner-api/internal/models"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  TimeOfDay
	}{
		{name: "midnight", input: "00:00", want: 0},
		{name: "morning", input: "09:30", want: 570},
		{name: "last minute", input: "23:59", want: 1439},
		{name: "unpadded hour", input: "9:00", want: InvalidTime},
		{name: "hour out of range", input: "24:00", want: InvalidTime},
		{name: "minute out of range", input: "10:60", want: InvalidTime},
		{name: "missing colon", input: "1000", want: InvalidTime},
		{name: "am suffix", input: "10:00AM", want: InvalidTime},
		{name: "extra field", input: "10:00:00", want: InvalidTime},
		{name: "negative", input: "-1:00", want: InvalidTime},
		{name: "letters", input: "ab:cd", want: InvalidTime},
		{name: "empty", input: "", want: InvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTimeOfDay(tt.input))
		})
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05", TimeOfDay(545).String())
	assert.Equal(t, "invalid", InvalidTime.String())
}

func TestRangesOverlap(t *testing.T) {
	assert.False(t, RangesOverlap("10:00", "12:00", "12:00", "13:00"), "touching ranges do not overlap")
	assert.True(t, RangesOverlap("10:00", "12:00", "11:59", "13:00"))
	assert.True(t, RangesOverlap("09:00", "17:00", "10:00", "11:00"), "containment overlaps")
	assert.False(t, RangesOverlap("08:00", "09:00", "13:00", "14:00"))
}

func TestRangesOverlapInvalidNeverConflicts(t *testing.T) {
	assert.False(t, RangesOverlap("10:00", "12:00", "bad", "13:00"))
	assert.False(t, RangesOverlap("00:00", "23:59", "11:00", "25:00"))
	assert.False(t, RangesOverlap("10:00AM", "12:00", "10:00", "12:00"))
}

func TestDaysOverlap(t *testing.T) {
	assert.True(t, DaysOverlap([]models.Day{models.DayMonday, models.DayWednesday}, []models.Day{models.DayWednesday}))
	assert.False(t, DaysOverlap([]models.Day{models.DayTuesday}, []models.Day{models.DayThursday}))
	assert.False(t, DaysOverlap(nil, []models.Day{models.DayMonday}))
	assert.False(t, DaysOverlap([]models.Day{}, []models.Day{}))
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		input string
		want  []models.Day
	}{
		{input: "MWF", want: []models.Day{models.DayMonday, models.DayWednesday, models.DayFriday}},
		{input: "TTh", want: []models.Day{models.DayTuesday, models.DayThursday}},
		{input: "TuTh", want: []models.Day{models.DayTuesday, models.DayThursday}},
		{input: "SaSu", want: []models.Day{models.DaySaturday, models.DaySunday}},
		{input: "TR", want: []models.Day{models.DayTuesday, models.DayThursday}},
		{input: "W, M", want: []models.Day{models.DayMonday, models.DayWednesday}},
		{input: "Monday/Thursday", want: []models.Day{models.DayMonday, models.DayThursday}},
		{input: "MM", want: []models.Day{models.DayMonday}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDays(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	empty, err := ParseDays("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseDays("MXF")
	assert.Error(t, err)
}
