package scheduler

import (
	"github.com/noah-isme/course-planner-api/internal/models"
)

// PreferenceMode selects whether preferences prune the search.
type PreferenceMode string

const (
	// PreferenceModeIgnore leaves preferences out of the search entirely.
	PreferenceModeIgnore PreferenceMode = "ignore"
	// PreferenceModeEnforce prunes candidates that violate preferences and
	// orders results by day-distribution score.
	PreferenceModeEnforce PreferenceMode = "enforce"
)

const (
	noonMinutes      TimeOfDay = 12 * 60
	eveningMinutes   TimeOfDay = 17 * 60
	backToBackMargin TimeOfDay = 10
)

// SectionMatchesPreferences checks the per-section predicates: time of day
// and avoid-Friday. Meetings with unparseable times are not judged.
func SectionMatchesPreferences(section models.Section, prefs models.SchedulePreferences) bool {
	for _, meeting := range section.Meetings {
		if prefs.AvoidFriday && containsDay(meeting.Days, models.DayFriday) {
			return false
		}
		start := ParseTimeOfDay(meeting.StartTime)
		if !start.Valid() {
			continue
		}
		switch prefs.TimeOfDay {
		case models.TimeOfDayMorning:
			if start >= noonMinutes {
				return false
			}
		case models.TimeOfDayAfternoon:
			if start < noonMinutes || start >= eveningMinutes {
				return false
			}
		case models.TimeOfDayEvening:
			if start < eveningMinutes {
				return false
			}
		}
	}
	return true
}

// BackToBack reports whether the section has a meeting that starts or ends
// within a few minutes of a meeting of any chosen section on a shared day.
func BackToBack(section models.Section, chosen []models.Section) bool {
	for _, other := range chosen {
		if other.ID == section.ID {
			continue
		}
		for _, a := range section.Meetings {
			for _, b := range other.Meetings {
				if DaysOverlap(a.Days, b.Days) && adjacent(a, b) {
					return true
				}
			}
		}
	}
	return false
}

func adjacent(a, b models.MeetingPattern) bool {
	startA, endA := ParseTimeOfDay(a.StartTime), ParseTimeOfDay(a.EndTime)
	startB, endB := ParseTimeOfDay(b.StartTime), ParseTimeOfDay(b.EndTime)
	if !startA.Valid() || !endA.Valid() || !startB.Valid() || !endB.Valid() {
		return false
	}
	gapAfterA := startB - endA
	gapAfterB := startA - endB
	return (gapAfterA >= 0 && gapAfterA < backToBackMargin) || (gapAfterB >= 0 && gapAfterB < backToBackMargin)
}

// ScoreSchedule rates how well sections follow the day distribution
// preference on a 0-100 scale. "none" always scores 0.
func ScoreSchedule(sections []models.Section, distribution models.DayDistribution) float64 {
	used := make(map[models.Day]bool)
	for _, section := range sections {
		for _, meeting := range section.Meetings {
			for _, day := range meeting.Days {
				used[day] = true
			}
		}
	}
	total := float64(len(models.Weekdays))
	switch distribution {
	case models.DayDistributionSpread:
		return float64(len(used)) / total * 100
	case models.DayDistributionCompact:
		return (total - float64(len(used))) / total * 100
	default:
		return 0
	}
}

func (s *search) satisfiesPreferences(candidate models.Section) bool {
	if s.in.PreferenceMode != PreferenceModeEnforce {
		return true
	}
	if !SectionMatchesPreferences(candidate, s.in.Preferences) {
		return false
	}
	if s.in.Preferences.AvoidBackToBack && BackToBack(candidate, s.path) {
		return false
	}
	return true
}
