package scheduler

import (
	"fmt"

	"github.com/noah-isme/course-planner-api/internal/models"
)

// MeetingsConflict reports whether two meeting patterns share a day and
// overlapping minutes. Meetings with no days or bad times are inert.
func MeetingsConflict(m1, m2 models.MeetingPattern) bool {
	if len(m1.Days) == 0 || len(m2.Days) == 0 {
		return false
	}
	return DaysOverlap(m1.Days, m2.Days) && RangesOverlap(m1.StartTime, m1.EndTime, m2.StartTime, m2.EndTime)
}

// BusyTimeMeeting views a busy time as a single meeting pattern.
func BusyTimeMeeting(busy models.BusyTime) models.MeetingPattern {
	return models.MeetingPattern{
		Days:      busy.Days,
		StartTime: busy.StartTime,
		EndTime:   busy.EndTime,
		Location:  busy.Title,
	}
}

// SectionConflictsWithBusyTimes reports whether any meeting of the section
// collides with any busy time.
func SectionConflictsWithBusyTimes(section models.Section, busyTimes []models.BusyTime) bool {
	for _, busy := range busyTimes {
		block := BusyTimeMeeting(busy)
		for _, meeting := range section.Meetings {
			if MeetingsConflict(meeting, block) {
				return true
			}
		}
	}
	return false
}

// SectionConflictsWithSections reports whether the section collides with any
// other section in the list. Entries sharing the section's id are skipped.
func SectionConflictsWithSections(section models.Section, others []models.Section) bool {
	for _, other := range others {
		if other.ID == section.ID {
			continue
		}
		if sectionsOverlap(section, other) {
			return true
		}
	}
	return false
}

func sectionsOverlap(a, b models.Section) bool {
	_, _, ok := firstMeetingClash(a.Meetings, b.Meetings)
	return ok
}

func firstMeetingClash(a, b []models.MeetingPattern) (models.MeetingPattern, models.MeetingPattern, bool) {
	for _, left := range a {
		for _, right := range b {
			if MeetingsConflict(left, right) {
				return left, right, true
			}
		}
	}
	return models.MeetingPattern{}, models.MeetingPattern{}, false
}

// FindConflicts audits a finished set of sections and lists every clashing
// section pair and every section/busy time clash.
func FindConflicts(sections []models.Section, busyTimes []models.BusyTime) []models.ScheduleConflict {
	conflicts := make([]models.ScheduleConflict, 0)
	for i := range sections {
		for j := i + 1; j < len(sections); j++ {
			a, b := sections[i], sections[j]
			if a.ID == b.ID {
				continue
			}
			left, right, ok := firstMeetingClash(a.Meetings, b.Meetings)
			if !ok {
				continue
			}
			day := firstSharedDay(left.Days, right.Days)
			conflicts = append(conflicts, models.ScheduleConflict{
				Dimension: models.ConflictDimensionSection,
				SectionID: a.ID,
				OtherID:   b.ID,
				Day:       day,
				Message: fmt.Sprintf("%s (%s-%s) overlaps %s (%s-%s) on %s",
					a.ID, left.StartTime, left.EndTime, b.ID, right.StartTime, right.EndTime, day),
			})
		}
	}
	for _, section := range sections {
		for _, busy := range busyTimes {
			block := BusyTimeMeeting(busy)
			left, _, ok := firstMeetingClash(section.Meetings, []models.MeetingPattern{block})
			if !ok {
				continue
			}
			day := firstSharedDay(left.Days, block.Days)
			conflicts = append(conflicts, models.ScheduleConflict{
				Dimension:  models.ConflictDimensionBusyTime,
				SectionID:  section.ID,
				OtherID:    busy.ID,
				OtherTitle: busy.Title,
				Day:        day,
				Message: fmt.Sprintf("%s (%s-%s) overlaps busy time %q on %s",
					section.ID, left.StartTime, left.EndTime, busy.Title, day),
			})
		}
	}
	return conflicts
}

// conflictMemo caches pairwise section results for one search run; the same
// pairs recur across many branches.
type conflictMemo struct {
	busyTimes []models.BusyTime
	pairs     map[[2]string]bool
	busy      map[string]bool
}

func newConflictMemo(busyTimes []models.BusyTime) *conflictMemo {
	return &conflictMemo{
		busyTimes: busyTimes,
		pairs:     make(map[[2]string]bool),
		busy:      make(map[string]bool),
	}
}

func (m *conflictMemo) hitsBusyTime(section models.Section) bool {
	if v, ok := m.busy[section.ID]; ok {
		return v
	}
	v := SectionConflictsWithBusyTimes(section, m.busyTimes)
	m.busy[section.ID] = v
	return v
}

func (m *conflictMemo) clashesWithAny(section models.Section, chosen []models.Section) bool {
	for _, other := range chosen {
		if other.ID == section.ID {
			continue
		}
		key := [2]string{section.ID, other.ID}
		if other.ID < section.ID {
			key = [2]string{other.ID, section.ID}
		}
		v, ok := m.pairs[key]
		if !ok {
			v = sectionsOverlap(section, other)
			m.pairs[key] = v
		}
		if v {
			return true
		}
	}
	return false
}
