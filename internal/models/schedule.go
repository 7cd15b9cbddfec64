package models

import "time"

// GeneratedSchedulePrefix marks schedules produced by the generator.
const GeneratedSchedulePrefix = "generated-"

// Conflict dimensions reported by cart validation.
const (
	ConflictDimensionSection  = "SECTION"
	ConflictDimensionBusyTime = "BUSY_TIME"
)

// Schedule is a generated or user-curated timetable.
type Schedule struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	TermID       string             `json:"termId"`
	Sections     []Section          `json:"sections"`
	BusyTimes    []BusyTime         `json:"busyTimes"`
	TotalCredits int                `json:"totalCredits"`
	Conflicts    []ScheduleConflict `json:"conflicts"`
	Score        float64            `json:"score"`
	GeneratedAt  time.Time          `json:"generatedAt"`
}

// Clone returns a deep copy so later edits never leak between owners.
func (s Schedule) Clone() Schedule {
	out := s
	out.Sections = make([]Section, len(s.Sections))
	for i, section := range s.Sections {
		out.Sections[i] = section.Clone()
	}
	out.BusyTimes = CloneBusyTimes(s.BusyTimes)
	out.Conflicts = append([]ScheduleConflict{}, s.Conflicts...)
	return out
}

// SectionForCourse returns the index of the section belonging to courseID, or -1.
func (s Schedule) SectionForCourse(courseID string) int {
	for i, section := range s.Sections {
		if section.CourseID == courseID {
			return i
		}
	}
	return -1
}

// ScheduleConflict describes one overlapping pair found by validation.
type ScheduleConflict struct {
	Dimension  string `json:"dimension"`
	SectionID  string `json:"sectionId"`
	OtherID    string `json:"otherId"`
	OtherTitle string `json:"otherTitle,omitempty"`
	Day        Day    `json:"day,omitempty"`
	Message    string `json:"message"`
}

// Cart issue kinds.
const (
	CartIssueConflict     = "CONFLICT"
	CartIssuePrerequisite = "PREREQUISITE"
	CartIssueCapacity     = "CAPACITY"
)

// CartIssue is a finding produced by cart validation.
type CartIssue struct {
	Kind       string   `json:"kind"`
	CourseCode string   `json:"courseCode,omitempty"`
	SectionID  string   `json:"sectionId,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Blocking   bool     `json:"blocking"`
	Message    string   `json:"message"`
}

// ShoppingCart holds one schedule snapshot set aside for registration.
type ShoppingCart struct {
	Schedule     *Schedule   `json:"schedule"`
	AddedAt      time.Time   `json:"addedAt"`
	ValidatedAt  *time.Time  `json:"validatedAt,omitempty"`
	Issues       []CartIssue `json:"issues"`
	Registered   bool        `json:"registered"`
	Confirmation string      `json:"confirmation,omitempty"`
}
