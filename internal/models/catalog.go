package models

import "time"

// Day is a weekday code used by meeting patterns and busy times.
type Day string

// Weekday vocabulary accepted by the planner.
const (
	DayMonday    Day = "M"
	DayTuesday   Day = "T"
	DayWednesday Day = "W"
	DayThursday  Day = "Th"
	DayFriday    Day = "F"
	DaySaturday  Day = "Sa"
	DaySunday    Day = "Su"
)

// Weekdays lists every Day in calendar order starting on Monday.
var Weekdays = []Day{DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday}

// Valid reports whether d belongs to the weekday vocabulary.
func (d Day) Valid() bool {
	for _, day := range Weekdays {
		if day == d {
			return true
		}
	}
	return false
}

var dayWeekdays = map[Day]time.Weekday{
	DayMonday:    time.Monday,
	DayTuesday:   time.Tuesday,
	DayWednesday: time.Wednesday,
	DayThursday:  time.Thursday,
	DayFriday:    time.Friday,
	DaySaturday:  time.Saturday,
	DaySunday:    time.Sunday,
}

// Weekday maps d onto the standard library weekday. Unknown codes map to Sunday
// with ok=false.
func (d Day) Weekday() (time.Weekday, bool) {
	w, ok := dayWeekdays[d]
	return w, ok
}

// SectionType classifies a section offering.
type SectionType string

const (
	SectionTypeLecture SectionType = "Lecture"
	SectionTypeLab     SectionType = "Lab"
	SectionTypeHonors  SectionType = "Honors"
	SectionTypeSeminar SectionType = "Seminar"
	SectionTypeOnline  SectionType = "Online"
)

// MeetingPattern is one weekly recurring time block of a section.
type MeetingPattern struct {
	Days      []Day  `json:"days" validate:"required,min=1,dive,oneof=M T W Th F Sa Su"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Location  string `json:"location,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// Section is a concrete offering of a course.
type Section struct {
	ID            string           `json:"id" validate:"required"`
	CourseID      string           `json:"courseId" validate:"required"`
	SectionNumber string           `json:"sectionNumber"`
	Instructors   []string         `json:"instructors,omitempty"`
	Meetings      []MeetingPattern `json:"meetings" validate:"required,min=1,dive"`
	Capacity      int              `json:"capacity" validate:"min=0"`
	Enrolled      int              `json:"enrolled" validate:"min=0"`
	Waitlist      int              `json:"waitlist" validate:"min=0"`
	Type          SectionType      `json:"type,omitempty"`
	Credits       int              `json:"credits" validate:"min=0"`
	Locked        bool             `json:"locked,omitempty"`
}

// IsHonors reports whether the section is an honors offering.
func (s Section) IsHonors() bool {
	return s.Type == SectionTypeHonors
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	out.Instructors = append([]string(nil), s.Instructors...)
	out.Meetings = make([]MeetingPattern, len(s.Meetings))
	for i, m := range s.Meetings {
		m.Days = append([]Day(nil), m.Days...)
		out.Meetings[i] = m
	}
	return out
}

// Course is a catalog entry owning its candidate sections.
type Course struct {
	ID            string    `json:"id" db:"id" validate:"required"`
	Code          string    `json:"code" db:"code" validate:"required"`
	Name          string    `json:"name" db:"name"`
	Credits       int       `json:"credits" db:"credits" validate:"min=0"`
	Department    string    `json:"department" db:"department"`
	Prerequisites []string  `json:"prerequisites" db:"-"`
	Sections      []Section `json:"sections" db:"-" validate:"dive"`
}

// FindSection returns the section with the given id, if owned by the course.
func (c Course) FindSection(sectionID string) (Section, bool) {
	for _, section := range c.Sections {
		if section.ID == sectionID {
			return section, true
		}
	}
	return Section{}, false
}

// CourseFilter narrows catalog listings.
type CourseFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
}

// Pagination describes paging metadata in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
