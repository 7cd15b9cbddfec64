package models

import "github.com/lib/pq"

// CourseRecord is a catalog course as stored by a catalog source, before
// meeting strings are parsed and validated.
type CourseRecord struct {
	ID            string          `json:"id" db:"id"`
	Code          string          `json:"code" db:"code"`
	Name          string          `json:"name" db:"name"`
	Credits       int             `json:"credits" db:"credits"`
	Department    string          `json:"department" db:"department"`
	TermID        string          `json:"termId" db:"term_id"`
	Prerequisites []string        `json:"prerequisites" db:"-"`
	Sections      []SectionRecord `json:"sections" db:"-"`
}

// SectionRecord is the raw form of a section offering.
type SectionRecord struct {
	ID            string          `json:"id" db:"id"`
	CourseID      string          `json:"courseId" db:"course_id"`
	SectionNumber string          `json:"sectionNumber" db:"section_number"`
	Instructors   pq.StringArray  `json:"instructors" db:"instructors"`
	Capacity      int             `json:"capacity" db:"capacity"`
	Enrolled      int             `json:"enrolled" db:"enrolled"`
	Waitlist      int             `json:"waitlist" db:"waitlist"`
	Type          string          `json:"type" db:"section_type"`
	Credits       int             `json:"credits" db:"credits"`
	Locked        bool            `json:"locked" db:"locked"`
	Meetings      []MeetingRecord `json:"meetings" db:"-"`
}

// MeetingRecord keeps days in the compact catalog notation, e.g. "MWF".
type MeetingRecord struct {
	SectionID string `json:"-" db:"section_id"`
	Days      string `json:"days" db:"days"`
	StartTime string `json:"startTime" db:"start_time"`
	EndTime   string `json:"endTime" db:"end_time"`
	Location  string `json:"location" db:"location"`
	Kind      string `json:"kind" db:"kind"`
}
