package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/course-planner-api/internal/models"
)

// Status summarises the outcome of a generation run.
type Status string

const (
	StatusOK                         Status = "OK"
	StatusNoCoursesSelected          Status = "NO_COURSES_SELECTED"
	StatusNoCandidatesAfterFiltering Status = "NO_CANDIDATES_AFTER_FILTERING"
	StatusNoValidCombinationFound    Status = "NO_VALID_COMBINATION_FOUND"
	StatusSearchTruncated            Status = "SEARCH_TRUNCATED"
)

var (
	// ErrInvalidSection marks a section that cannot take part in a search,
	// which means the catalog boundary let a malformed record through.
	ErrInvalidSection = errors.New("scheduler: invalid section")
	// ErrInvalidMaxResults is returned when the result cap is not positive.
	ErrInvalidMaxResults = errors.New("scheduler: maxResults must be positive")
)

// CourseCandidates is one course to place together with the sections the
// student allows for it, in catalog order.
type CourseCandidates struct {
	CourseID string
	Code     string
	Credits  int
	Sections []models.Section
}

// GenerateInput is a snapshot of everything one search needs.
type GenerateInput struct {
	Courses        []CourseCandidates
	BusyTimes      []models.BusyTime
	MaxResults     int
	Preferences    models.SchedulePreferences
	PreferenceMode PreferenceMode
	// MaxNodes caps candidate evaluations; zero means unlimited.
	MaxNodes int
	TermID   string
	NewID    func() string
	Now      func() time.Time
}

// GenerateResult carries the schedules found and the informational signals
// describing courses that could not be placed.
type GenerateResult struct {
	Status                 Status
	Schedules              []models.Schedule
	UnscheduledCourseCodes []string
	DroppedCourseCodes     []string
	NodesVisited           int
	Truncated              bool
}

// Generate enumerates conflict-free section combinations, one section per
// course, by depth-first backtracking in input order. It stops once
// MaxResults schedules exist, when MaxNodes is exhausted, or when ctx ends.
func Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	if in.MaxResults <= 0 {
		return nil, ErrInvalidMaxResults
	}
	if in.NewID == nil {
		in.NewID = func() string { return models.GeneratedSchedulePrefix + uuid.NewString() }
	}
	if in.Now == nil {
		in.Now = func() time.Time { return time.Now().UTC() }
	}
	if in.PreferenceMode == "" {
		in.PreferenceMode = PreferenceModeIgnore
	}

	courses := dedupeCourses(in.Courses)
	if len(courses) == 0 {
		return &GenerateResult{Status: StatusNoCoursesSelected, Schedules: []models.Schedule{}}, nil
	}
	if err := validateCandidates(courses); err != nil {
		return nil, err
	}

	searchable := make([]CourseCandidates, 0, len(courses))
	dropped := make([]string, 0)
	for _, course := range courses {
		if len(course.Sections) == 0 {
			dropped = append(dropped, course.Code)
			continue
		}
		searchable = append(searchable, course)
	}
	if len(searchable) == 0 {
		return &GenerateResult{
			Status:                 StatusNoCandidatesAfterFiltering,
			Schedules:              []models.Schedule{},
			UnscheduledCourseCodes: codesOf(courses),
			DroppedCourseCodes:     dropped,
		}, nil
	}

	s := &search{
		ctx:     ctx,
		in:      in,
		courses: searchable,
		path:    make([]models.Section, 0, len(searchable)),
		memo:    newConflictMemo(in.BusyTimes),
	}
	if err := s.descend(0); err != nil {
		return nil, err
	}

	schedules := s.results
	if schedules == nil {
		schedules = []models.Schedule{}
	}
	if in.PreferenceMode == PreferenceModeEnforce && in.Preferences.DayDistribution != "" &&
		in.Preferences.DayDistribution != models.DayDistributionNone {
		sort.SliceStable(schedules, func(i, j int) bool {
			return schedules[i].Score > schedules[j].Score
		})
	}
	for i := range schedules {
		schedules[i].Name = fmt.Sprintf("Schedule %d", i+1)
	}

	result := &GenerateResult{
		Schedules:              schedules,
		UnscheduledCourseCodes: unscheduledCodes(courses, schedules),
		DroppedCourseCodes:     dropped,
		NodesVisited:           s.nodes,
		Truncated:              s.truncated,
	}
	switch {
	case len(schedules) > 0:
		result.Status = StatusOK
	case s.truncated:
		result.Status = StatusSearchTruncated
	default:
		result.Status = StatusNoValidCombinationFound
	}
	return result, nil
}

type search struct {
	ctx       context.Context
	in        GenerateInput
	courses   []CourseCandidates
	path      []models.Section
	results   []models.Schedule
	memo      *conflictMemo
	nodes     int
	truncated bool
}

func (s *search) done() bool {
	return s.truncated || len(s.results) >= s.in.MaxResults
}

func (s *search) descend(level int) error {
	if level == len(s.courses) {
		s.materialize()
		return nil
	}
	for _, candidate := range s.courses[level].Sections {
		if s.done() {
			return nil
		}
		if err := s.ctx.Err(); err != nil {
			return err
		}
		if s.in.MaxNodes > 0 && s.nodes >= s.in.MaxNodes {
			s.truncated = true
			return nil
		}
		s.nodes++

		if s.memo.hitsBusyTime(candidate) || s.memo.clashesWithAny(candidate, s.path) {
			continue
		}
		if !s.satisfiesPreferences(candidate) {
			continue
		}

		s.path = append(s.path, candidate)
		err := s.descend(level + 1)
		s.path = s.path[:len(s.path)-1]
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *search) materialize() {
	sections := make([]models.Section, len(s.path))
	credits := 0
	for i, section := range s.path {
		sections[i] = section.Clone()
		if s.courses[i].Credits > 0 {
			credits += s.courses[i].Credits
		} else {
			credits += section.Credits
		}
	}
	s.results = append(s.results, models.Schedule{
		ID:           s.in.NewID(),
		TermID:       s.in.TermID,
		Sections:     sections,
		BusyTimes:    models.CloneBusyTimes(s.in.BusyTimes),
		TotalCredits: credits,
		Conflicts:    []models.ScheduleConflict{},
		Score:        ScoreSchedule(sections, s.in.Preferences.DayDistribution),
		GeneratedAt:  s.in.Now(),
	})
}

func dedupeCourses(courses []CourseCandidates) []CourseCandidates {
	seen := make(map[string]bool, len(courses))
	out := make([]CourseCandidates, 0, len(courses))
	for _, course := range courses {
		if seen[course.CourseID] {
			continue
		}
		seen[course.CourseID] = true
		out = append(out, course)
	}
	return out
}

func validateCandidates(courses []CourseCandidates) error {
	for _, course := range courses {
		if course.CourseID == "" {
			return fmt.Errorf("%w: course without id", ErrInvalidSection)
		}
		for _, section := range course.Sections {
			if section.ID == "" {
				return fmt.Errorf("%w: section without id in course %s", ErrInvalidSection, course.Code)
			}
			if section.CourseID != course.CourseID {
				return fmt.Errorf("%w: section %s does not belong to course %s", ErrInvalidSection, section.ID, course.CourseID)
			}
			if len(section.Meetings) == 0 {
				return fmt.Errorf("%w: section %s has no meeting patterns", ErrInvalidSection, section.ID)
			}
		}
	}
	return nil
}

func codesOf(courses []CourseCandidates) []string {
	codes := make([]string, 0, len(courses))
	for _, course := range courses {
		codes = append(codes, course.Code)
	}
	return codes
}

func unscheduledCodes(courses []CourseCandidates, schedules []models.Schedule) []string {
	covered := make(map[string]bool)
	for _, schedule := range schedules {
		for _, section := range schedule.Sections {
			covered[section.CourseID] = true
		}
	}
	codes := make([]string, 0)
	for _, course := range courses {
		if !covered[course.CourseID] {
			codes = append(codes, course.Code)
		}
	}
	return codes
}
