package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-planner-api/internal/models"
	"github.com/noah-isme/course-planner-api/internal/scheduler"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
)

type catalogSource interface {
	LoadCourses(ctx context.Context, termID string) ([]models.CourseRecord, error)
	Ping(ctx context.Context) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// CatalogRejection records a catalog record dropped during ingestion.
type CatalogRejection struct {
	CourseID  string `json:"courseId"`
	SectionID string `json:"sectionId,omitempty"`
	Reason    string `json:"reason"`
}

// CatalogLoadReport summarises one ingestion pass.
type CatalogLoadReport struct {
	Courses  int                `json:"courses"`
	Sections int                `json:"sections"`
	Rejected []CatalogRejection `json:"rejected"`
	LoadedAt time.Time          `json:"loadedAt"`
}

type sectionRef struct {
	course  int
	section int
}

// CatalogService owns the read-only course catalog. Records are parsed and
// validated once at load so the generator only ever sees well-formed data.
type CatalogService struct {
	source    catalogSource
	termID    string
	validator *validator.Validate
	logger    *zap.Logger
	cache     cacheInvalidator

	mu       sync.RWMutex
	loaded   bool
	courses  []models.Course
	byID     map[string]int
	sections map[string]sectionRef
	report   CatalogLoadReport
}

// NewCatalogService constructs the catalog service for a term.
func NewCatalogService(source catalogSource, termID string, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		source:    source,
		termID:    termID,
		validator: validate,
		logger:    logger,
		byID:      make(map[string]int),
		sections:  make(map[string]sectionRef),
	}
}

// SetCacheInvalidator registers the cache whose generation results go stale
// when the catalog is reloaded.
func (s *CatalogService) SetCacheInvalidator(cache cacheInvalidator) {
	s.cache = cache
}

// TermID returns the term the catalog was loaded for.
func (s *CatalogService) TermID() string {
	return s.termID
}

// Load reads the catalog source and swaps in the parsed snapshot.
func (s *CatalogService) Load(ctx context.Context) (*CatalogLoadReport, error) {
	if s.source == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "catalog source not configured")
	}
	records, err := s.source.LoadCourses(ctx, s.termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course catalog")
	}

	report := CatalogLoadReport{Rejected: make([]CatalogRejection, 0), LoadedAt: time.Now().UTC()}
	courses := make([]models.Course, 0, len(records))
	byID := make(map[string]int, len(records))
	sections := make(map[string]sectionRef)

	for _, record := range records {
		course, rejections, ok := s.convertCourse(record)
		report.Rejected = append(report.Rejected, rejections...)
		if !ok {
			continue
		}
		if _, dup := byID[course.ID]; dup {
			report.Rejected = append(report.Rejected, CatalogRejection{CourseID: course.ID, Reason: "duplicate course id"})
			continue
		}
		kept := course.Sections[:0]
		for _, section := range course.Sections {
			if _, dup := sections[section.ID]; dup {
				report.Rejected = append(report.Rejected, CatalogRejection{CourseID: course.ID, SectionID: section.ID, Reason: "duplicate section id"})
				continue
			}
			sections[section.ID] = sectionRef{course: len(courses), section: len(kept)}
			kept = append(kept, section)
		}
		course.Sections = kept
		byID[course.ID] = len(courses)
		courses = append(courses, course)
		report.Sections += len(kept)
	}
	report.Courses = len(courses)

	for _, rejection := range report.Rejected {
		s.logger.Warn("catalog record rejected",
			zap.String("course_id", rejection.CourseID),
			zap.String("section_id", rejection.SectionID),
			zap.String("reason", rejection.Reason))
	}
	s.logger.Info("catalog loaded",
		zap.String("term_id", s.termID),
		zap.Int("courses", report.Courses),
		zap.Int("sections", report.Sections),
		zap.Int("rejected", len(report.Rejected)))

	s.mu.Lock()
	s.courses = courses
	s.byID = byID
	s.sections = sections
	s.report = report
	s.loaded = true
	s.mu.Unlock()

	return &report, nil
}

// Reload re-reads the source and drops cached generation results, since a
// section id may now carry different meetings.
func (s *CatalogService) Reload(ctx context.Context) (*CatalogLoadReport, error) {
	report, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, generationCacheNamespace+":*"); err != nil {
			s.logger.Warn("failed to invalidate generation cache after reload", zap.Error(err))
		}
	}
	return report, nil
}

// EnsureLoaded loads the catalog once if no snapshot exists yet.
func (s *CatalogService) EnsureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err := s.Load(ctx)
	return err
}

// Ready reports whether a snapshot is loaded and the source still answers.
func (s *CatalogService) Ready(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "catalog not loaded")
	}
	if s.source != nil {
		if err := s.source.Ping(ctx); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "catalog source unavailable")
		}
	}
	return nil
}

// Report returns the result of the latest load.
func (s *CatalogService) Report() CatalogLoadReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// List returns catalog courses matching the filter with pagination metadata.
func (s *CatalogService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.RLock()
	matched := make([]models.Course, 0, len(s.courses))
	for _, course := range s.courses {
		if filter.Department != "" && !strings.EqualFold(course.Department, filter.Department) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(course.Code), search) &&
			!strings.Contains(strings.ToLower(course.Name), search) {
			continue
		}
		matched = append(matched, cloneCourse(course))
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })

	total := len(matched)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return matched[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one course by id.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Course, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	course, ok := s.Course(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &course, nil
}

// Course looks a course up in the loaded snapshot.
func (s *CatalogService) Course(id string) (models.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return models.Course{}, false
	}
	return cloneCourse(s.courses[idx]), true
}

// Section resolves a section id to its owning course and the section itself.
func (s *CatalogService) Section(sectionID string) (models.Course, models.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.sections[sectionID]
	if !ok {
		return models.Course{}, models.Section{}, false
	}
	course := s.courses[ref.course]
	return cloneCourse(course), course.Sections[ref.section].Clone(), true
}

func (s *CatalogService) convertCourse(record models.CourseRecord) (models.Course, []CatalogRejection, bool) {
	var rejections []CatalogRejection
	course := models.Course{
		ID:            strings.TrimSpace(record.ID),
		Code:          strings.TrimSpace(record.Code),
		Name:          record.Name,
		Credits:       record.Credits,
		Department:    record.Department,
		Prerequisites: append([]string{}, record.Prerequisites...),
		Sections:      make([]models.Section, 0, len(record.Sections)),
	}
	if course.Code == "" {
		course.Code = course.ID
	}
	if err := s.validator.Struct(course); err != nil {
		return models.Course{}, []CatalogRejection{{CourseID: record.ID, Reason: err.Error()}}, false
	}

	for _, raw := range record.Sections {
		section, err := s.convertSection(course, raw)
		if err != nil {
			rejections = append(rejections, CatalogRejection{CourseID: course.ID, SectionID: raw.ID, Reason: err.Error()})
			continue
		}
		course.Sections = append(course.Sections, section)
	}
	return course, rejections, true
}

func (s *CatalogService) convertSection(course models.Course, raw models.SectionRecord) (models.Section, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" && raw.SectionNumber != "" {
		id = course.ID + "-" + raw.SectionNumber
	}
	if !strings.HasPrefix(id, course.ID+"-") || len(id) == len(course.ID)+1 {
		return models.Section{}, fmt.Errorf("section id %q must look like %s-<suffix>", id, course.ID)
	}
	if raw.CourseID != "" && raw.CourseID != course.ID {
		return models.Section{}, fmt.Errorf("section belongs to course %s", raw.CourseID)
	}

	sectionType := models.SectionTypeLecture
	if raw.Type != "" {
		sectionType = models.SectionType(raw.Type)
	}
	switch sectionType {
	case models.SectionTypeLecture, models.SectionTypeLab, models.SectionTypeHonors, models.SectionTypeSeminar, models.SectionTypeOnline:
	default:
		return models.Section{}, fmt.Errorf("unknown section type %q", raw.Type)
	}

	credits := raw.Credits
	if credits == 0 {
		credits = course.Credits
	}
	section := models.Section{
		ID:            id,
		CourseID:      course.ID,
		SectionNumber: raw.SectionNumber,
		Instructors:   append([]string{}, raw.Instructors...),
		Capacity:      raw.Capacity,
		Enrolled:      raw.Enrolled,
		Waitlist:      raw.Waitlist,
		Type:          sectionType,
		Credits:       credits,
		Locked:        raw.Locked,
	}
	if section.SectionNumber == "" {
		section.SectionNumber = strings.TrimPrefix(id, course.ID+"-")
	}

	for i, rawMeeting := range raw.Meetings {
		meeting, err := convertMeeting(rawMeeting)
		if err != nil {
			return models.Section{}, fmt.Errorf("meeting %d: %w", i+1, err)
		}
		section.Meetings = append(section.Meetings, meeting)
	}
	if err := s.validator.Struct(section); err != nil {
		return models.Section{}, err
	}
	return section, nil
}

func convertMeeting(raw models.MeetingRecord) (models.MeetingPattern, error) {
	days, err := scheduler.ParseDays(raw.Days)
	if err != nil {
		return models.MeetingPattern{}, err
	}
	if len(days) == 0 {
		return models.MeetingPattern{}, fmt.Errorf("no meeting days")
	}
	if err := validateTimeRange(raw.StartTime, raw.EndTime); err != nil {
		return models.MeetingPattern{}, err
	}
	return models.MeetingPattern{
		Days:      days,
		StartTime: raw.StartTime,
		EndTime:   raw.EndTime,
		Location:  raw.Location,
		Kind:      raw.Kind,
	}, nil
}

func validateTimeRange(startRaw, endRaw string) error {
	start := scheduler.ParseTimeOfDay(startRaw)
	end := scheduler.ParseTimeOfDay(endRaw)
	if !start.Valid() {
		return fmt.Errorf("start time %q is not HH:MM", startRaw)
	}
	if !end.Valid() {
		return fmt.Errorf("end time %q is not HH:MM", endRaw)
	}
	if end <= start {
		return fmt.Errorf("end time %s must be after start time %s", endRaw, startRaw)
	}
	return nil
}

func cloneCourse(course models.Course) models.Course {
	out := course
	out.Prerequisites = append([]string{}, course.Prerequisites...)
	out.Sections = make([]models.Section, len(course.Sections))
	for i, section := range course.Sections {
		out.Sections[i] = section.Clone()
	}
	return out
}
