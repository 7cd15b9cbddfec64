package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-planner-api/internal/dto"
	"github.com/noah-isme/course-planner-api/internal/models"
	"github.com/noah-isme/course-planner-api/internal/scheduler"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
)

// ImportedSchedulePrefix marks schedules created from a transfer document.
const ImportedSchedulePrefix = "imported-"

type catalogLookup interface {
	Course(id string) (models.Course, bool)
	Section(sectionID string) (models.Course, models.Section, bool)
}

// PlannerService is the in-memory state container for one student: busy
// times, preferences, the schedule list and the current selection.
type PlannerService struct {
	catalog   catalogLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	preferences models.SchedulePreferences
	busyTimes   []models.BusyTime
	schedules   []models.Schedule
	selectedID  string
}

// NewPlannerService constructs an empty planner.
func NewPlannerService(catalog catalogLookup, validate *validator.Validate, logger *zap.Logger) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlannerService{
		catalog:     catalog,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		preferences: models.DefaultPreferences(),
		busyTimes:   make([]models.BusyTime, 0),
		schedules:   make([]models.Schedule, 0),
	}
}

// Preferences returns the current scheduling preferences.
func (s *PlannerService) Preferences() models.SchedulePreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preferences
}

// UpdatePreferences replaces the scheduling preferences.
func (s *PlannerService) UpdatePreferences(_ context.Context, prefs models.SchedulePreferences) (models.SchedulePreferences, error) {
	if err := s.validator.Struct(prefs); err != nil {
		return models.SchedulePreferences{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferences payload")
	}
	if prefs.TimeOfDay == "" {
		prefs.TimeOfDay = models.TimeOfDayAny
	}
	if prefs.DayDistribution == "" {
		prefs.DayDistribution = models.DayDistributionNone
	}
	s.mu.Lock()
	s.preferences = prefs
	s.mu.Unlock()
	return prefs, nil
}

// BusyTimes returns a copy of every declared busy time.
func (s *PlannerService) BusyTimes() []models.BusyTime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneBusyTimes(s.busyTimes)
}

// BusyTimesForTerm returns busy times that apply to termID. Busy times without
// a term apply to every term.
func (s *PlannerService) BusyTimesForTerm(termID string) []models.BusyTime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BusyTime, 0, len(s.busyTimes))
	for _, busy := range s.busyTimes {
		if busy.TermID == "" || termID == "" || busy.TermID == termID {
			out = append(out, busy.Clone())
		}
	}
	return out
}

// CreateBusyTime validates and stores a new busy time.
func (s *PlannerService) CreateBusyTime(_ context.Context, req dto.BusyTimeRequest) (*models.BusyTime, error) {
	busy, err := s.buildBusyTime(req)
	if err != nil {
		return nil, err
	}
	busy.ID = uuid.NewString()

	s.mu.Lock()
	s.busyTimes = append(s.busyTimes, busy)
	s.mu.Unlock()

	out := busy.Clone()
	return &out, nil
}

// UpdateBusyTime replaces an existing busy time.
func (s *PlannerService) UpdateBusyTime(_ context.Context, id string, req dto.BusyTimeRequest) (*models.BusyTime, error) {
	busy, err := s.buildBusyTime(req)
	if err != nil {
		return nil, err
	}
	busy.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.busyTimes {
		if s.busyTimes[i].ID == id {
			s.busyTimes[i] = busy
			out := busy.Clone()
			return &out, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "busy time not found")
}

// DeleteBusyTime removes a busy time.
func (s *PlannerService) DeleteBusyTime(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.busyTimes {
		if s.busyTimes[i].ID == id {
			s.busyTimes = append(s.busyTimes[:i], s.busyTimes[i+1:]...)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "busy time not found")
}

func (s *PlannerService) buildBusyTime(req dto.BusyTimeRequest) (models.BusyTime, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.BusyTime{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid busy time payload")
	}
	days, err := scheduler.ParseDays(strings.Join(req.Days, ","))
	if err != nil {
		return models.BusyTime{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return models.BusyTime{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	busyType := req.Type
	if busyType == "" {
		busyType = models.BusyTimeOther
	}
	return models.BusyTime{
		Title:     strings.TrimSpace(req.Title),
		Type:      busyType,
		Days:      days,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		TermID:    req.TermID,
	}, nil
}

// ReplaceGenerated swaps the previous generated batch for a new one. Imported
// and hand-built schedules survive.
func (s *PlannerService) ReplaceGenerated(batch []models.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Schedule, 0, len(s.schedules)+len(batch))
	for _, schedule := range s.schedules {
		if !strings.HasPrefix(schedule.ID, models.GeneratedSchedulePrefix) {
			kept = append(kept, schedule)
		}
	}
	for _, schedule := range batch {
		kept = append(kept, schedule.Clone())
	}
	s.schedules = kept
	if s.selectedID != "" && s.indexOf(s.selectedID) < 0 {
		s.selectedID = ""
	}
}

// ListSchedules returns copies of every schedule in display order.
func (s *PlannerService) ListSchedules(_ context.Context) []models.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Schedule, len(s.schedules))
	for i, schedule := range s.schedules {
		out[i] = schedule.Clone()
	}
	return out
}

// GetSchedule returns a copy of one schedule.
func (s *PlannerService) GetSchedule(_ context.Context, id string) (*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	out := s.schedules[idx].Clone()
	return &out, nil
}

// DeleteSchedule removes a schedule and clears the selection if it pointed at it.
func (s *PlannerService) DeleteSchedule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	s.schedules = append(s.schedules[:idx], s.schedules[idx+1:]...)
	if s.selectedID == id {
		s.selectedID = ""
	}
	return nil
}

// SelectSchedule marks a schedule as the current one.
func (s *PlannerService) SelectSchedule(_ context.Context, id string) (*models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	s.selectedID = id
	out := s.schedules[idx].Clone()
	return &out, nil
}

// SelectedSchedule returns the current schedule.
func (s *PlannerService) SelectedSchedule(_ context.Context) (*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedID == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedule selected")
	}
	idx := s.indexOf(s.selectedID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedule selected")
	}
	out := s.schedules[idx].Clone()
	return &out, nil
}

// AddSection places a catalog section into a schedule, replacing the section
// of the same course. The edit is rejected when it would introduce a clash.
func (s *PlannerService) AddSection(_ context.Context, scheduleID, sectionID string) (*models.Schedule, error) {
	if s.catalog == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "catalog unavailable")
	}
	_, section, ok := s.catalog.Section(sectionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(scheduleID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	schedule := s.schedules[idx].Clone()

	others := make([]models.Section, 0, len(schedule.Sections))
	replaceAt := schedule.SectionForCourse(section.CourseID)
	if replaceAt >= 0 {
		if schedule.Sections[replaceAt].ID == section.ID {
			return &schedule, nil
		}
		if schedule.Sections[replaceAt].Locked {
			return nil, appErrors.Clone(appErrors.ErrConflict, "the current section of this course is locked")
		}
	}
	for i, existing := range schedule.Sections {
		if i != replaceAt {
			others = append(others, existing)
		}
	}
	if scheduler.SectionConflictsWithSections(section, others) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section conflicts with another section in the schedule")
	}
	if scheduler.SectionConflictsWithBusyTimes(section, s.termBusyTimes(schedule.TermID)) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section conflicts with a busy time")
	}

	if replaceAt >= 0 {
		schedule.Sections[replaceAt] = section
	} else {
		schedule.Sections = append(schedule.Sections, section)
	}
	schedule.TotalCredits = totalCredits(schedule.Sections, s.catalog)
	schedule.Conflicts = []models.ScheduleConflict{}
	s.schedules[idx] = schedule

	out := schedule.Clone()
	return &out, nil
}

// RemoveSection drops a section from a schedule.
func (s *PlannerService) RemoveSection(_ context.Context, scheduleID, sectionID string) (*models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(scheduleID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	schedule := s.schedules[idx].Clone()
	at := -1
	for i, section := range schedule.Sections {
		if section.ID == sectionID {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not in schedule")
	}
	if schedule.Sections[at].Locked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section is locked")
	}
	schedule.Sections = append(schedule.Sections[:at], schedule.Sections[at+1:]...)
	schedule.TotalCredits = totalCredits(schedule.Sections, s.catalog)
	schedule.Conflicts = []models.ScheduleConflict{}
	s.schedules[idx] = schedule

	out := schedule.Clone()
	return &out, nil
}

// ExportSchedule renders a schedule as a transfer document.
func (s *PlannerService) ExportSchedule(ctx context.Context, id string) (*dto.ScheduleTransfer, error) {
	schedule, err := s.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	busyTimes := schedule.BusyTimes
	if busyTimes == nil {
		busyTimes = []models.BusyTime{}
	}
	return &dto.ScheduleTransfer{
		ID:           schedule.ID,
		Name:         schedule.Name,
		TermID:       schedule.TermID,
		Sections:     schedule.Sections,
		BusyTimes:    busyTimes,
		TotalCredits: schedule.TotalCredits,
		Conflicts:    schedule.Conflicts,
	}, nil
}

// ImportSchedule validates a transfer document, re-resolves every section
// against the live catalog and stores the result as a new schedule.
func (s *PlannerService) ImportSchedule(_ context.Context, doc dto.ScheduleTransfer) (*models.Schedule, error) {
	if err := s.validator.Struct(doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "schedule document has an invalid shape")
	}
	if s.catalog == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "catalog unavailable")
	}

	sections := make([]models.Section, 0, len(doc.Sections))
	seenCourse := make(map[string]string, len(doc.Sections))
	for _, imported := range doc.Sections {
		course, live, ok := s.catalog.Section(imported.ID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown section "+imported.ID)
		}
		if imported.CourseID != course.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section "+imported.ID+" does not belong to course "+imported.CourseID)
		}
		if other, dup := seenCourse[course.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "sections "+other+" and "+imported.ID+" belong to the same course")
		}
		seenCourse[course.ID] = imported.ID
		sections = append(sections, live)
	}

	busyTimes := make([]models.BusyTime, 0, len(doc.BusyTimes))
	for _, busy := range doc.BusyTimes {
		if err := validateImportedBusyTime(busy); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		busyTimes = append(busyTimes, busy.Clone())
	}

	schedule := models.Schedule{
		ID:           ImportedSchedulePrefix + uuid.NewString(),
		Name:         strings.TrimSpace(doc.Name),
		TermID:       doc.TermID,
		Sections:     sections,
		BusyTimes:    busyTimes,
		TotalCredits: totalCredits(sections, s.catalog),
		Conflicts:    scheduler.FindConflicts(sections, busyTimes),
		GeneratedAt:  s.now(),
	}

	s.mu.Lock()
	s.schedules = append(s.schedules, schedule)
	s.mu.Unlock()

	s.logger.Info("schedule imported",
		zap.String("schedule_id", schedule.ID),
		zap.Int("sections", len(sections)),
		zap.Int("conflicts", len(schedule.Conflicts)))

	out := schedule.Clone()
	return &out, nil
}

func validateImportedBusyTime(busy models.BusyTime) error {
	if len(busy.Days) == 0 {
		return fmt.Errorf("busy time %s has no days", busy.ID)
	}
	for _, day := range busy.Days {
		if !day.Valid() {
			return fmt.Errorf("busy time %s has unknown day %q", busy.ID, day)
		}
	}
	return validateTimeRange(busy.StartTime, busy.EndTime)
}

func (s *PlannerService) termBusyTimes(termID string) []models.BusyTime {
	out := make([]models.BusyTime, 0, len(s.busyTimes))
	for _, busy := range s.busyTimes {
		if busy.TermID == "" || termID == "" || busy.TermID == termID {
			out = append(out, busy)
		}
	}
	return out
}

func (s *PlannerService) indexOf(id string) int {
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			return i
		}
	}
	return -1
}

// totalCredits sums each distinct course once, preferring catalog course credits.
func totalCredits(sections []models.Section, catalog catalogLookup) int {
	seen := make(map[string]bool, len(sections))
	total := 0
	for _, section := range sections {
		if seen[section.CourseID] {
			continue
		}
		seen[section.CourseID] = true
		if catalog != nil {
			if course, ok := catalog.Course(section.CourseID); ok && course.Credits > 0 {
				total += course.Credits
				continue
			}
		}
		total += section.Credits
	}
	return total
}
