package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-planner-api/internal/dto"
	"github.com/noah-isme/course-planner-api/internal/models"
	"github.com/noah-isme/course-planner-api/internal/scheduler"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
)

const generationCacheNamespace = "generation"

type generatorCatalog interface {
	EnsureLoaded(ctx context.Context) error
	Course(id string) (models.Course, bool)
	TermID() string
}

type generatorPlanner interface {
	BusyTimesForTerm(termID string) []models.BusyTime
	Preferences() models.SchedulePreferences
	ReplaceGenerated(batch []models.Schedule)
}

type generationCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type generationMetrics interface {
	ObserveGeneration(status string, duration time.Duration, nodes, schedules int)
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	MaxResults         int
	MaxNodes           int
	Timeout            time.Duration
	EnforcePreferences bool
	CacheTTL           time.Duration
}

// ScheduleGeneratorService resolves a course selection against the catalog,
// runs the backtracking search and publishes the results to the planner.
type ScheduleGeneratorService struct {
	catalog   generatorCatalog
	planner   generatorPlanner
	cache     generationCache
	metrics   generationMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleGeneratorConfig
	running   atomic.Bool
}

// NewScheduleGeneratorService wires generator dependencies. cache and metrics may be nil.
func NewScheduleGeneratorService(
	catalog generatorCatalog,
	planner generatorPlanner,
	cache generationCache,
	metrics generationMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &ScheduleGeneratorService{
		catalog:   catalog,
		planner:   planner,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

type generationCacheInput struct {
	TermID      string                     `json:"termId"`
	Courses     []cachedCourseCandidates   `json:"courses"`
	BusyTimes   []models.BusyTime          `json:"busyTimes"`
	Preferences models.SchedulePreferences `json:"preferences"`
	Mode        scheduler.PreferenceMode   `json:"mode"`
	MaxResults  int                        `json:"maxResults"`
	MaxNodes    int                        `json:"maxNodes"`
}

type cachedCourseCandidates struct {
	CourseID   string   `json:"courseId"`
	SectionIDs []string `json:"sectionIds"`
}

// Generate runs one generation. Only one generation may run at a time; a
// concurrent call is rejected with a conflict error.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateSchedulesRequest) (*dto.GenerateSchedulesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "generation already in progress")
	}
	defer s.running.Store(false)

	if err := s.catalog.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	termID := req.TermID
	if termID == "" {
		termID = s.catalog.TermID()
	}
	courses, err := s.resolveCandidates(req)
	if err != nil {
		return nil, err
	}

	mode := scheduler.PreferenceModeIgnore
	enforce := s.cfg.EnforcePreferences
	if req.EnforcePreferences != nil {
		enforce = *req.EnforcePreferences
	}
	if enforce {
		mode = scheduler.PreferenceModeEnforce
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = s.cfg.MaxResults
	}

	input := scheduler.GenerateInput{
		Courses:        courses,
		BusyTimes:      s.planner.BusyTimesForTerm(termID),
		MaxResults:     maxResults,
		Preferences:    s.planner.Preferences(),
		PreferenceMode: mode,
		MaxNodes:       s.cfg.MaxNodes,
		TermID:         termID,
	}

	cacheKey := s.cacheKey(input)
	if cacheKey != "" {
		var cached dto.GenerateSchedulesResponse
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			cached.Cached = true
			if cached.Status == string(scheduler.StatusOK) {
				s.planner.ReplaceGenerated(cached.Schedules)
			}
			s.logger.Debug("schedule generation served from cache", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := scheduler.Generate(runCtx, input)
	elapsed := time.Since(start)
	if err != nil {
		return nil, s.mapGenerateError(err, elapsed)
	}

	if s.metrics != nil {
		s.metrics.ObserveGeneration(string(result.Status), elapsed, result.NodesVisited, len(result.Schedules))
	}
	s.logger.Info("schedule generation finished",
		zap.String("status", string(result.Status)),
		zap.Int("courses", len(courses)),
		zap.Int("schedules", len(result.Schedules)),
		zap.Int("nodes", result.NodesVisited),
		zap.Bool("truncated", result.Truncated),
		zap.String("mode", string(mode)),
		zap.Duration("duration", elapsed))

	resp := &dto.GenerateSchedulesResponse{
		Status:                 string(result.Status),
		Message:                statusMessage(result),
		Schedules:              result.Schedules,
		UnscheduledCourseCodes: result.UnscheduledCourseCodes,
		DroppedCourseCodes:     result.DroppedCourseCodes,
		NodesVisited:           result.NodesVisited,
		Truncated:              result.Truncated,
		PreferencesEnforced:    enforce,
	}
	if resp.UnscheduledCourseCodes == nil {
		resp.UnscheduledCourseCodes = []string{}
	}
	if resp.DroppedCourseCodes == nil {
		resp.DroppedCourseCodes = []string{}
	}

	if result.Status == scheduler.StatusOK {
		s.planner.ReplaceGenerated(result.Schedules)
	}
	if cacheKey != "" && !result.Truncated {
		_ = s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL)
	}
	return resp, nil
}

// InProgress reports whether a generation is currently running.
func (s *ScheduleGeneratorService) InProgress() bool {
	return s.running.Load()
}

func (s *ScheduleGeneratorService) resolveCandidates(req dto.GenerateSchedulesRequest) ([]scheduler.CourseCandidates, error) {
	for courseID := range req.SectionFilters {
		if !containsString(req.CourseIDs, courseID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section filter for unselected course %s", courseID))
		}
	}

	courses := make([]scheduler.CourseCandidates, 0, len(req.CourseIDs))
	for _, courseID := range req.CourseIDs {
		course, ok := s.catalog.Course(courseID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown course %s", courseID))
		}
		allowed, filtered := req.SectionFilters[courseID]
		for _, sectionID := range allowed {
			if _, ok := course.FindSection(sectionID); !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %s does not belong to course %s", sectionID, courseID))
			}
		}

		sections := make([]models.Section, 0, len(course.Sections))
		for _, section := range course.Sections {
			if filtered && !containsString(allowed, section.ID) {
				continue
			}
			if req.ExcludeHonors && section.IsHonors() {
				continue
			}
			sections = append(sections, section)
		}
		courses = append(courses, scheduler.CourseCandidates{
			CourseID: course.ID,
			Code:     course.Code,
			Credits:  course.Credits,
			Sections: sections,
		})
	}
	return courses, nil
}

func (s *ScheduleGeneratorService) cacheKey(input scheduler.GenerateInput) string {
	if s.cache == nil {
		return ""
	}
	keyInput := generationCacheInput{
		TermID:      input.TermID,
		BusyTimes:   input.BusyTimes,
		Preferences: input.Preferences,
		Mode:        input.PreferenceMode,
		MaxResults:  input.MaxResults,
		MaxNodes:    input.MaxNodes,
	}
	for _, course := range input.Courses {
		ids := make([]string, len(course.Sections))
		for i, section := range course.Sections {
			ids[i] = section.ID
		}
		keyInput.Courses = append(keyInput.Courses, cachedCourseCandidates{CourseID: course.CourseID, SectionIDs: ids})
	}
	key, err := CacheKey(generationCacheNamespace, keyInput)
	if err != nil {
		s.logger.Warn("failed to derive generation cache key", zap.Error(err))
		return ""
	}
	return key
}

func (s *ScheduleGeneratorService) mapGenerateError(err error, elapsed time.Duration) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		if s.metrics != nil {
			s.metrics.ObserveGeneration("TIMEOUT", elapsed, 0, 0)
		}
		s.logger.Warn("schedule generation timed out", zap.Duration("timeout", s.cfg.Timeout))
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "schedule generation timed out")
	case errors.Is(err, context.Canceled):
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "schedule generation cancelled")
	case errors.Is(err, scheduler.ErrInvalidSection):
		s.logger.Error("catalog produced an invalid section", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "catalog data is inconsistent")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation failed")
	}
}

func statusMessage(result *scheduler.GenerateResult) string {
	switch result.Status {
	case scheduler.StatusOK:
		if len(result.UnscheduledCourseCodes) > 0 {
			return fmt.Sprintf("generated %d schedules; some courses could not be placed", len(result.Schedules))
		}
		return fmt.Sprintf("generated %d schedules", len(result.Schedules))
	case scheduler.StatusNoCoursesSelected:
		return "select at least one course to generate schedules"
	case scheduler.StatusNoCandidatesAfterFiltering:
		return "no sections remain after applying filters"
	case scheduler.StatusNoValidCombinationFound:
		return "no conflict-free combination of sections exists"
	case scheduler.StatusSearchTruncated:
		return "search budget exhausted before any schedule was found; narrow the selection"
	default:
		return string(result.Status)
	}
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
