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

type cartScheduleSource interface {
	GetSchedule(ctx context.Context, id string) (*models.Schedule, error)
	BusyTimesForTerm(termID string) []models.BusyTime
}

// CartService holds the registration cart: one schedule snapshot that is
// validated and then registered through a mocked step.
type CartService struct {
	schedules cartScheduleSource
	catalog   catalogLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	cart *models.ShoppingCart
}

// NewCartService constructs an empty cart.
func NewCartService(schedules cartScheduleSource, catalog catalogLookup, validate *validator.Validate, logger *zap.Logger) *CartService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		schedules: schedules,
		catalog:   catalog,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Add copies a schedule into the cart, replacing whatever was there.
func (s *CartService) Add(ctx context.Context, req dto.AddToCartRequest) (*models.ShoppingCart, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cart payload")
	}
	schedule, err := s.schedules.GetSchedule(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if len(schedule.Sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot add an empty schedule to the cart")
	}

	snapshot := schedule.Clone()
	cart := &models.ShoppingCart{
		Schedule: &snapshot,
		AddedAt:  s.now(),
		Issues:   []models.CartIssue{},
	}

	s.mu.Lock()
	s.cart = cart
	out := cloneCart(cart)
	s.mu.Unlock()
	return out, nil
}

// Get returns the cart contents.
func (s *CartService) Get(_ context.Context) (*models.ShoppingCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "cart is empty")
	}
	return cloneCart(s.cart), nil
}

// Clear empties the cart.
func (s *CartService) Clear(_ context.Context) {
	s.mu.Lock()
	s.cart = nil
	s.mu.Unlock()
}

// Validate audits the cart for time conflicts, missing prerequisites and full
// sections. Conflicts and missing prerequisites block registration.
func (s *CartService) Validate(_ context.Context, req dto.CartValidateRequest) (*dto.CartValidationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "cart is empty")
	}
	if s.cart.Registered {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cart is already registered")
	}

	schedule := s.cart.Schedule
	busyTimes := s.schedules.BusyTimesForTerm(schedule.TermID)
	conflicts := scheduler.FindConflicts(schedule.Sections, busyTimes)

	issues := make([]models.CartIssue, 0)
	for _, conflict := range conflicts {
		issues = append(issues, models.CartIssue{
			Kind:      models.CartIssueConflict,
			SectionID: conflict.SectionID,
			Blocking:  true,
			Message:   conflict.Message,
		})
	}

	completed := make(map[string]bool, len(req.CompletedCourseIDs))
	for _, id := range req.CompletedCourseIDs {
		completed[strings.TrimSpace(id)] = true
	}
	for _, section := range schedule.Sections {
		course, ok := s.courseFor(section)
		if !ok {
			issues = append(issues, models.CartIssue{
				Kind:      models.CartIssueConflict,
				SectionID: section.ID,
				Blocking:  true,
				Message:   fmt.Sprintf("section %s is no longer offered", section.ID),
			})
			continue
		}
		if missing := missingPrerequisites(course, completed); len(missing) > 0 {
			issues = append(issues, models.CartIssue{
				Kind:       models.CartIssuePrerequisite,
				CourseCode: course.Code,
				SectionID:  section.ID,
				Missing:    s.courseCodes(missing),
				Blocking:   true,
				Message:    fmt.Sprintf("%s requires %s", course.Code, strings.Join(s.courseCodes(missing), ", ")),
			})
		}
		if live, ok := course.FindSection(section.ID); ok && live.Capacity > 0 && live.Enrolled >= live.Capacity {
			issues = append(issues, models.CartIssue{
				Kind:       models.CartIssueCapacity,
				CourseCode: course.Code,
				SectionID:  section.ID,
				Blocking:   false,
				Message:    fmt.Sprintf("%s is full; registration will join a waitlist of %d", section.ID, live.Waitlist),
			})
		}
	}

	now := s.now()
	s.cart.Schedule.Conflicts = conflicts
	s.cart.Issues = issues
	s.cart.ValidatedAt = &now

	valid := true
	for _, issue := range issues {
		if issue.Blocking {
			valid = false
			break
		}
	}
	s.logger.Info("cart validated",
		zap.String("schedule_id", schedule.ID),
		zap.Int("conflicts", len(conflicts)),
		zap.Int("issues", len(issues)),
		zap.Bool("valid", valid))

	return &dto.CartValidationResponse{
		Valid:     valid,
		Issues:    append([]models.CartIssue{}, issues...),
		Conflicts: append([]models.ScheduleConflict{}, conflicts...),
	}, nil
}

// Register performs the mocked registration. It requires a validation pass
// with no blocking issues.
func (s *CartService) Register(_ context.Context) (*dto.RegistrationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "cart is empty")
	}
	if s.cart.Registered {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cart is already registered")
	}
	if s.cart.ValidatedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "validate the cart before registering")
	}
	for _, issue := range s.cart.Issues {
		if issue.Blocking {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cart has blocking issues")
		}
	}

	resp := &dto.RegistrationResponse{
		Confirmation: "REG-" + strings.ToUpper(uuid.NewString()[:8]),
		ScheduleID:   s.cart.Schedule.ID,
		SectionIDs:   make([]string, 0, len(s.cart.Schedule.Sections)),
		Waitlisted:   make([]string, 0),
	}
	for _, section := range s.cart.Schedule.Sections {
		resp.SectionIDs = append(resp.SectionIDs, section.ID)
	}
	for _, issue := range s.cart.Issues {
		if issue.Kind == models.CartIssueCapacity {
			resp.Waitlisted = append(resp.Waitlisted, issue.SectionID)
		}
	}
	s.cart.Registered = true
	s.cart.Confirmation = resp.Confirmation

	s.logger.Info("cart registered",
		zap.String("schedule_id", resp.ScheduleID),
		zap.String("confirmation", resp.Confirmation),
		zap.Int("sections", len(resp.SectionIDs)))
	return resp, nil
}

func (s *CartService) courseFor(section models.Section) (models.Course, bool) {
	if s.catalog == nil {
		return models.Course{}, false
	}
	return s.catalog.Course(section.CourseID)
}

func (s *CartService) courseCodes(ids []string) []string {
	codes := make([]string, len(ids))
	for i, id := range ids {
		codes[i] = id
		if s.catalog != nil {
			if course, ok := s.catalog.Course(id); ok {
				codes[i] = course.Code
			}
		}
	}
	return codes
}

func missingPrerequisites(course models.Course, completed map[string]bool) []string {
	missing := make([]string, 0)
	for _, prereq := range course.Prerequisites {
		if !completed[prereq] {
			missing = append(missing, prereq)
		}
	}
	return missing
}

func cloneCart(cart *models.ShoppingCart) *models.ShoppingCart {
	out := *cart
	if cart.Schedule != nil {
		schedule := cart.Schedule.Clone()
		out.Schedule = &schedule
	}
	if cart.ValidatedAt != nil {
		validated := *cart.ValidatedAt
		out.ValidatedAt = &validated
	}
	out.Issues = append([]models.CartIssue{}, cart.Issues...)
	return &out
}
