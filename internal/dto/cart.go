package dto

import "github.com/noah-isme/course-planner-api/internal/models"

// AddToCartRequest copies a schedule into the registration cart.
type AddToCartRequest struct {
	ScheduleID string `json:"scheduleId" validate:"required"`
}

// CartValidateRequest lists the courses the student has already completed.
type CartValidateRequest struct {
	CompletedCourseIDs []string `json:"completedCourseIds"`
}

// CartValidationResponse summarises a validation pass over the cart.
type CartValidationResponse struct {
	Valid     bool                      `json:"valid"`
	Issues    []models.CartIssue        `json:"issues"`
	Conflicts []models.ScheduleConflict `json:"conflicts"`
}

// RegistrationResponse is returned by the mocked registration step.
type RegistrationResponse struct {
	Confirmation string   `json:"confirmation"`
	ScheduleID   string   `json:"scheduleId"`
	SectionIDs   []string `json:"sectionIds"`
	Waitlisted   []string `json:"waitlisted"`
}
