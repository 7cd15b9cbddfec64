package dto

import "github.com/noah-isme/course-planner-api/internal/models"

// GenerateSchedulesRequest asks the generator for conflict-free timetables.
type GenerateSchedulesRequest struct {
	CourseIDs []string `json:"courseIds" validate:"omitempty,max=20,dive,required"`
	// SectionFilters limits a course to the listed section ids, keyed by course id.
	SectionFilters     map[string][]string `json:"sectionFilters"`
	ExcludeHonors      bool                `json:"excludeHonors"`
	MaxResults         int                 `json:"maxResults" validate:"omitempty,min=1,max=500"`
	TermID             string              `json:"termId"`
	EnforcePreferences *bool               `json:"enforcePreferences,omitempty"`
}

// GenerateSchedulesResponse reports the outcome of one generation run.
type GenerateSchedulesResponse struct {
	Status                 string            `json:"status"`
	Message                string            `json:"message"`
	Schedules              []models.Schedule `json:"schedules"`
	UnscheduledCourseCodes []string          `json:"unscheduledCourseCodes"`
	DroppedCourseCodes     []string          `json:"droppedCourseCodes"`
	NodesVisited           int               `json:"nodesVisited"`
	Truncated              bool              `json:"truncated"`
	PreferencesEnforced    bool              `json:"preferencesEnforced"`
	Cached                 bool              `json:"cached"`
}

// AddSectionRequest places a section into an existing schedule.
type AddSectionRequest struct {
	SectionID string `json:"sectionId" validate:"required"`
}
