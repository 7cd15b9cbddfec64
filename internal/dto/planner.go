package dto

import "github.com/noah-isme/course-planner-api/internal/models"

// BusyTimeRequest creates or replaces a busy time. Days accepts single codes
// ("M", "Th") or compact strings ("MWF").
type BusyTimeRequest struct {
	Title     string              `json:"title" validate:"required,max=120"`
	Type      models.BusyTimeType `json:"type" validate:"omitempty,oneof=work study personal class meeting event reminder other"`
	Days      []string            `json:"days" validate:"required,min=1,dive,required"`
	StartTime string              `json:"startTime" validate:"required,len=5"`
	EndTime   string              `json:"endTime" validate:"required,len=5"`
	TermID    string              `json:"termId"`
}

// ScheduleTransfer is the JSON document used to share a schedule.
type ScheduleTransfer struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name" validate:"required,max=120"`
	TermID       string                    `json:"termId"`
	Sections     []models.Section          `json:"sections" validate:"required,min=1,dive"`
	BusyTimes    []models.BusyTime         `json:"busyTimes"`
	TotalCredits int                       `json:"totalCredits" validate:"min=0"`
	Conflicts    []models.ScheduleConflict `json:"conflicts"`
}

// CatalogCourseQuery filters catalog listings.
type CatalogCourseQuery struct {
	Department string `form:"department"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}
