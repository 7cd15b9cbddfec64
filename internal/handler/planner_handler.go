package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-planner-api/internal/dto"
	"github.com/noah-isme/course-planner-api/internal/models"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
	"github.com/noah-isme/course-planner-api/pkg/response"
)

type plannerStore interface {
	Preferences() models.SchedulePreferences
	UpdatePreferences(ctx context.Context, prefs models.SchedulePreferences) (models.SchedulePreferences, error)
	BusyTimes() []models.BusyTime
	CreateBusyTime(ctx context.Context, req dto.BusyTimeRequest) (*models.BusyTime, error)
	UpdateBusyTime(ctx context.Context, id string, req dto.BusyTimeRequest) (*models.BusyTime, error)
	DeleteBusyTime(ctx context.Context, id string) error
	ListSchedules(ctx context.Context) []models.Schedule
	GetSchedule(ctx context.Context, id string) (*models.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	SelectSchedule(ctx context.Context, id string) (*models.Schedule, error)
	SelectedSchedule(ctx context.Context) (*models.Schedule, error)
	AddSection(ctx context.Context, scheduleID, sectionID string) (*models.Schedule, error)
	RemoveSection(ctx context.Context, scheduleID, sectionID string) (*models.Schedule, error)
	ExportSchedule(ctx context.Context, id string) (*dto.ScheduleTransfer, error)
	ImportSchedule(ctx context.Context, doc dto.ScheduleTransfer) (*models.Schedule, error)
}

// PlannerHandler exposes busy times, preferences and the schedule store.
type PlannerHandler struct {
	planner plannerStore
}

// NewPlannerHandler constructs the handler.
func NewPlannerHandler(planner plannerStore) *PlannerHandler {
	return &PlannerHandler{planner: planner}
}

// GetPreferences godoc
// @Summary Get scheduling preferences
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /planner/preferences [get]
func (h *PlannerHandler) GetPreferences(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.planner.Preferences(), nil)
}

// UpdatePreferences godoc
// @Summary Replace scheduling preferences
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body models.SchedulePreferences true "Preferences"
// @Success 200 {object} response.Envelope
// @Router /planner/preferences [put]
func (h *PlannerHandler) UpdatePreferences(c *gin.Context) {
	var req models.SchedulePreferences
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preferences payload"))
		return
	}
	prefs, err := h.planner.UpdatePreferences(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// ListBusyTimes godoc
// @Summary List busy times
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /planner/busy-times [get]
func (h *PlannerHandler) ListBusyTimes(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.planner.BusyTimes(), nil)
}

// CreateBusyTime godoc
// @Summary Create a busy time
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.BusyTimeRequest true "Busy time"
// @Success 201 {object} response.Envelope
// @Router /planner/busy-times [post]
func (h *PlannerHandler) CreateBusyTime(c *gin.Context) {
	var req dto.BusyTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid busy time payload"))
		return
	}
	busy, err := h.planner.CreateBusyTime(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, busy)
}

// UpdateBusyTime godoc
// @Summary Replace a busy time
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Busy time ID"
// @Param payload body dto.BusyTimeRequest true "Busy time"
// @Success 200 {object} response.Envelope
// @Router /planner/busy-times/{id} [put]
func (h *PlannerHandler) UpdateBusyTime(c *gin.Context) {
	var req dto.BusyTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid busy time payload"))
		return
	}
	busy, err := h.planner.UpdateBusyTime(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, busy, nil)
}

// DeleteBusyTime godoc
// @Summary Delete a busy time
// @Tags Planner
// @Param id path string true "Busy time ID"
// @Success 204
// @Router /planner/busy-times/{id} [delete]
func (h *PlannerHandler) DeleteBusyTime(c *gin.Context) {
	if err := h.planner.DeleteBusyTime(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSchedules godoc
// @Summary List stored schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *PlannerHandler) ListSchedules(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.planner.ListSchedules(c.Request.Context()), nil)
}

// GetSchedule godoc
// @Summary Get a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *PlannerHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.planner.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// DeleteSchedule godoc
// @Summary Delete a schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *PlannerHandler) DeleteSchedule(c *gin.Context) {
	if err := h.planner.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SelectSchedule godoc
// @Summary Mark a schedule as the selected one
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/select [post]
func (h *PlannerHandler) SelectSchedule(c *gin.Context) {
	schedule, err := h.planner.SelectSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// SelectedSchedule godoc
// @Summary Get the selected schedule
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/selected [get]
func (h *PlannerHandler) SelectedSchedule(c *gin.Context) {
	schedule, err := h.planner.SelectedSchedule(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// AddSection godoc
// @Summary Add a section to a schedule
// @Description Replaces the section of the same course when present. Conflicting sections are rejected.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.AddSectionRequest true "Section"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/sections [post]
func (h *PlannerHandler) AddSection(c *gin.Context) {
	var req dto.AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SectionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sectionId required"))
		return
	}
	schedule, err := h.planner.AddSection(c.Request.Context(), c.Param("id"), req.SectionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// RemoveSection godoc
// @Summary Remove a section from a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/sections/{sectionId} [delete]
func (h *PlannerHandler) RemoveSection(c *gin.Context) {
	schedule, err := h.planner.RemoveSection(c.Request.Context(), c.Param("id"), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// ExportSchedule godoc
// @Summary Export a schedule as a transfer document
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} dto.ScheduleTransfer
// @Router /schedules/{id}/export [get]
func (h *PlannerHandler) ExportSchedule(c *gin.Context) {
	doc, err := h.planner.ExportSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+doc.ID+".json\"")
	c.JSON(http.StatusOK, doc)
}

// ImportSchedule godoc
// @Summary Import a schedule transfer document
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleTransfer true "Transfer document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/import [post]
func (h *PlannerHandler) ImportSchedule(c *gin.Context) {
	var doc dto.ScheduleTransfer
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "schedule document is not valid JSON"))
		return
	}
	schedule, err := h.planner.ImportSchedule(c.Request.Context(), doc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}
